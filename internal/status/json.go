package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Zones         []ZoneJSON `json:"zones"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ZoneJSON is the JSON representation of one zone.
type ZoneJSON struct {
	Name      string     `json:"name"`
	Setpoint  float64    `json:"setpoint"`
	LastCycle string     `json:"last_cycle,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Input     InputJSON  `json:"input"`
	Signal    float64    `json:"signal"`
	Action    string     `json:"action"`
	Fired     []string   `json:"fired"`
	LastError string     `json:"last_error,omitempty"`
	Counts    CountsJSON `json:"counts"`
}

// InputJSON is the JSON representation of the last crisp input.
type InputJSON struct {
	TemperatureError   float64 `json:"temperature_error"`
	RateOfChange       float64 `json:"rate_of_change"`
	OutsideTemperature float64 `json:"outside_temperature"`
}

// CountsJSON is the JSON representation of cycle counts.
type CountsJSON struct {
	Cycles         int `json:"cycles"`
	Decisions      int `json:"decisions"`
	SensorErrors   int `json:"sensor_errors"`
	RangeRejects   int `json:"range_rejects"`
	NoRuleFired    int `json:"no_rule_fired"`
	InferenceErrs  int `json:"inference_errors"`
	EmergencyStops int `json:"emergency_stops"`
	PublishErrors  int `json:"publish_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64   `json:"poll_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
	Deadband    float64 `json:"deadband"`
	Defuzzifier string  `json:"defuzzifier"`
	Rules       int     `json:"rules"`
}

func buildZone(z ZoneState) ZoneJSON {
	action := string(z.Action)
	if action == "" {
		action = "UNKNOWN"
	}
	fired := z.Fired
	if fired == nil {
		fired = []string{}
	}
	zj := ZoneJSON{
		Name:     z.Name,
		Setpoint: z.Setpoint,
		Outcome:  string(z.Outcome),
		Input: InputJSON{
			TemperatureError:   z.Input.TemperatureError,
			RateOfChange:       z.Input.RateOfChange,
			OutsideTemperature: z.Input.OutsideTemperature,
		},
		Signal:    float64(z.Signal),
		Action:    action,
		Fired:     fired,
		LastError: z.LastError,
		Counts: CountsJSON{
			Cycles:         z.Counts.Cycles,
			Decisions:      z.Counts.Decisions,
			SensorErrors:   z.Counts.SensorErrors,
			RangeRejects:   z.Counts.RangeRejects,
			NoRuleFired:    z.Counts.NoRuleFired,
			InferenceErrs:  z.Counts.InferenceErrs,
			EmergencyStops: z.Counts.EmergencyStops,
			PublishErrors:  z.Counts.PublishErrors,
		},
	}
	if !z.LastCycle.IsZero() {
		zj.LastCycle = z.LastCycle.UTC().Format(time.RFC3339)
	}
	return zj
}

func buildInner(snap Snapshot) StatusInner {
	zones := make([]ZoneJSON, len(snap.Zones))
	for i, z := range snap.Zones {
		zones[i] = buildZone(z)
	}
	return StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Zones:         zones,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Deadband:    snap.Config.Deadband,
			Defuzzifier: snap.Config.Defuzzifier,
			Rules:       snap.Config.Rules,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
