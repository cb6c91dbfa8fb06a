// Package mqtt publishes control decisions and daemon lifecycle events to
// the actuation side over MQTT, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fuzzy-hvac/internal/control"
)

// TopicPrefix is the root of every topic the daemon publishes to.
const TopicPrefix = "hvac/fuzzy"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = TopicPrefix + "/system"

// ControlTopic returns the topic that carries decisions for zone.
func ControlTopic(zone string) string {
	return TopicPrefix + "/" + zone + "/control"
}

// System event names.
const (
	EventStartup       = "STARTUP"
	EventShutdown      = "SHUTDOWN"
	EventHeartbeat     = "HEARTBEAT"
	EventAlert         = "ALERT"
	EventEmergencyStop = "EMERGENCY_STOP"
	EventOffline       = "OFFLINE"
	EventReconnected   = "RECONNECTED"
)

// Publisher publishes decisions and system events to MQTT.
type Publisher interface {
	// Publish sends a control decision to its zone's topic.
	// Returns error if publishing fails (should not crash the process).
	Publish(d control.Decision) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Actuator hands decisions to a Publisher. The external actuation service
// subscribes to the control topics and drives the plant.
type Actuator struct {
	Publisher Publisher
}

// Apply publishes d.
func (a Actuator) Apply(d control.Decision) error {
	return a.Publisher.Publish(d)
}

// SystemEvent represents a system lifecycle event (startup, shutdown,
// heartbeat) or a per-zone alert.
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Zone       string // set for ALERT and EMERGENCY_STOP
	Reason     string
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload of a decision.
type Payload struct {
	Control ControlPayload `json:"control"`
}

// ControlPayload contains the decision details.
type ControlPayload struct {
	Timestamp string       `json:"timestamp"`
	CycleID   string       `json:"cycle_id"`
	Zone      string       `json:"zone"`
	Signal    float64      `json:"signal"`
	Action    string       `json:"action"`
	Input     InputPayload `json:"input"`
}

// InputPayload echoes the crisp inputs the decision was made from.
type InputPayload struct {
	TemperatureError   float64 `json:"temperature_error"`
	RateOfChange       float64 `json:"rate_of_change"`
	OutsideTemperature float64 `json:"outside_temperature"`
}

// FormatPayload creates the JSON payload for a decision.
func FormatPayload(d control.Decision) ([]byte, error) {
	payload := Payload{
		Control: ControlPayload{
			Timestamp: d.Timestamp.UTC().Format(time.RFC3339),
			CycleID:   d.CycleID,
			Zone:      d.Zone,
			Signal:    float64(d.Signal),
			Action:    string(d.Action),
			Input: InputPayload{
				TemperatureError:   d.Input.TemperatureError,
				RateOfChange:       d.Input.RateOfChange,
				OutsideTemperature: d.Input.OutsideTemperature,
			},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, alerts) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Zone      string `json:"zone,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Zone:      event.Zone,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher drops everything. It stands in for the broker when
// publishing is switched off.
type NopPublisher struct{}

func (NopPublisher) Publish(control.Decision) error  { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
