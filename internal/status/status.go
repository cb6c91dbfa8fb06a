// Package status provides a thread-safe per-zone status tracker for the
// fuzzy-hvac daemon. It is read by the HTTP handlers and by the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/fuzzy-hvac/internal/control"
)

// Outcome classifies how a control cycle ended.
type Outcome string

const (
	OutcomeDecision      Outcome = "decision"
	OutcomeSensorError   Outcome = "sensor_error"
	OutcomeRangeReject   Outcome = "range_reject"
	OutcomeNoRuleFired   Outcome = "no_rule_fired"
	OutcomeInferenceErr  Outcome = "inference_error"
	OutcomeEmergencyStop Outcome = "emergency_stop"
	OutcomePublishError  Outcome = "publish_error"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Deadband    float64
	Defuzzifier string
	Rules       int
}

// Counts tallies cycle outcomes for one zone.
type Counts struct {
	Cycles         int
	Decisions      int
	SensorErrors   int
	RangeRejects   int
	NoRuleFired    int
	InferenceErrs  int
	EmergencyStops int
	PublishErrors  int
}

func (c *Counts) add(o Outcome) {
	c.Cycles++
	switch o {
	case OutcomeDecision:
		c.Decisions++
	case OutcomeSensorError:
		c.SensorErrors++
	case OutcomeRangeReject:
		c.RangeRejects++
	case OutcomeNoRuleFired:
		c.NoRuleFired++
	case OutcomeInferenceErr:
		c.InferenceErrs++
	case OutcomeEmergencyStop:
		c.EmergencyStops++
	case OutcomePublishError:
		c.PublishErrors++
	}
}

// Cycle is what a control loop reports after each tick.
type Cycle struct {
	Time    time.Time
	Outcome Outcome
	Input   control.CrispInput
	Signal  control.ControlSignal
	Action  control.Action
	Fired   []string // names of the rules that fired
	Err     error
}

// ZoneState is the last known state of one zone.
type ZoneState struct {
	Name      string
	Setpoint  float64
	LastCycle time.Time
	Outcome   Outcome
	Input     control.CrispInput
	Signal    control.ControlSignal
	Action    control.Action
	Fired     []string
	LastError string
	Counts    Counts
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Zones         []ZoneState
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Zone returns the state of the named zone.
func (s Snapshot) Zone(name string) (ZoneState, bool) {
	for _, z := range s.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return ZoneState{}, false
}

// StaleZones returns the zones with no cycle in the last maxAge. A zone
// that never ran counts from the start time.
func (s Snapshot) StaleZones(maxAge time.Duration) []string {
	var stale []string
	for _, z := range s.Zones {
		last := z.LastCycle
		if last.IsZero() {
			last = s.StartTime
		}
		if s.Now.Sub(last) > maxAge {
			stale = append(stale, z.Name)
		}
	}
	return stale
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
	now   func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		index: make(map[string]int),
		now:   time.Now,
	}
}

// AddZone registers a zone for display. Adding a zone twice is a no-op.
func (t *Tracker) AddZone(name string, setpoint float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.snap.Zones)
	t.snap.Zones = append(t.snap.Zones, ZoneState{Name: name, Setpoint: setpoint})
}

// Record updates a zone with the result of one cycle. Unknown zones are
// added on first use. Failed cycles keep the last accepted decision.
func (t *Tracker) Record(zone string, c Cycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[zone]
	if !ok {
		i = len(t.snap.Zones)
		t.index[zone] = i
		t.snap.Zones = append(t.snap.Zones, ZoneState{Name: zone})
	}
	z := &t.snap.Zones[i]
	z.LastCycle = c.Time
	z.Outcome = c.Outcome
	z.Counts.add(c.Outcome)

	if c.Err != nil {
		z.LastError = c.Err.Error()
	}
	switch c.Outcome {
	case OutcomeDecision, OutcomeEmergencyStop:
		z.Input = c.Input
		z.Signal = c.Signal
		z.Action = c.Action
		z.Fired = append([]string(nil), c.Fired...)
	case OutcomeRangeReject, OutcomeNoRuleFired, OutcomeInferenceErr:
		z.Input = c.Input
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Zones = make([]ZoneState, len(t.snap.Zones))
	for i, z := range t.snap.Zones {
		z.Fired = append([]string(nil), z.Fired...)
		s.Zones[i] = z
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
