package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/fuzzy-hvac/internal/control"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{PollMs: 1000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080", Defuzzifier: "area", Rules: 20}
	tr := NewTracker(t0, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(t0) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, t0)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v", snap.Config)
	}
	if len(snap.Zones) != 0 {
		t.Errorf("expected no zones, got %d", len(snap.Zones))
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestAddZoneKeepsOrder(t *testing.T) {
	tr := NewTracker(t0, Config{})
	tr.AddZone("office", 20)
	tr.AddZone("lab", 19)
	tr.AddZone("office", 25)

	snap := tr.Snapshot()
	if len(snap.Zones) != 2 || snap.Zones[0].Name != "office" || snap.Zones[1].Name != "lab" {
		t.Fatalf("zones: got %+v", snap.Zones)
	}
	if snap.Zones[0].Setpoint != 20 {
		t.Errorf("second AddZone should not overwrite, setpoint %g", snap.Zones[0].Setpoint)
	}
}

func TestRecordDecision(t *testing.T) {
	tr := NewTracker(t0, Config{})
	tr.AddZone("office", 20)

	in := control.CrispInput{TemperatureError: 2, RateOfChange: -1, OutsideTemperature: 15}
	tr.Record("office", Cycle{
		Time:    t0.Add(time.Second),
		Outcome: OutcomeDecision,
		Input:   in,
		Signal:  12,
		Action:  control.ActionHeat,
		Fired:   []string{"rule5", "rule14"},
	})

	z, ok := tr.Snapshot().Zone("office")
	if !ok {
		t.Fatal("zone missing")
	}
	if z.Input != in || z.Signal != 12 || z.Action != control.ActionHeat {
		t.Errorf("zone: got %+v", z)
	}
	if len(z.Fired) != 2 || z.Fired[0] != "rule5" {
		t.Errorf("fired: got %v", z.Fired)
	}
	if z.Counts.Cycles != 1 || z.Counts.Decisions != 1 {
		t.Errorf("counts: got %+v", z.Counts)
	}
}

func TestRecordFailureHoldsDecision(t *testing.T) {
	tr := NewTracker(t0, Config{})
	tr.Record("lab", Cycle{Time: t0, Outcome: OutcomeDecision, Signal: -40, Action: control.ActionCool})

	bad := control.CrispInput{TemperatureError: -10, RateOfChange: 5, OutsideTemperature: 40}
	tr.Record("lab", Cycle{Time: t0.Add(time.Second), Outcome: OutcomeNoRuleFired, Input: bad, Err: errors.New("no rule fired")})
	tr.Record("lab", Cycle{Time: t0.Add(2 * time.Second), Outcome: OutcomeSensorError, Err: errors.New("read failed")})

	z, _ := tr.Snapshot().Zone("lab")
	if z.Signal != -40 || z.Action != control.ActionCool {
		t.Errorf("last decision should be held, got %g %s", z.Signal, z.Action)
	}
	if z.Input != bad {
		t.Errorf("rejected input should be shown, got %+v", z.Input)
	}
	if z.LastError != "read failed" || z.Outcome != OutcomeSensorError {
		t.Errorf("last error: got %q %s", z.LastError, z.Outcome)
	}
	want := Counts{Cycles: 3, Decisions: 1, NoRuleFired: 1, SensorErrors: 1}
	if z.Counts != want {
		t.Errorf("counts: got %+v, want %+v", z.Counts, want)
	}
}

func TestRecordCountsEveryOutcome(t *testing.T) {
	tr := NewTracker(t0, Config{})
	for _, o := range []Outcome{
		OutcomeDecision, OutcomeSensorError, OutcomeRangeReject,
		OutcomeNoRuleFired, OutcomeInferenceErr, OutcomeEmergencyStop, OutcomePublishError,
	} {
		tr.Record("z", Cycle{Time: t0, Outcome: o})
	}
	z, _ := tr.Snapshot().Zone("z")
	want := Counts{
		Cycles: 7, Decisions: 1, SensorErrors: 1, RangeRejects: 1,
		NoRuleFired: 1, InferenceErrs: 1, EmergencyStops: 1, PublishErrors: 1,
	}
	if z.Counts != want {
		t.Errorf("counts: got %+v, want %+v", z.Counts, want)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: t0, Now: t0.Add(15 * time.Minute)}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(t0, Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(t0, Config{})
	tr.Record("z", Cycle{Time: t0, Outcome: OutcomeDecision, Signal: 10, Fired: []string{"rule1"}})

	snap1 := tr.Snapshot()
	snap1.Zones[0].Fired[0] = "mutated"

	tr.Record("z", Cycle{Time: t0, Outcome: OutcomeDecision, Signal: 20, Fired: []string{"rule2"}})

	if snap1.Zones[0].Signal != 10 {
		t.Error("snapshot should be a copy; signal was modified")
	}
	if got := tr.Snapshot().Zones[0].Fired[0]; got != "rule2" {
		t.Errorf("tracker state leaked into snapshot: %s", got)
	}
}

func TestStaleZones(t *testing.T) {
	snap := Snapshot{
		StartTime: t0,
		Now:       t0.Add(10 * time.Minute),
		Zones: []ZoneState{
			{Name: "fresh", LastCycle: t0.Add(9 * time.Minute)},
			{Name: "old", LastCycle: t0.Add(time.Minute)},
			{Name: "never"},
		},
	}
	stale := snap.StaleZones(5 * time.Minute)
	if len(stale) != 2 || stale[0] != "old" || stale[1] != "never" {
		t.Errorf("stale: got %v", stale)
	}
	if got := snap.StaleZones(time.Hour); len(got) != 0 {
		t.Errorf("nothing should be stale within an hour, got %v", got)
	}
}

func testSnapshot() Snapshot {
	return Snapshot{
		StartTime:     t0,
		Now:           t0.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			PollMs: 1000, HeartbeatMs: 900000, Broker: "tcp://localhost:1883",
			HTTPAddr: ":8080", Deadband: 0.5, Defuzzifier: "area", Rules: 20,
		},
		Zones: []ZoneState{
			{
				Name:      "living-room",
				Setpoint:  21,
				LastCycle: t0.Add(14 * time.Minute),
				Outcome:   OutcomeDecision,
				Input:     control.CrispInput{TemperatureError: 2, RateOfChange: -1, OutsideTemperature: 15},
				Signal:    0.05,
				Action:    control.ActionMaintain,
				Fired:     []string{"rule5", "rule11", "rule14"},
				Counts:    Counts{Cycles: 840, Decisions: 838, NoRuleFired: 2},
			},
			{Name: "idle", Setpoint: 18},
		},
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Config.Rules != 20 || s.Config.Defuzzifier != "area" {
		t.Errorf("Config: got %+v", s.Config)
	}
	if len(s.Zones) != 2 {
		t.Fatalf("zones: got %d", len(s.Zones))
	}
	z := s.Zones[0]
	if z.Name != "living-room" || z.Action != "MAINTAIN" || z.LastCycle != "2026-01-01T00:14:00Z" {
		t.Errorf("zone: got %+v", z)
	}
	if z.Counts.Cycles != 840 || z.Counts.NoRuleFired != 2 {
		t.Errorf("counts: got %+v", z.Counts)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONIdleZone(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	zones := raw["status"].(map[string]interface{})["zones"].([]interface{})
	idle := zones[1].(map[string]interface{})

	if idle["action"] != "UNKNOWN" {
		t.Errorf("action: got %v, want UNKNOWN", idle["action"])
	}
	if _, exists := idle["last_cycle"]; exists {
		t.Error("last_cycle should be omitted before the first cycle")
	}
	if fired, ok := idle["fired"].([]interface{}); !ok || len(fired) != 0 {
		t.Errorf("fired should be an empty list, got %v", idle["fired"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if len(parsed.Status.Zones) != 2 {
		t.Errorf("zones: got %d", len(parsed.Status.Zones))
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func(zone string) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tr.Record(zone, Cycle{Time: time.Now(), Outcome: OutcomeDecision, Fired: []string{"rule1"}})
				tr.SetMQTTConnected(i%2 == 0)
			}
		}(fmt.Sprintf("zone-%d", w))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()

	for _, z := range tr.Snapshot().Zones {
		if z.Counts.Decisions != 1000 {
			t.Errorf("%s: got %d decisions, want 1000", z.Name, z.Counts.Decisions)
		}
	}
}
