package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/fuzzy-hvac/internal/control"
	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
	"github.com/sweeney/fuzzy-hvac/internal/metrics"
	"github.com/sweeney/fuzzy-hvac/internal/mqtt"
	"github.com/sweeney/fuzzy-hvac/internal/safety"
	"github.com/sweeney/fuzzy-hvac/internal/sensor"
	"github.com/sweeney/fuzzy-hvac/internal/status"
)

// zoneLoop runs the control cycle of one zone. Loops share the controller
// and envelope, which are read-only.
type zoneLoop struct {
	zone     string
	ctrl     *control.Controller
	env      *safety.Envelope
	src      sensor.Source
	act      control.Actuator
	pub      mqtt.Publisher
	conn     mqtt.ConnectionStatus // may be nil
	tracker  *status.Tracker
	metrics  *metrics.Metrics // may be nil
	deadband float64
	now      func() time.Time
	log      *zap.Logger
}

// run executes one cycle per tick until ctx is done or tick is closed.
func (l *zoneLoop) run(ctx context.Context, tick <-chan time.Time) error {
	l.log.Debug("control loop started")
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("control loop stopped")
			return nil
		case _, ok := <-tick:
			if !ok {
				return nil
			}
			l.cycle()
		}
	}
}

// cycle reads the sensors, runs guarded inference and hands the decision
// to the actuator. Every failure is contained within the cycle.
func (l *zoneLoop) cycle() status.Outcome {
	t := l.now()

	in, err := l.src.Read()
	if err != nil {
		l.log.Warn("sensor read failed", zap.Error(err))
		return l.record(status.Cycle{Time: t, Outcome: status.OutcomeSensorError, Err: err})
	}

	if err := l.env.CheckInput(in); err != nil {
		l.log.Warn("input rejected", zap.Error(err))
		l.alert(t, err.Error())
		return l.record(status.Cycle{Time: t, Outcome: status.OutcomeRangeReject, Input: in, Err: err})
	}

	began := time.Now()
	sig, res, err := l.ctrl.Evaluate(in)
	if l.metrics != nil {
		l.metrics.Inference(l.zone, time.Since(began))
	}
	if err != nil {
		// The previous actuation stays in force; nothing is sent.
		outcome := status.OutcomeNoRuleFired
		if errors.Is(err, fuzzy.ErrNoRuleFired) {
			l.log.Warn("no rule fired, holding last actuation", zap.Float64("te", in.TemperatureError),
				zap.Float64("rct", in.RateOfChange), zap.Float64("ot", in.OutsideTemperature))
		} else {
			// e.g. a rule base with inputs beyond the three HVAC readings
			outcome = status.OutcomeInferenceErr
			l.log.Error("inference failed, holding last actuation", zap.Error(err))
		}
		l.alert(t, err.Error())
		return l.record(status.Cycle{Time: t, Outcome: outcome, Input: in, Err: err})
	}

	fired := make([]string, len(res.Firing))
	for i, rf := range res.Firing {
		fired[i] = rf.Rule
	}

	d := control.Decision{
		Timestamp: t,
		CycleID:   uuid.New().String(),
		Zone:      l.zone,
		Input:     in,
		Signal:    sig,
		Action:    control.ActionFor(sig, l.deadband),
	}

	if err := l.env.CheckOutput(sig); err != nil {
		l.log.Error("control signal outside safety limits, emergency stop", zap.Error(err))
		d.Signal = 0
		d.Action = control.ActionMaintain
		if aerr := l.act.Apply(d); aerr != nil {
			l.log.Error("emergency stop publish failed", zap.Error(aerr))
		}
		l.publishSystem(mqtt.SystemEvent{Timestamp: t, Event: mqtt.EventEmergencyStop, Zone: l.zone, Reason: err.Error()})
		l.feed(0)
		if l.metrics != nil {
			l.metrics.Signal(l.zone, 0)
		}
		return l.record(status.Cycle{Time: t, Outcome: status.OutcomeEmergencyStop, Input: in, Action: d.Action, Fired: fired, Err: err})
	}

	if err := l.act.Apply(d); err != nil {
		// Don't crash on publish failure
		l.log.Warn("publish decision failed", zap.Error(err))
		return l.record(status.Cycle{Time: t, Outcome: status.OutcomePublishError, Input: in, Err: err})
	}
	l.feed(sig)

	l.log.Debug("decision",
		zap.String("cycle_id", d.CycleID),
		zap.Float64("signal", float64(sig)),
		zap.String("action", string(d.Action)),
		zap.Strings("fired", fired))
	if l.metrics != nil {
		l.metrics.Decision(l.zone, in.TemperatureError, float64(sig),
			l.ctrl.Engine().Output().SetNames(), res.Activation, fired)
	}
	return l.record(status.Cycle{Time: t, Outcome: status.OutcomeDecision, Input: in, Signal: sig, Action: d.Action, Fired: fired})
}

func (l *zoneLoop) feed(sig control.ControlSignal) {
	if fb, ok := l.src.(sensor.Feedback); ok {
		fb.Feed(sig)
	}
}

func (l *zoneLoop) alert(t time.Time, reason string) {
	l.publishSystem(mqtt.SystemEvent{Timestamp: t, Event: mqtt.EventAlert, Zone: l.zone, Reason: reason})
}

func (l *zoneLoop) publishSystem(e mqtt.SystemEvent) {
	if err := l.pub.PublishSystem(e); err != nil {
		l.log.Warn("publish system event failed", zap.String("event", e.Event), zap.Error(err))
	}
}

func (l *zoneLoop) record(c status.Cycle) status.Outcome {
	if l.tracker != nil {
		l.tracker.Record(l.zone, c)
		if l.conn != nil {
			l.tracker.SetMQTTConnected(l.conn.IsConnected())
		}
	}
	if l.metrics != nil {
		l.metrics.Cycle(l.zone, string(c.Outcome))
	}
	return c.Outcome
}

// supervisor handles process-wide events: heartbeats and termination.
type supervisor struct {
	log      *zap.Logger
	pub      mqtt.Publisher
	conn     mqtt.ConnectionStatus // may be nil
	tracker  *status.Tracker
	staleAge time.Duration // zero disables the stale check
}

// run publishes a heartbeat on every heartbeat tick and returns the name of
// the signal that ended it. A nil heartbeat channel disables heartbeats.
func (s *supervisor) run(ctx context.Context, sig <-chan os.Signal, heartbeat <-chan time.Time) string {
	for {
		select {
		case v := <-sig:
			name := signalName(v)
			s.log.Info("shutting down", zap.String("signal", name))
			return name
		case <-ctx.Done():
			s.log.Warn("control loops stopped", zap.Error(ctx.Err()))
			return "CONTEXT"
		case <-heartbeat:
			reason := ""
			if s.staleAge > 0 {
				if stale := s.tracker.Snapshot().StaleZones(s.staleAge); len(stale) > 0 {
					reason = "stale zones: " + strings.Join(stale, ",")
					s.log.Warn("zones not cycling", zap.Strings("zones", stale))
				}
			}
			s.log.Debug("heartbeat")
			s.refresh()
			publishStatus(s.log, s.pub, s.tracker, mqtt.EventHeartbeat, reason, false)
		}
	}
}

// shutdown publishes the retained SHUTDOWN status event.
func (s *supervisor) shutdown(reason string) {
	s.refresh()
	publishStatus(s.log, s.pub, s.tracker, mqtt.EventShutdown, reason, true)
}

func (s *supervisor) refresh() {
	if s.conn != nil {
		s.tracker.SetMQTTConnected(s.conn.IsConnected())
	}
}

// publishStatus publishes a system event carrying a full status snapshot.
func publishStatus(log *zap.Logger, pub mqtt.Publisher, tracker *status.Tracker, event, reason string, retained bool) {
	snap := tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(e); err != nil {
		log.Warn("failed to publish system event", zap.String("event", event), zap.Error(err))
		return
	}
	log.Info("published system event", zap.String("event", event))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
