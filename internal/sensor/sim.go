package sensor

import (
	"errors"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/sweeney/fuzzy-hvac/internal/config"
	"github.com/sweeney/fuzzy-hvac/internal/control"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("sensor: source closed")

// Simulation defaults, per minute of simulated time.
const (
	DefaultLossRate = 0.01 // fraction of the indoor/outdoor gap lost
	DefaultHeatGain = 0.2  // °C gained at a full +100 signal

	// outsidePeriod is roughly how long the outside temperature takes to
	// wander through one swing.
	outsidePeriod = 6 * time.Hour
)

// Sim is a first-order room model. Indoor temperature relaxes toward the
// outside temperature and moves with the last fed control signal; the
// outside temperature drifts smoothly with simplex noise.
type Sim struct {
	mu sync.Mutex

	zone     config.Zone
	lossRate float64
	heatGain float64
	noise    opensimplex.Noise
	now      func() time.Time

	start  time.Time
	last   time.Time
	indoor float64
	signal float64
	closed bool
}

// NewSim creates a simulated room for zone. now is the clock used to
// advance the model; pass time.Now outside tests.
func NewSim(zone config.Zone, now func() time.Time) *Sim {
	s := &Sim{
		zone:     zone,
		lossRate: zone.LossRate,
		heatGain: zone.HeatGain,
		noise:    opensimplex.NewNormalized(zone.Seed),
		now:      now,
		indoor:   zone.InitialTemperature,
	}
	if s.lossRate == 0 {
		s.lossRate = DefaultLossRate
	}
	if s.heatGain == 0 {
		s.heatGain = DefaultHeatGain
	}
	return s
}

// Read advances the model to the current time and returns the inputs.
// The first read reports a stable trend.
func (s *Sim) Read() (control.CrispInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return control.CrispInput{}, ErrClosed
	}
	t := s.now()
	if s.start.IsZero() {
		s.start, s.last = t, t
		return s.input(t, 0), nil
	}

	dt := t.Sub(s.last).Minutes()
	s.last = t
	if dt <= 0 {
		return s.input(t, 0), nil
	}

	prev := s.indoor
	outside := s.outside(t)
	s.indoor += dt * (s.lossRate*(outside-s.indoor) + s.heatGain*s.signal/100)
	return s.input(t, (s.indoor-prev)/dt), nil
}

func (s *Sim) input(t time.Time, rate float64) control.CrispInput {
	return control.CrispInput{
		TemperatureError:   s.zone.Setpoint - s.indoor,
		RateOfChange:       rate,
		OutsideTemperature: s.outside(t),
	}
}

// outside maps normalized noise in [0, 1] onto base ± swing.
func (s *Sim) outside(t time.Time) float64 {
	x := t.Sub(s.start).Hours() / outsidePeriod.Hours()
	return s.zone.OutsideBase + s.zone.OutsideSwing*(2*s.noise.Eval2(x, 0)-1)
}

// Feed sets the signal that drives the room until the next Feed.
func (s *Sim) Feed(signal control.ControlSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = float64(signal)
}

// Indoor returns the current simulated indoor temperature.
func (s *Sim) Indoor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indoor
}

// Close marks the simulation as closed.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
