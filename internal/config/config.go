// Package config loads the controller configuration: daemon settings,
// zones, linguistic variables and the rule base, from TOML.
//
// A File is plain data. Build turns it into a fresh fuzzy.Registry and
// fuzzy.RuleBase; retuning the controller means building again from a new
// File, never mutating a registry in place.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
)

//go:embed default.toml
var defaultTOML []byte

const (
	RoleInput  = "input"
	RoleOutput = "output"

	// BrokerOff disables MQTT publishing.
	BrokerOff = "off"

	defaultPollMs = 1000
)

// File is the top-level configuration document.
type File struct {
	Daemon    Daemon     `toml:"daemon"`
	Zones     []Zone     `toml:"zones"`
	Variables []Variable `toml:"variables"`
	Rules     []Rule     `toml:"rules"`
}

// Daemon holds process-level settings.
type Daemon struct {
	PollMs      int64  `toml:"poll_ms"`
	HeartbeatMs int64  `toml:"heartbeat_ms"`
	Broker      string `toml:"broker"`
	HTTP        string `toml:"http"`
	ClientID    string `toml:"client_id"`
	// Deadband is passed to control.ActionFor: signals within ±Deadband
	// maintain. The built-in default is 0.01, not 0, so floating-point
	// residue around zero maps to MAINTAIN; set 0 for the strict
	// >0 heat, <0 cool, ==0 maintain mapping.
	Deadband    float64 `toml:"deadband"`
	Defuzzifier string  `toml:"defuzzifier"`
}

// Poll returns the control cycle interval.
func (d Daemon) Poll() time.Duration {
	return time.Duration(d.PollMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval; zero disables heartbeats.
func (d Daemon) Heartbeat() time.Duration {
	return time.Duration(d.HeartbeatMs) * time.Millisecond
}

// Zone is one independently controlled space. The temperature and outside
// fields seed the simulated room that stands in for real sensors.
type Zone struct {
	Name               string  `toml:"name"`
	Setpoint           float64 `toml:"setpoint"`
	InitialTemperature float64 `toml:"initial_temperature"`
	OutsideBase        float64 `toml:"outside_base"`
	OutsideSwing       float64 `toml:"outside_swing"`
	LossRate           float64 `toml:"loss_rate,omitempty"`
	HeatGain           float64 `toml:"heat_gain,omitempty"`
	Seed               int64   `toml:"seed"`
}

// Variable describes a linguistic variable.
type Variable struct {
	Name string  `toml:"name"`
	Role string  `toml:"role"`
	Min  float64 `toml:"min"`
	Max  float64 `toml:"max"`
	Step float64 `toml:"step"`
	Sets []Set   `toml:"sets"`
}

// Set describes one fuzzy set by shape name and breakpoints.
type Set struct {
	Name   string    `toml:"name"`
	Shape  string    `toml:"shape"`
	Points []float64 `toml:"points"`
}

// Rule maps input variable names to set names; Then names an output set.
type Rule struct {
	Name string            `toml:"name"`
	When map[string]string `toml:"when"`
	Then string            `toml:"then"`
}

// Default returns the built-in HVAC configuration.
func Default() (*File, error) {
	return Parse(defaultTOML)
}

// Load reads and parses a configuration file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a TOML document, applies defaults and validates the daemon
// and zone sections. Unknown keys are rejected.
func Parse(raw []byte) (*File, error) {
	var f File
	err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&f)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.Daemon.PollMs == 0 {
		f.Daemon.PollMs = defaultPollMs
	}
	if f.Daemon.Defuzzifier == "" {
		f.Daemon.Defuzzifier = string(fuzzy.AreaCentroid)
	}
}

// Validate checks the daemon and zone sections. Variables and rules are
// checked by Build.
func (f *File) Validate() error {
	d := f.Daemon
	if d.PollMs <= 0 {
		return fmt.Errorf("config: daemon.poll_ms must be positive, got %d", d.PollMs)
	}
	if d.HeartbeatMs < 0 {
		return fmt.Errorf("config: daemon.heartbeat_ms must not be negative, got %d", d.HeartbeatMs)
	}
	if d.Deadband < 0 {
		return fmt.Errorf("config: daemon.deadband must not be negative, got %g", d.Deadband)
	}
	if _, err := fuzzy.ParseMethod(d.Defuzzifier); err != nil {
		return fmt.Errorf("config: daemon.defuzzifier: %w", err)
	}

	if len(f.Zones) == 0 {
		return fmt.Errorf("config: at least one zone is required")
	}
	seen := make(map[string]bool, len(f.Zones))
	for i, z := range f.Zones {
		if z.Name == "" {
			return fmt.Errorf("config: zone %d has no name", i)
		}
		if seen[z.Name] {
			return fmt.Errorf("config: duplicate zone %q", z.Name)
		}
		seen[z.Name] = true
		if z.LossRate < 0 || z.HeatGain < 0 || z.OutsideSwing < 0 {
			return fmt.Errorf("config: zone %q has negative simulation parameters", z.Name)
		}
	}
	return nil
}

// Method returns the configured defuzzification method.
func (f *File) Method() fuzzy.Method {
	m, _ := fuzzy.ParseMethod(f.Daemon.Defuzzifier)
	return m
}
