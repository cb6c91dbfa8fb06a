// Package control binds the fuzzy engine to the HVAC domain: crisp sensor
// inputs, the control signal and the heat/cool/maintain decision handed to
// the actuation side.
package control

import "time"

// Linguistic variable names used by the HVAC rule base.
const (
	VarTemperatureError   = "temperature_error"
	VarRateOfChange       = "rate_of_change"
	VarOutsideTemperature = "outside_temperature"
	VarControlSignal      = "control_signal"
)

// CrispInput is one control cycle's sensor reading.
type CrispInput struct {
	// TemperatureError is setpoint minus indoor temperature, in °C.
	// Positive means the room is colder than wanted.
	TemperatureError float64
	// RateOfChange is the indoor temperature trend, in °C per minute.
	RateOfChange float64
	// OutsideTemperature is the outdoor temperature, in °C.
	OutsideTemperature float64
}

// Values maps the input onto the engine's variable names.
func (in CrispInput) Values() map[string]float64 {
	return map[string]float64{
		VarTemperatureError:   in.TemperatureError,
		VarRateOfChange:       in.RateOfChange,
		VarOutsideTemperature: in.OutsideTemperature,
	}
}

// ControlSignal is the defuzzified controller output in [-100, 100].
// Positive asks for heat, negative for cooling.
type ControlSignal float64

// Action is the discrete command derived from a ControlSignal.
type Action string

const (
	ActionHeat     Action = "HEAT"
	ActionCool     Action = "COOL"
	ActionMaintain Action = "MAINTAIN"
)

// ActionFor maps a signal to an action. Signals within ±deadband maintain;
// with a zero deadband any positive signal heats and any negative one cools.
// The daemon's built-in configuration uses a deadband of 0.01.
func ActionFor(signal ControlSignal, deadband float64) Action {
	switch {
	case float64(signal) > deadband:
		return ActionHeat
	case float64(signal) < -deadband:
		return ActionCool
	default:
		return ActionMaintain
	}
}

// Decision is what the actuation side receives for one accepted cycle.
type Decision struct {
	Timestamp time.Time
	CycleID   string
	Zone      string
	Input     CrispInput
	Signal    ControlSignal
	Action    Action
}

// Actuator consumes decisions. Implementations translate the action into
// heating or cooling commands; errors must not stop the control loop.
type Actuator interface {
	Apply(d Decision) error
}
