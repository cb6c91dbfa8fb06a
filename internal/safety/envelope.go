// Package safety guards the controller: crisp inputs are checked before
// inference and the control signal after it. The envelope only gates
// values; it never alters them and never shuts anything down itself.
package safety

import (
	"errors"
	"fmt"

	"github.com/sweeney/fuzzy-hvac/internal/control"
	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
)

// Bounds is an inclusive numeric range.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in [Min, Max]. NaN is never contained.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g]", b.Min, b.Max)
}

// RangeError reports a value outside its safety bounds.
type RangeError struct {
	Quantity string
	Value    float64
	Bounds   Bounds
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g outside safety limits %s", e.Quantity, e.Value, e.Bounds)
}

// Envelope holds the safety bounds of each input and of the output.
type Envelope struct {
	TemperatureError   Bounds
	RateOfChange       Bounds
	OutsideTemperature Bounds
	Output             Bounds
}

// NewEnvelope derives the bounds from the registry's universes, so the
// guards always match the configured variables.
func NewEnvelope(reg *fuzzy.Registry) (*Envelope, error) {
	bounds := func(name string) (Bounds, error) {
		v, ok := reg.Variable(name)
		if !ok {
			return Bounds{}, fmt.Errorf("safety bounds for %q: %w", name, fuzzy.ErrUnknownVariable)
		}
		return Bounds{Min: v.Universe.Min, Max: v.Universe.Max}, nil
	}

	var env Envelope
	var err error
	if env.TemperatureError, err = bounds(control.VarTemperatureError); err != nil {
		return nil, err
	}
	if env.RateOfChange, err = bounds(control.VarRateOfChange); err != nil {
		return nil, err
	}
	if env.OutsideTemperature, err = bounds(control.VarOutsideTemperature); err != nil {
		return nil, err
	}
	if env.Output, err = bounds(control.VarControlSignal); err != nil {
		return nil, err
	}
	return &env, nil
}

// CheckInput returns nil if every field of in is within bounds. Otherwise it
// returns a *RangeError, or several joined, one per offending field.
func (e *Envelope) CheckInput(in control.CrispInput) error {
	var errs []error
	check := func(name string, v float64, b Bounds) {
		if !b.Contains(v) {
			errs = append(errs, &RangeError{Quantity: name, Value: v, Bounds: b})
		}
	}
	check(control.VarTemperatureError, in.TemperatureError, e.TemperatureError)
	check(control.VarRateOfChange, in.RateOfChange, e.RateOfChange)
	check(control.VarOutsideTemperature, in.OutsideTemperature, e.OutsideTemperature)

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// CheckOutput returns a *RangeError if the signal is outside the output bounds.
func (e *Envelope) CheckOutput(sig control.ControlSignal) error {
	v := float64(sig)
	if !e.Output.Contains(v) {
		return &RangeError{Quantity: control.VarControlSignal, Value: v, Bounds: e.Output}
	}
	return nil
}
