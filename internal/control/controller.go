package control

import (
	"fmt"

	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
)

// Controller runs HVAC inputs through a fuzzy engine. It holds no mutable
// state, so one Controller can serve any number of zones.
type Controller struct {
	engine *fuzzy.Engine
}

// NewController checks that the engine speaks the HVAC variable names.
func NewController(engine *fuzzy.Engine) (*Controller, error) {
	have := make(map[string]bool)
	for _, v := range engine.Inputs() {
		have[v.Name] = true
	}
	for _, name := range []string{VarTemperatureError, VarRateOfChange, VarOutsideTemperature} {
		if !have[name] {
			return nil, &fuzzy.ConfigurationError{
				Subject: "controller",
				Reason:  fmt.Sprintf("engine has no input %q", name),
			}
		}
	}
	if out := engine.Output(); out.Name != VarControlSignal {
		return nil, &fuzzy.ConfigurationError{
			Subject: "controller",
			Reason:  fmt.Sprintf("engine output is %q, want %q", out.Name, VarControlSignal),
		}
	}
	return &Controller{engine: engine}, nil
}

// Infer returns the control signal for in, or fuzzy.ErrNoRuleFired.
func (c *Controller) Infer(in CrispInput) (ControlSignal, error) {
	out, err := c.engine.Infer(in.Values())
	if err != nil {
		return 0, err
	}
	return ControlSignal(out), nil
}

// Evaluate is Infer plus the rule firing trace.
func (c *Controller) Evaluate(in CrispInput) (ControlSignal, fuzzy.Result, error) {
	res, err := c.engine.Evaluate(in.Values())
	if err != nil {
		return 0, res, err
	}
	return ControlSignal(res.Output), res, nil
}

// Engine returns the underlying engine.
func (c *Controller) Engine() *fuzzy.Engine {
	return c.engine
}
