package control_test

import (
	"errors"
	"math"
	"testing"

	"github.com/sweeney/fuzzy-hvac/internal/config"
	"github.com/sweeney/fuzzy-hvac/internal/control"
	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
)

func defaultController(t *testing.T) *control.Controller {
	t.Helper()
	f, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	e, _, err := f.Engine()
	if err != nil {
		t.Fatal(err)
	}
	c, err := control.NewController(e)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		name     string
		signal   control.ControlSignal
		deadband float64
		want     control.Action
	}{
		{"positive no deadband", 0.05, 0, control.ActionHeat},
		{"negative no deadband", -0.05, 0, control.ActionCool},
		{"zero no deadband", 0, 0, control.ActionMaintain},
		{"inside deadband high", 0.5, 0.5, control.ActionMaintain},
		{"inside deadband low", -0.5, 0.5, control.ActionMaintain},
		{"float noise", -1.6e-16, 0.5, control.ActionMaintain},
		{"float noise default deadband", -1.6e-16, 0.01, control.ActionMaintain},
		{"scenario signal default deadband", 0.0533, 0.01, control.ActionHeat},
		{"above deadband", 0.51, 0.5, control.ActionHeat},
		{"below deadband", -0.51, 0.5, control.ActionCool},
		{"full heat", 100, 0.5, control.ActionHeat},
		{"full cool", -100, 0.5, control.ActionCool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := control.ActionFor(tt.signal, tt.deadband); got != tt.want {
				t.Errorf("ActionFor(%g, %g) = %s, want %s", tt.signal, tt.deadband, got, tt.want)
			}
		})
	}
}

func TestCrispInputValues(t *testing.T) {
	in := control.CrispInput{TemperatureError: 2, RateOfChange: -1, OutsideTemperature: 15}
	v := in.Values()
	if len(v) != 3 {
		t.Fatalf("got %d values", len(v))
	}
	if v[control.VarTemperatureError] != 2 || v[control.VarRateOfChange] != -1 || v[control.VarOutsideTemperature] != 15 {
		t.Errorf("got %v", v)
	}
}

func TestControllerColdRoomHeats(t *testing.T) {
	c := defaultController(t)
	in := control.CrispInput{TemperatureError: 2, RateOfChange: -1, OutsideTemperature: 15}

	sig, res, err := c.Evaluate(in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(float64(sig)-0.05325587024933299) > 1e-9 {
		t.Errorf("signal: got %.12f", sig)
	}
	if control.ActionFor(sig, 0) != control.ActionHeat {
		t.Errorf("expected HEAT for %g", sig)
	}
	if got := res.Activation["increase_heat"]; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("increase_heat activation: got %g, want 0.2", got)
	}

	inferred, err := c.Infer(in)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if inferred != sig {
		t.Errorf("Infer %g != Evaluate %g", inferred, sig)
	}
}

func TestControllerSaturates(t *testing.T) {
	c := defaultController(t)
	sig, err := c.Infer(control.CrispInput{TemperatureError: 10, RateOfChange: -5, OutsideTemperature: -20})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(sig)-50) > 1e-9 {
		t.Errorf("got %g, want 50", sig)
	}
}

func TestControllerNoRuleFired(t *testing.T) {
	c := defaultController(t)
	_, err := c.Infer(control.CrispInput{TemperatureError: -10, RateOfChange: 5, OutsideTemperature: 40})
	if !errors.Is(err, fuzzy.ErrNoRuleFired) {
		t.Errorf("expected ErrNoRuleFired, got %v", err)
	}
}

func TestNewControllerRejectsForeignEngine(t *testing.T) {
	reg := fuzzy.NewRegistry()
	mustAdd := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	u := fuzzy.Universe{Min: 0, Max: 10, Step: 1}
	sets := []fuzzy.Set{{Name: "low", Shape: fuzzy.Triangle(0, 0, 10)}}
	mustAdd(reg.AddInput(fuzzy.Variable{Name: control.VarTemperatureError, Universe: u, Sets: sets}))
	mustAdd(reg.AddInput(fuzzy.Variable{Name: control.VarRateOfChange, Universe: u, Sets: sets}))
	mustAdd(reg.AddInput(fuzzy.Variable{Name: control.VarOutsideTemperature, Universe: u, Sets: sets}))
	mustAdd(reg.AddOutput(fuzzy.Variable{Name: "fan_speed", Universe: u, Sets: sets}))

	rb := fuzzy.NewRuleBase(reg)
	mustAdd(rb.AddRule(fuzzy.Rule{
		If:   []fuzzy.Term{{Variable: control.VarTemperatureError, Set: "low"}},
		Then: fuzzy.Term{Variable: "fan_speed", Set: "low"},
	}))
	e, err := fuzzy.NewEngine(reg, rb)
	if err != nil {
		t.Fatal(err)
	}

	_, err = control.NewController(e)
	var cfgErr *fuzzy.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Subject != "controller" {
		t.Errorf("subject: got %q", cfgErr.Subject)
	}
}
