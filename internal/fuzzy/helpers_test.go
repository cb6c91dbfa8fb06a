package fuzzy

import "testing"

// hvacRules is the 20-rule HVAC rule base:
// temperature_error, rate_of_change, outside_temperature -> control_signal.
var hvacRules = [][4]string{
	{"cold", "decreasing", "cold", "increase_heat"},
	{"cold", "decreasing", "normal", "increase_heat"},
	{"cold", "decreasing", "hot", "increase_heat"},
	{"cold", "stable", "cold", "increase_heat"},
	{"cold", "stable", "normal", "increase_heat"},
	{"cold", "stable", "hot", "maintain"},
	{"cold", "increasing", "cold", "increase_heat"},
	{"cold", "increasing", "normal", "maintain"},
	{"cold", "increasing", "hot", "decrease_cool"},
	{"normal", "decreasing", "cold", "increase_heat"},
	{"normal", "decreasing", "normal", "maintain"},
	{"normal", "decreasing", "hot", "decrease_cool"},
	{"normal", "stable", "cold", "maintain"},
	{"normal", "stable", "normal", "maintain"},
	{"normal", "stable", "hot", "maintain"},
	{"normal", "increasing", "cold", "decrease_cool"},
	{"normal", "increasing", "normal", "decrease_cool"},
	{"normal", "increasing", "hot", "decrease_cool"},
	{"hot", "decreasing", "cold", "maintain"},
	{"hot", "decreasing", "normal", "decrease_cool"},
}

func hvacVariables() (inputs []Variable, output Variable) {
	inputs = []Variable{
		{
			Name:     "temperature_error",
			Universe: Universe{Min: -10, Max: 10, Step: 1},
			Sets: []Set{
				{"cold", Triangle(0, 10, 10)},
				{"normal", Triangle(-10, 0, 10)},
				{"hot", Triangle(-10, -10, 0)},
			},
		},
		{
			Name:     "rate_of_change",
			Universe: Universe{Min: -5, Max: 5, Step: 1},
			Sets: []Set{
				{"decreasing", Triangle(-5, -5, 0)},
				{"stable", Triangle(-5, 0, 5)},
				{"increasing", Triangle(0, 5, 5)},
			},
		},
		{
			Name:     "outside_temperature",
			Universe: Universe{Min: -20, Max: 40, Step: 1},
			Sets: []Set{
				{"cold", Triangle(-20, -20, 0)},
				{"normal", Triangle(-20, 0, 40)},
				{"hot", Triangle(0, 40, 40)},
			},
		},
	}
	output = Variable{
		Name:     "control_signal",
		Universe: Universe{Min: -100, Max: 100, Step: 1},
		Sets: []Set{
			{"decrease_cool", Triangle(-100, -100, -50)},
			{"maintain", Triangle(-50, 0, 50)},
			{"increase_heat", Triangle(0, 50, 100)},
		},
	}
	return inputs, output
}

func hvacRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	inputs, output := hvacVariables()
	for _, v := range inputs {
		if err := reg.AddInput(v); err != nil {
			t.Fatalf("AddInput(%s): %v", v.Name, err)
		}
	}
	if err := reg.AddOutput(output); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	return reg
}

func hvacRuleList() []Rule {
	rules := make([]Rule, len(hvacRules))
	for i, r := range hvacRules {
		rules[i] = Rule{
			Name: "rule" + itoa(i+1),
			If: []Term{
				{"temperature_error", r[0]},
				{"rate_of_change", r[1]},
				{"outside_temperature", r[2]},
			},
			Then: Term{"control_signal", r[3]},
		}
	}
	return rules
}

func hvacEngine(t *testing.T, rules []Rule, opts ...Option) *Engine {
	t.Helper()
	reg := hvacRegistry(t)
	rb := NewRuleBase(reg)
	for _, r := range rules {
		if err := rb.AddRule(r); err != nil {
			t.Fatalf("AddRule(%s): %v", r.Name, err)
		}
	}
	e, err := NewEngine(reg, rb, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func hvacInput(te, rct, ot float64) map[string]float64 {
	return map[string]float64{
		"temperature_error":   te,
		"rate_of_change":      rct,
		"outside_temperature": ot,
	}
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}
