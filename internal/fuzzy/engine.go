package fuzzy

import (
	"errors"
	"fmt"
	"math"
)

// Method selects how the aggregated output set is reduced to one number.
type Method string

const (
	// AreaCentroid weights samples by the trapezoidal rule, so the two end
	// samples count half. It approximates the area centroid of the
	// piecewise-linear output set; the numerator differs from the exact
	// segment integral by Step²/6·(μ_last−μ_first), which vanishes as Step
	// shrinks.
	AreaCentroid Method = "area"

	// SampleCentroid is the plain discrete centroid Σx·μ(x) / Σμ(x).
	SampleCentroid Method = "sample"
)

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case AreaCentroid, SampleCentroid:
		return Method(s), nil
	case "":
		return AreaCentroid, nil
	}
	return "", fmt.Errorf("unknown defuzzification method %q", s)
}

// Option configures an Engine.
type Option func(*Engine)

// WithMethod sets the defuzzification method. The default is AreaCentroid.
func WithMethod(m Method) Option {
	return func(e *Engine) {
		e.method = m
	}
}

// RuleFiring is the firing strength of one rule for one input.
type RuleFiring struct {
	Rule     string
	Then     string
	Strength float64
}

// Result is the outcome of one inference.
type Result struct {
	// Output is the defuzzified crisp value.
	Output float64
	// Firing lists the rules that fired with positive strength, in rule base order.
	Firing []RuleFiring
	// Activation maps each output set to its aggregated activation.
	// Sets that no rule activated are absent.
	Activation map[string]float64
}

// Engine evaluates a rule base against crisp inputs. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	inputs  []Variable
	output  Variable
	rules   []Rule
	method  Method
	samples []float64
	weights []float64
	// grid[j][i] is the degree of output set j at samples[i].
	grid [][]float64
}

// NewEngine builds an engine from a registry and a rule base bound to it.
func NewEngine(reg *Registry, rules *RuleBase, opts ...Option) (*Engine, error) {
	out, ok := reg.Output()
	if !ok {
		return nil, configErrorf("engine", "no output variable registered")
	}
	if rules.Registry() != reg {
		return nil, configErrorf("engine", "rule base was built against a different registry")
	}
	if rules.Len() == 0 {
		return nil, configErrorf("engine", "rule base is empty")
	}

	e := &Engine{
		inputs: reg.Inputs(),
		output: out,
		rules:  rules.Rules(),
		method: AreaCentroid,
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := ParseMethod(string(e.method)); err != nil {
		return nil, configErrorf("engine", "%v", err)
	}

	e.samples = out.Universe.Samples()
	e.weights = make([]float64, len(e.samples))
	for i := range e.weights {
		e.weights[i] = 1
	}
	if e.method == AreaCentroid {
		e.weights[0] = 0.5
		e.weights[len(e.weights)-1] = 0.5
	}
	e.grid = make([][]float64, len(out.Sets))
	for j, s := range out.Sets {
		row := make([]float64, len(e.samples))
		for i, x := range e.samples {
			row[i] = s.Shape.Degree(x)
		}
		e.grid[j] = row
	}
	return e, nil
}

// Infer returns the defuzzified output for the given input values, keyed by
// input variable name.
func (e *Engine) Infer(inputs map[string]float64) (float64, error) {
	res, err := e.Evaluate(inputs)
	if err != nil {
		return 0, err
	}
	return res.Output, nil
}

// Evaluate runs fuzzification, rule firing, max aggregation and centroid
// defuzzification. It returns ErrNoRuleFired when the aggregated output set
// is empty.
func (e *Engine) Evaluate(inputs map[string]float64) (Result, error) {
	degrees := make(map[string]map[string]float64, len(e.inputs))
	for i := range e.inputs {
		v := &e.inputs[i]
		x, ok := inputs[v.Name]
		if !ok {
			return Result{}, fmt.Errorf("evaluate %q: %w", v.Name, ErrMissingInput)
		}
		degrees[v.Name] = fuzzify(v, x)
	}

	res := Result{Activation: make(map[string]float64, len(e.output.Sets))}
	for _, r := range e.rules {
		strength := 1.0
		for _, t := range r.If {
			strength = math.Min(strength, degrees[t.Variable][t.Set])
			if strength == 0 {
				break
			}
		}
		if strength <= 0 {
			continue
		}
		res.Firing = append(res.Firing, RuleFiring{Rule: r.Name, Then: r.Then.Set, Strength: strength})
		if strength > res.Activation[r.Then.Set] {
			res.Activation[r.Then.Set] = strength
		}
	}
	if len(res.Firing) == 0 {
		return res, ErrNoRuleFired
	}

	out, err := e.defuzzify(res.Activation)
	if err != nil {
		return res, err
	}
	res.Output = out
	return res, nil
}

func (e *Engine) defuzzify(activation map[string]float64) (float64, error) {
	level := make([]float64, len(e.output.Sets))
	for j, s := range e.output.Sets {
		level[j] = activation[s.Name]
	}

	var num, den float64
	for i, x := range e.samples {
		mu := 0.0
		for j, a := range level {
			if a == 0 {
				continue
			}
			mu = math.Max(mu, math.Min(a, e.grid[j][i]))
		}
		num += e.weights[i] * x * mu
		den += e.weights[i] * mu
	}
	if den == 0 {
		return 0, fmt.Errorf("defuzzify %q: %w", e.output.Name, ErrNoRuleFired)
	}

	// Rounding in the weighted mean can step an ulp past the universe.
	c := num / den
	return math.Max(e.output.Universe.Min, math.Min(e.output.Universe.Max, c)), nil
}

// Output returns a copy of the output variable.
func (e *Engine) Output() Variable {
	return e.output.clone()
}

// Inputs returns copies of the input variables.
func (e *Engine) Inputs() []Variable {
	out := make([]Variable, len(e.inputs))
	for i, v := range e.inputs {
		out[i] = v.clone()
	}
	return out
}

// Rules returns copies of the rules the engine evaluates.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.clone()
	}
	return out
}

// Method returns the defuzzification method in use.
func (e *Engine) Method() Method {
	return e.method
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
