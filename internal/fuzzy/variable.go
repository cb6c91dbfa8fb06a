package fuzzy

import (
	"fmt"
	"math"
)

// Universe is the numeric range of a linguistic variable and the step used
// to discretize it for defuzzification.
type Universe struct {
	Min  float64
	Max  float64
	Step float64
}

// Validate checks that the universe is finite, non-empty and has at least
// two samples.
func (u Universe) Validate() error {
	for _, v := range []float64{u.Min, u.Max, u.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("universe [%g, %g] step %g is not finite", u.Min, u.Max, u.Step)
		}
	}
	if u.Min >= u.Max {
		return fmt.Errorf("universe min %g must be below max %g", u.Min, u.Max)
	}
	if u.Step <= 0 || u.Step > u.Max-u.Min {
		return fmt.Errorf("universe step %g must be in (0, %g]", u.Step, u.Max-u.Min)
	}
	return nil
}

// Contains reports whether x lies inside [Min, Max].
func (u Universe) Contains(x float64) bool {
	return x >= u.Min && x <= u.Max
}

// Samples returns the discretized universe Min, Min+Step, ... up to Max.
// Each point is computed from its index so the grid does not drift.
func (u Universe) Samples() []float64 {
	n := int(math.Floor((u.Max-u.Min)/u.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = u.Min + float64(i)*u.Step
	}
	return out
}

// Set is a named fuzzy set on a variable.
type Set struct {
	Name  string
	Shape Shape
}

// Variable is a linguistic variable: a universe plus its named fuzzy sets.
type Variable struct {
	Name     string
	Universe Universe
	Sets     []Set
}

// Set returns the named set.
func (v Variable) Set(name string) (Set, bool) {
	for _, s := range v.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return Set{}, false
}

// SetNames returns set names in declaration order.
func (v Variable) SetNames() []string {
	names := make([]string, len(v.Sets))
	for i, s := range v.Sets {
		names[i] = s.Name
	}
	return names
}

func (v Variable) clone() Variable {
	v.Sets = append([]Set(nil), v.Sets...)
	return v
}

// Registry holds the input variables and the single output variable of a
// controller. Once handed to an Engine it is only read, so it may be shared
// between controllers without locking.
type Registry struct {
	inputs []Variable
	byName map[string]int
	output *Variable
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// AddInput registers an input variable.
func (r *Registry) AddInput(v Variable) error {
	if err := r.check(v); err != nil {
		return err
	}
	v = v.clone()
	r.byName[v.Name] = len(r.inputs)
	r.inputs = append(r.inputs, v)
	return nil
}

// AddOutput registers the output variable. Only one output is allowed.
func (r *Registry) AddOutput(v Variable) error {
	if r.output != nil {
		return configErrorf(fmt.Sprintf("variable %q", v.Name), "output %q already registered", r.output.Name)
	}
	if err := r.check(v); err != nil {
		return err
	}
	v = v.clone()
	r.output = &v
	return nil
}

func (r *Registry) check(v Variable) error {
	subject := fmt.Sprintf("variable %q", v.Name)
	if v.Name == "" {
		return configErrorf(subject, "name is empty")
	}
	if _, ok := r.byName[v.Name]; ok {
		return configErrorf(subject, "already registered")
	}
	if r.output != nil && r.output.Name == v.Name {
		return configErrorf(subject, "already registered")
	}
	if err := v.Universe.Validate(); err != nil {
		return configErrorf(subject, "%v", err)
	}
	if len(v.Sets) == 0 {
		return configErrorf(subject, "no fuzzy sets")
	}
	seen := make(map[string]bool, len(v.Sets))
	for _, s := range v.Sets {
		if s.Name == "" {
			return configErrorf(subject, "set with empty name")
		}
		if seen[s.Name] {
			return configErrorf(subject, "duplicate set %q", s.Name)
		}
		seen[s.Name] = true
		if err := s.Shape.Validate(); err != nil {
			return configErrorf(subject, "set %q: %v", s.Name, err)
		}
	}
	return nil
}

// Input returns a copy of the named input variable.
func (r *Registry) Input(name string) (Variable, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Variable{}, false
	}
	return r.inputs[i].clone(), true
}

// Inputs returns copies of all input variables in registration order.
func (r *Registry) Inputs() []Variable {
	out := make([]Variable, len(r.inputs))
	for i, v := range r.inputs {
		out[i] = v.clone()
	}
	return out
}

// Output returns a copy of the output variable.
func (r *Registry) Output() (Variable, bool) {
	if r.output == nil {
		return Variable{}, false
	}
	return r.output.clone(), true
}

// Variable looks up any registered variable, input or output.
func (r *Registry) Variable(name string) (Variable, bool) {
	if v, ok := r.Input(name); ok {
		return v, true
	}
	if r.output != nil && r.output.Name == name {
		return r.output.clone(), true
	}
	return Variable{}, false
}

// Fuzzify returns the degree of x in every set of the named variable.
// Sets with degree 0 are omitted; a missing key means degree 0.
func (r *Registry) Fuzzify(name string, x float64) (map[string]float64, error) {
	v, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("fuzzify %q: %w", name, ErrUnknownVariable)
	}
	return fuzzify(v, x), nil
}

func (r *Registry) lookup(name string) (*Variable, bool) {
	if i, ok := r.byName[name]; ok {
		return &r.inputs[i], true
	}
	if r.output != nil && r.output.Name == name {
		return r.output, true
	}
	return nil, false
}

func fuzzify(v *Variable, x float64) map[string]float64 {
	out := make(map[string]float64, len(v.Sets))
	for _, s := range v.Sets {
		if d := s.Shape.Degree(x); d > 0 {
			out[s.Name] = d
		}
	}
	return out
}
