package config

import (
	"fmt"
	"sort"

	"github.com/sweeney/fuzzy-hvac/internal/fuzzy"
)

// Build constructs a new registry and rule base from the variable and rule
// sections. Any malformed definition yields a *fuzzy.ConfigurationError.
func (f *File) Build() (*fuzzy.Registry, *fuzzy.RuleBase, error) {
	reg := fuzzy.NewRegistry()
	var outputName string

	for _, cv := range f.Variables {
		v, err := cv.variable()
		if err != nil {
			return nil, nil, err
		}
		switch cv.Role {
		case RoleInput:
			err = reg.AddInput(v)
		case RoleOutput:
			err = reg.AddOutput(v)
			outputName = v.Name
		default:
			err = &fuzzy.ConfigurationError{
				Subject: fmt.Sprintf("variable %q", cv.Name),
				Reason:  fmt.Sprintf("role %q is neither %q nor %q", cv.Role, RoleInput, RoleOutput),
			}
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if outputName == "" {
		return nil, nil, &fuzzy.ConfigurationError{Subject: "variables", Reason: "no output variable"}
	}

	rb := fuzzy.NewRuleBase(reg)
	for _, cr := range f.Rules {
		if err := rb.AddRule(cr.rule(outputName)); err != nil {
			return nil, nil, err
		}
	}
	return reg, rb, nil
}

// Engine builds the registry, rule base and an engine using the configured
// defuzzification method.
func (f *File) Engine() (*fuzzy.Engine, *fuzzy.Registry, error) {
	reg, rb, err := f.Build()
	if err != nil {
		return nil, nil, err
	}
	e, err := fuzzy.NewEngine(reg, rb, fuzzy.WithMethod(f.Method()))
	if err != nil {
		return nil, nil, err
	}
	return e, reg, nil
}

func (cv Variable) variable() (fuzzy.Variable, error) {
	v := fuzzy.Variable{
		Name:     cv.Name,
		Universe: fuzzy.Universe{Min: cv.Min, Max: cv.Max, Step: cv.Step},
		Sets:     make([]fuzzy.Set, 0, len(cv.Sets)),
	}
	for _, cs := range cv.Sets {
		shape, err := fuzzy.NewShape(fuzzy.ShapeKind(cs.Shape), cs.Points)
		if err != nil {
			return fuzzy.Variable{}, &fuzzy.ConfigurationError{
				Subject: fmt.Sprintf("variable %q", cv.Name),
				Reason:  fmt.Sprintf("set %q: %v", cs.Name, err),
			}
		}
		v.Sets = append(v.Sets, fuzzy.Set{Name: cs.Name, Shape: shape})
	}
	return v, nil
}

// rule converts the unordered "when" table into terms sorted by variable
// name, so the same file always yields the same rule.
func (cr Rule) rule(output string) fuzzy.Rule {
	vars := make([]string, 0, len(cr.When))
	for v := range cr.When {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	r := fuzzy.Rule{
		Name: cr.Name,
		If:   make([]fuzzy.Term, len(vars)),
		Then: fuzzy.Term{Variable: output, Set: cr.Then},
	}
	for i, v := range vars {
		r.If[i] = fuzzy.Term{Variable: v, Set: cr.When[v]}
	}
	return r
}
