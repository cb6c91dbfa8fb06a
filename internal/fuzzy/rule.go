package fuzzy

import (
	"fmt"
	"strings"
)

// Term names one fuzzy set on one variable, as in "temperature_error IS cold".
type Term struct {
	Variable string
	Set      string
}

func (t Term) String() string {
	return t.Variable + " IS " + t.Set
}

// Rule is a conjunction of antecedent terms implying one output set.
type Rule struct {
	Name string
	If   []Term
	Then Term
}

func (r Rule) String() string {
	parts := make([]string, len(r.If))
	for i, t := range r.If {
		parts[i] = t.String()
	}
	return "IF " + strings.Join(parts, " AND ") + " THEN " + r.Then.String()
}

func (r Rule) clone() Rule {
	r.If = append([]Term(nil), r.If...)
	return r
}

// RuleBase is an ordered, append-only collection of rules validated against
// a registry. Order carries no meaning; it is kept only for display.
type RuleBase struct {
	reg   *Registry
	rules []Rule
}

// NewRuleBase returns an empty rule base bound to reg.
func NewRuleBase(reg *Registry) *RuleBase {
	return &RuleBase{reg: reg}
}

// AddRule validates r against the registry and appends a copy of it.
func (b *RuleBase) AddRule(r Rule) error {
	name := r.Name
	if name == "" {
		name = fmt.Sprintf("#%d", len(b.rules)+1)
	}
	subject := fmt.Sprintf("rule %q", name)

	if len(r.If) == 0 {
		return configErrorf(subject, "empty antecedent")
	}
	used := make(map[string]bool, len(r.If))
	for _, t := range r.If {
		v, ok := b.reg.Input(t.Variable)
		if !ok {
			return configErrorf(subject, "antecedent references unregistered input %q", t.Variable)
		}
		if _, ok := v.Set(t.Set); !ok {
			return configErrorf(subject, "input %q has no set %q", t.Variable, t.Set)
		}
		if used[t.Variable] {
			return configErrorf(subject, "input %q appears twice", t.Variable)
		}
		used[t.Variable] = true
	}

	out, ok := b.reg.Output()
	if !ok {
		return configErrorf(subject, "no output variable registered")
	}
	if r.Then.Variable != out.Name {
		return configErrorf(subject, "consequent references %q, not the output %q", r.Then.Variable, out.Name)
	}
	if _, ok := out.Set(r.Then.Set); !ok {
		return configErrorf(subject, "output %q has no set %q", out.Name, r.Then.Set)
	}

	r = r.clone()
	r.Name = name
	b.rules = append(b.rules, r)
	return nil
}

// Rules returns copies of the rules in insertion order.
func (b *RuleBase) Rules() []Rule {
	out := make([]Rule, len(b.rules))
	for i, r := range b.rules {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of rules.
func (b *RuleBase) Len() int {
	return len(b.rules)
}

// Registry returns the registry the rules were validated against.
func (b *RuleBase) Registry() *Registry {
	return b.reg
}
