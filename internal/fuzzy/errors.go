package fuzzy

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRuleFired is returned when no rule has positive firing strength
	// for an input, so the aggregated output set is empty.
	ErrNoRuleFired = errors.New("no rule fired")

	// ErrUnknownVariable is returned when a lookup names a variable that
	// was never registered.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrMissingInput is returned when an inference call lacks a value for
	// a registered input variable.
	ErrMissingInput = errors.New("missing input")
)

// ConfigurationError reports a malformed variable or rule definition.
// It is raised while the registry and rule base are being built and is
// fatal to startup.
type ConfigurationError struct {
	Subject string // e.g. `variable "temperature_error"` or `rule "rule5"`
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Subject, e.Reason)
}

func configErrorf(subject, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
