// Package sensor provides the crisp inputs of each control cycle.
// Real sensor hardware is out of scope: the daemon runs against a simulated
// room, and tests run against scripted samples.
package sensor

import "github.com/sweeney/fuzzy-hvac/internal/control"

// Source reads one control cycle's inputs.
type Source interface {
	// Read returns the current temperature error, trend and outside
	// temperature. Read errors skip the cycle; they never stop the loop.
	Read() (control.CrispInput, error)

	// Close releases the source.
	Close() error
}

// Feedback is implemented by sources that model the effect of the
// applied control signal on the room.
type Feedback interface {
	Feed(signal control.ControlSignal)
}
