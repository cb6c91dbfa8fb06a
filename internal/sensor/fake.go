package sensor

import (
	"errors"
	"sync"

	"github.com/sweeney/fuzzy-hvac/internal/control"
)

// Fake is a test double that returns scripted inputs.
type Fake struct {
	mu sync.Mutex

	// Samples contains the scripted inputs. Each call to Read consumes
	// the next sample; the last one repeats once they run out.
	Samples []control.CrispInput

	index int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool

	// Fed records every signal passed to Feed.
	Fed []control.ControlSignal
}

// NewFake creates a Fake with the given samples.
func NewFake(samples ...control.CrispInput) *Fake {
	return &Fake{Samples: samples}
}

// Read returns the next scripted sample.
func (f *Fake) Read() (control.CrispInput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return control.CrispInput{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return control.CrispInput{}, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// Feed records the applied signal.
func (f *Fake) Feed(signal control.ControlSignal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fed = append(f.Fed, signal)
}

// Signals returns a copy of the signals fed so far.
func (f *Fake) Signals() []control.ControlSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]control.ControlSignal(nil), f.Fed...)
}

// Close marks the source as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample and clears recorded state.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Closed = false
	f.Fed = nil
	f.ReadError = nil
}
