package gpio

import "sync"

// FakeWriter is a test double that records output levels.
type FakeWriter struct {
	mu sync.Mutex

	// HomeLevel and AwayLevel are the current pin levels (0 or 1).
	HomeLevel int
	AwayLevel int

	// History records every Set argument in order.
	History []bool

	// SetError, if set, will be returned by Set() without changing levels.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeWriter creates a FakeWriter showing Away.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{AwayLevel: 1}
}

// Set records the requested state.
func (f *FakeWriter) Set(home bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.History = append(f.History, home)
	f.HomeLevel = level(home)
	f.AwayLevel = level(!home)
	return nil
}

// Levels returns the current (home, away) pin levels.
func (f *FakeWriter) Levels() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HomeLevel, f.AwayLevel
}

// Close turns both outputs off and marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HomeLevel = 0
	f.AwayLevel = 0
	f.Closed = true
	return nil
}
