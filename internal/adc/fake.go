package adc

import (
	"fmt"
	"sync"
)

// FakeReader is a test double that returns scripted samples per channel.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted values per channel.
	// Each Read consumes the next value; the last value repeats.
	Samples map[Channel][]uint16

	// Errors, if set for a channel, is returned by Read for that channel.
	Errors map[Channel]error

	// Reads counts Read calls per channel.
	Reads map[Channel]int

	// Closed tracks if Close was called
	Closed bool

	index map[Channel]int
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples map[Channel][]uint16) *FakeReader {
	if samples == nil {
		samples = map[Channel][]uint16{}
	}
	return &FakeReader{
		Samples: samples,
		Errors:  map[Channel]error{},
		Reads:   map[Channel]int{},
		index:   map[Channel]int{},
	}
}

// Read returns the next scripted sample for ch.
func (f *FakeReader) Read(ch Channel) (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads[ch]++
	if err := f.Errors[ch]; err != nil {
		return 0, err
	}

	samples := f.Samples[ch]
	if len(samples) == 0 {
		return 0, fmt.Errorf("read %s: %w", ch, ErrUnknownChannel)
	}

	i := f.index[ch]
	if i < len(samples)-1 {
		f.index[ch] = i + 1
	}
	return samples[i], nil
}

// Set replaces the script for ch and rewinds it.
func (f *FakeReader) Set(ch Channel, samples ...uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples[ch] = samples
	f.index[ch] = 0
}

// Fail makes every Read of ch return err; nil clears it.
func (f *FakeReader) Fail(ch Channel, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[ch] = err
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
