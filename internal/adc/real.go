//go:build linux

package adc

import (
	"fmt"
	"sync"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// RealReader reads an MCP3008 on SPI0 using the Raspberry Pi's memory-mapped peripherals.
type RealReader struct {
	mu     sync.Mutex
	inputs Inputs
}

// NewRealReader opens SPI0, selects chipSelect and sets the bus speed.
func NewRealReader(chipSelect uint8, speedHz int, inputs Inputs) (*RealReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return nil, fmt.Errorf("begin spi0: %w", err)
	}
	rpio.SpiChipSelect(chipSelect)
	rpio.SpiSpeed(speedHz)

	return &RealReader{inputs: inputs}, nil
}

// Read performs one single-ended conversion on the input mapped to ch.
func (r *RealReader) Read(ch Channel) (uint16, error) {
	input, ok := r.inputs[ch]
	if !ok {
		return 0, fmt.Errorf("read %s: %w", ch, ErrUnknownChannel)
	}

	buf := mcp3008Request(input)
	r.mu.Lock()
	rpio.SpiExchange(buf)
	r.mu.Unlock()

	return scale10(mcp3008Value(buf)), nil
}

// Close ends SPI and unmaps the peripherals.
func (r *RealReader) Close() error {
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
