// Package adc provides analog sensor reads with hardware abstraction.
// The real implementation talks to an MCP3008 over SPI.
// The fake implementation allows testing without hardware.
package adc

import "errors"

// ErrUnknownChannel is returned when reading a channel the reader was not configured with.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel names one of the monitored sensor inputs.
type Channel string

const (
	Light       Channel = "light"
	Temperature Channel = "temperature"
	Motion      Channel = "motion"
)

// Channels lists every sensor channel in sampling order.
var Channels = []Channel{Light, Temperature, Motion}

// Reader reads raw analog samples.
type Reader interface {
	// Read returns the raw sample for ch, scaled to 0-65535.
	Read(ch Channel) (uint16, error)

	// Close releases ADC resources.
	Close() error
}

// Inputs maps sensor channels to converter inputs (0-7).
type Inputs map[Channel]uint8

// mcp3008Request builds the 3-byte single-ended conversion request for input.
func mcp3008Request(input uint8) []byte {
	return []byte{0x01, 0x80 | (input&0x07)<<4, 0x00}
}

// mcp3008Value extracts the 10-bit result from a completed exchange.
func mcp3008Value(buf []byte) uint16 {
	return uint16(buf[1]&0x03)<<8 | uint16(buf[2])
}

// scale10 stretches a 10-bit conversion to the full 16-bit range, replicating
// the high bits into the low bits so 0 maps to 0 and 1023 maps to 65535.
func scale10(v uint16) uint16 {
	v &= 0x3ff
	return v<<6 | v>>4
}
