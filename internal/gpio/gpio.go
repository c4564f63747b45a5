// Package gpio drives the indicator outputs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Writer drives the two indicator outputs.
type Writer interface {
	// Set drives the home pin to home and the away pin to its complement.
	Set(home bool) error

	// Close releases GPIO resources.
	Close() error
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
