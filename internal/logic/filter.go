package logic

// RunningAverage is a fixed-capacity FIFO of the most recent samples and their mean.
// Not safe for concurrent use; each channel owns its own filter.
type RunningAverage struct {
	buf      []uint16
	capacity int
	head     int // next write position
	count    int
	sum      uint64
}

// NewRunningAverage creates a filter holding at most capacity samples.
// It panics if capacity is less than 1.
func NewRunningAverage(capacity int) *RunningAverage {
	if capacity < 1 {
		panic("logic: running average capacity must be at least 1")
	}
	return &RunningAverage{
		buf:      make([]uint16, capacity),
		capacity: capacity,
	}
}

// Push appends sample, evicting the oldest sample once the window is full,
// and returns the mean of the samples now held.
func (f *RunningAverage) Push(sample uint16) float64 {
	if f.count == f.capacity {
		// Overwrite oldest: head is already pointing at it
		f.sum -= uint64(f.buf[f.head])
	} else {
		f.count++
	}
	f.buf[f.head] = sample
	f.sum += uint64(sample)
	f.head = (f.head + 1) % f.capacity
	return f.Average()
}

// Average returns the mean of the held samples. It panics on an empty filter:
// the first Push seeds it.
func (f *RunningAverage) Average() float64 {
	if f.count == 0 {
		panic("logic: average of empty running average")
	}
	return float64(f.sum) / float64(f.count)
}

// Len returns the number of held samples.
func (f *RunningAverage) Len() int {
	return f.count
}

// Cap returns the window size.
func (f *RunningAverage) Cap() int {
	return f.capacity
}

// Samples returns the held samples, oldest first.
func (f *RunningAverage) Samples() []uint16 {
	out := make([]uint16, f.count)
	start := (f.head - f.count + f.capacity) % f.capacity
	for i := range out {
		out[i] = f.buf[(start+i)%f.capacity]
	}
	return out
}
