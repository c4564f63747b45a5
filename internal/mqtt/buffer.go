package mqtt

// message is a serialized publish waiting for the broker.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable. It has
// fixed capacity; when full, the oldest message is dropped.
// Not safe for concurrent use.
type outbox struct {
	msgs    []message
	start   int // index of the oldest message
	n       int
	dropped int // since last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		panic("mqtt: outbox capacity must be at least 1")
	}
	return &outbox{msgs: make([]message, capacity)}
}

// add queues m and reports whether an older message was dropped to make room.
func (o *outbox) add(m message) bool {
	if o.n == len(o.msgs) {
		o.msgs[o.start] = m
		o.start = (o.start + 1) % len(o.msgs)
		o.dropped++
		return true
	}
	o.msgs[(o.start+o.n)%len(o.msgs)] = m
	o.n++
	return false
}

// drain returns the queued messages oldest first, the number dropped since
// the previous drain, and empties the outbox.
func (o *outbox) drain() ([]message, int) {
	dropped := o.dropped
	o.dropped = 0
	if o.n == 0 {
		return nil, dropped
	}

	out := make([]message, o.n)
	for i := range out {
		out[i] = o.msgs[(o.start+i)%len(o.msgs)]
	}
	o.start, o.n = 0, 0
	return out, dropped
}

func (o *outbox) len() int {
	return o.n
}
