package mqtt

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published while the broker is
// unreachable. The caller synchronizes access.
type ringBuffer struct {
	slots    []bufferedMsg
	capacity int
	start    int  // index of the oldest message
	n        int  // messages held
	dropping bool // a message was overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		slots:    make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push stores msg. When full it overwrites the oldest message and reports
// true for the first such overwrite after a drain.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.n < r.capacity {
		r.slots[(r.start+r.n)%r.capacity] = msg
		r.n++
		return false
	}
	r.slots[r.start] = msg
	r.start = (r.start + 1) % r.capacity
	first := !r.dropping
	r.dropping = true
	return first
}

// drainAll empties the buffer and returns its messages oldest first.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.n == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.n)
	for i := 0; i < r.n; i++ {
		j := (r.start + i) % r.capacity
		out = append(out, r.slots[j])
		r.slots[j] = bufferedMsg{}
	}
	r.start, r.n, r.dropping = 0, 0, false
	return out
}

func (r *ringBuffer) len() int {
	return r.n
}
