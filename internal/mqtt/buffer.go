package mqtt

import "log"

// pendingMsg is a serialized system message waiting for a connection.
type pendingMsg struct {
	payload  []byte
	retained bool
}

// outbox is a fixed-capacity FIFO of messages published while the broker
// was unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use; caller must synchronize.
type outbox struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // messages lost since the last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{buf: make([]pendingMsg, capacity)}
}

func (o *outbox) push(msg pendingMsg) {
	capacity := len(o.buf)
	if o.count == capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", capacity)
		}
		o.dropped++
		o.buf[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// drain returns queued messages oldest first and the number dropped since
// the previous drain, then empties the outbox.
func (o *outbox) drain() ([]pendingMsg, int) {
	dropped := o.dropped
	o.dropped = 0
	if o.count == 0 {
		return nil, dropped
	}

	capacity := len(o.buf)
	out := make([]pendingMsg, o.count)
	start := (o.head - o.count + capacity) % capacity
	for i := range out {
		out[i] = o.buf[(start+i)%capacity]
		o.buf[(start+i)%capacity] = pendingMsg{}
	}
	o.count = 0
	o.head = 0
	return out, dropped
}

func (o *outbox) len() int {
	return o.count
}
