package orchestration

import "fmt"

// OverflowPolicy decides what a full mailbox does with a new reply.
type OverflowPolicy string

const (
	// DropOldest evicts the oldest queued reply. With capacity 1 this keeps
	// only the latest thing the user said.
	DropOldest OverflowPolicy = "drop_oldest"
	// RejectNewest keeps the queue and discards the incoming reply.
	RejectNewest OverflowPolicy = "reject"
)

// ParseOverflowPolicy maps a configuration value to a policy.
func ParseOverflowPolicy(raw string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(raw); p {
	case DropOldest, RejectNewest:
		return p, nil
	case "":
		return DropOldest, nil
	default:
		return "", fmt.Errorf("unknown mailbox policy %q", raw)
	}
}

// Reply is one queued user message. Recorded is set once the message is in
// the transcript, so a retried turn does not log it twice.
type Reply struct {
	Text     string `json:"text"`
	Recorded bool   `json:"recorded,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
}

// Mailbox buffers user replies between turns. It is only touched from
// workflow coroutines, which never run in parallel, so it has no lock.
type Mailbox struct {
	capacity int
	policy   OverflowPolicy
	items    []Reply
	dropped  int
}

func NewMailbox(capacity int, policy OverflowPolicy, pending []Reply) *Mailbox {
	if capacity < 1 {
		capacity = 1
	}
	if policy == "" {
		policy = DropOldest
	}
	m := &Mailbox{capacity: capacity, policy: policy}
	for _, r := range pending {
		m.Push(r)
	}
	return m
}

// Push enqueues a reply and reports whether a reply was discarded.
func (m *Mailbox) Push(r Reply) bool {
	if len(m.items) < m.capacity {
		m.items = append(m.items, r)
		return false
	}
	m.dropped++
	if m.policy == RejectNewest {
		return true
	}
	m.items = append(m.items[1:], r)
	return true
}

// Requeue puts a reply back at the head of the queue. On overflow the same
// policy applies: DropOldest discards the requeued reply itself, RejectNewest
// discards the newest queued one.
func (m *Mailbox) Requeue(r Reply) bool {
	if len(m.items) < m.capacity {
		m.items = append([]Reply{r}, m.items...)
		return false
	}
	m.dropped++
	if m.policy == DropOldest {
		return true
	}
	m.items = append([]Reply{r}, m.items[:len(m.items)-1]...)
	return true
}

// Take removes and returns the oldest reply.
func (m *Mailbox) Take() (Reply, bool) {
	if len(m.items) == 0 {
		return Reply{}, false
	}
	r := m.items[0]
	m.items = m.items[1:]
	return r, true
}

func (m *Mailbox) Len() int { return len(m.items) }

// Dropped counts replies discarded since the mailbox was created.
func (m *Mailbox) Dropped() int { return m.dropped }

func (m *Mailbox) Clear() { m.items = nil }

// Pending returns a copy of the queued replies, oldest first.
func (m *Mailbox) Pending() []Reply {
	out := make([]Reply, len(m.items))
	copy(out, m.items)
	return out
}
