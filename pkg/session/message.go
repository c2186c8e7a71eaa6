package session

import "github.com/samber/lo"

// DefaultTopic is the topic of a new session until the first SetTopic.
const DefaultTopic = "loading..."

// Message is one participant's message.
type Message struct {
	ID     uint32
	Color  uint8
	Name   string
	Text   string
	Active bool // False once the participant is done; never reverts
	Mine   bool // The relay echoed this message back to its author
}

// Snapshot is the complete session state at one point in time.
//
// A published snapshot is never modified. Callers must treat Messages as
// read-only; the slice may be shared with later snapshots.
type Snapshot struct {
	Topic    string
	Messages []Message
}

// Len returns the number of messages, active or not.
func (s Snapshot) Len() int {
	return len(s.Messages)
}

// Message returns the message with the given id.
func (s Snapshot) Message(id uint32) (Message, bool) {
	m, _, ok := lo.FindIndexOf(s.Messages, func(m Message) bool { return m.ID == id })
	return m, ok
}

// Active returns the messages that are still being typed.
func (s Snapshot) Active() []Message {
	return lo.Filter(s.Messages, func(m Message, _ int) bool { return m.Active })
}

func (s Snapshot) index(id uint32) int {
	_, i, _ := lo.FindIndexOf(s.Messages, func(m Message) bool { return m.ID == id })
	return i
}

// replace returns a copy of msgs with the element at i set to m.
func replace(msgs []Message, i int, m Message) []Message {
	next := make([]Message, len(msgs))
	copy(next, msgs)
	next[i] = m
	return next
}
