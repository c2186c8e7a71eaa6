// Package session turns decoded protocol events into live chat state.
//
// A Session holds an immutable Snapshot: the shared topic plus every
// participant message in creation order. Each effective event publishes a
// new snapshot and notifies listeners; no-ops do not.
//
//	s := session.New()
//	stop := s.OnChange(func(snap session.Snapshot) {
//	    render(snap)
//	})
//	defer stop()
//
//	if _, err := s.ApplyFrame(frame); err != nil {
//	    // malformed frame or duplicate id; state is unchanged
//	}
//
// # Edit Rules
//
//   - SetTopic replaces the topic and always publishes.
//   - Init appends an active, empty message. A duplicate id is rejected
//     with ErrDuplicateID.
//   - Done deactivates a message. Messages are never removed.
//   - Append inserts at a byte offset, clamped to the end of the text.
//   - Delete removes the byte before a 1-based offset. Offset 0 and offsets
//     past the end are ignored.
//
// Events for ids the session has not seen are ignored, as are Pong and
// frames with unknown tags.
package session
