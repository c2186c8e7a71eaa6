package relay

import "errors"

var (
	// ErrHubClosed is returned when the hub's Run loop has exited.
	ErrHubClosed = errors.New("relay: hub closed")

	// ErrNoID is the drop reason for edits from a connection that has not
	// sent Init.
	ErrNoID = errors.New("relay: connection has no participant id")

	// ErrIDHeld is the drop reason for an Init from a connection whose
	// previous message is not Done.
	ErrIDHeld = errors.New("relay: participant id already held")

	// ErrSlowConsumer is the close reason for a connection whose send queue
	// is full.
	ErrSlowConsumer = errors.New("relay: send queue full")

	// ErrTopicTooLong is returned by SetTopic when the topic does not fit
	// in one frame.
	ErrTopicTooLong = errors.New("relay: topic too long")
)
