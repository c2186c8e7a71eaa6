package protocol

// Frame layout offsets.
//
// Wire format (big-endian, one frame per transport message, no length prefix):
//
//	┌──────────┬───────────────────────┬─────────┬──────────────────────────────┐
//	│ Reserved │ Participant ID        │ Tag     │ Payload (kind-specific)      │
//	│ (1 byte) │ (4 bytes, uint32 BE)  │ (1 byte)│                              │
//	└──────────┴───────────────────────┴─────────┴──────────────────────────────┘
//
// Payloads:
//
//	SetTopic  [6..]   topic text
//	Init      [6]     echo flag, [7] color, [8..] name
//	Done      -
//	Append    [6..7]  uint16 BE offset, [8..] text
//	Delete    [6..7]  uint16 BE offset (1-based)
const (
	OffsetReserved = 0
	OffsetID       = 1
	OffsetTag      = 5
	OffsetPayload  = 6
	OffsetColor    = 7
	OffsetBody     = 8

	// HeaderSize is the size of the reserved byte, participant id and tag.
	HeaderSize = 6

	// MaxFrameSize is the largest frame the capture stream can carry.
	MaxFrameSize = 65535
)

// Tag identifies the kind of a frame.
type Tag uint8

const (
	TagSetTopic Tag = 0 // Replace the shared topic
	TagPong     Tag = 1 // Heartbeat reply
	TagInit     Tag = 2 // Create a participant message
	TagDone     Tag = 3 // Deactivate a participant message
	TagAppend   Tag = 4 // Insert text into a message
	TagDelete   Tag = 5 // Remove one character from a message
)

// TagPing is the client-side ping tag. It shares its value with TagSetTopic:
// the relay answers a client ping with a Pong and greets new connections
// with a SetTopic.
const TagPing = TagSetTopic

// String returns the string representation of the tag.
func (t Tag) String() string {
	switch t {
	case TagSetTopic:
		return "SetTopic"
	case TagPong:
		return "Pong"
	case TagInit:
		return "Init"
	case TagDone:
		return "Done"
	case TagAppend:
		return "Append"
	case TagDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Known reports whether the tag has a defined meaning.
func (t Tag) Known() bool {
	return t <= TagDelete
}

// MinFrameSize returns the minimum length of a frame carrying the tag.
// Unknown tags only need the header.
func MinFrameSize(t Tag) int {
	switch t {
	case TagInit, TagAppend, TagDelete:
		return OffsetBody
	default:
		return HeaderSize
	}
}

// PeekTag returns the tag of a frame without decoding it.
func PeekTag(frame []byte) (Tag, bool) {
	if len(frame) < HeaderSize {
		return 0, false
	}
	return Tag(frame[OffsetTag]), true
}
