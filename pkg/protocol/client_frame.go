package protocol

import "fmt"

// ClientFrame is a frame sent by a connection to the relay. It is a server
// frame without the reserved byte and participant id: [tag][payload].
// The relay owns id assignment and prepends the header with ServerFrame.
type ClientFrame struct {
	Tag    Tag
	Color  uint8
	Offset uint16
	Text   string // Init name or Append text
	Raw    []byte
}

// minClientFrameSize returns the minimum length of a client frame with tag t.
func minClientFrameSize(t Tag) int {
	switch t {
	case TagInit, TagAppend, TagDelete:
		return 3
	default:
		return 1
	}
}

// ParseClientFrame validates and decodes a client frame.
func ParseClientFrame(b []byte) (ClientFrame, error) {
	if len(b) == 0 {
		return ClientFrame{}, fmt.Errorf("%w: empty client frame", ErrMalformedFrame)
	}

	tag := Tag(b[0])
	switch tag {
	case TagPing, TagInit, TagDone, TagAppend, TagDelete:
	default:
		return ClientFrame{}, fmt.Errorf("%w: %d", ErrUnknownTag, b[0])
	}
	if want := minClientFrameSize(tag); len(b) < want {
		return ClientFrame{}, malformed(tag, len(b), want)
	}

	cf := ClientFrame{Tag: tag, Raw: b}
	d := NewDecoder(b[1:])
	switch tag {
	case TagInit:
		d.Skip(1) // echo flag, set by the relay only
		cf.Color, _ = d.ReadByte()
		cf.Text = d.ReadRest()
	case TagAppend:
		cf.Offset, _ = d.ReadUint16()
		cf.Text = d.ReadRest()
	case TagDelete:
		cf.Offset, _ = d.ReadUint16()
	}
	return cf, nil
}

// ServerFrame prepends the reserved byte and participant id to a client
// frame, producing the frame broadcast to every connection.
func ServerFrame(id uint32, client []byte) []byte {
	e := NewEncoderWithCap(OffsetTag + len(client))
	e.WriteByte(0)
	e.WriteCompactID(id)
	e.WriteBytes(client)
	return e.Bytes()
}

// EchoFrame returns a copy of an Init server frame with the echo flag set.
// Other frames are returned unchanged.
func EchoFrame(frame []byte) []byte {
	if len(frame) < OffsetBody || Tag(frame[OffsetTag]) != TagInit {
		return frame
	}
	echo := make([]byte, len(frame))
	copy(echo, frame)
	echo[OffsetPayload] = 1
	return echo
}

// ClientPing encodes a ping.
func ClientPing() []byte {
	return []byte{byte(TagPing)}
}

// ClientInit encodes a request to start a message.
func ClientInit(color uint8, name string) []byte {
	e := NewEncoderWithCap(3 + len(name))
	e.WriteByte(byte(TagInit))
	e.WriteByte(0)
	e.WriteByte(color)
	e.WriteText(name)
	return e.Bytes()
}

// ClientDone encodes a request to publish the current message.
func ClientDone() []byte {
	return []byte{byte(TagDone)}
}

// ClientAppend encodes an insertion into the current message.
func ClientAppend(offset uint16, text string) []byte {
	e := NewEncoderWithCap(3 + len(text))
	e.WriteByte(byte(TagAppend))
	e.WriteUint16(offset)
	e.WriteText(text)
	return e.Bytes()
}

// ClientDelete encodes a deletion from the current message.
func ClientDelete(offset uint16) []byte {
	e := NewEncoderWithCap(3)
	e.WriteByte(byte(TagDelete))
	e.WriteUint16(offset)
	return e.Bytes()
}
