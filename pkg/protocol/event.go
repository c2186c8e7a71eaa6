package protocol

// Event is a decoded frame.
type Event interface {
	// Tag returns the frame tag the event was decoded from.
	Tag() Tag
}

// Addressed is implemented by events that target one participant message.
type Addressed interface {
	Event
	Participant() uint32
}

// SetTopic replaces the shared topic.
type SetTopic struct {
	Text string
}

// Pong answers a client ping.
type Pong struct{}

// Init creates a participant message.
type Init struct {
	ID    uint32
	Color uint8
	Name  string
	Echo  bool // Set on the copy the relay sends back to the author
}

// Done deactivates a participant message.
type Done struct {
	ID uint32
}

// Append inserts Text at byte Offset of a message.
type Append struct {
	ID     uint32
	Offset uint16
	Text   string
}

// Delete removes the byte immediately before Offset (1-based).
type Delete struct {
	ID     uint32
	Offset uint16
}

// Unknown is a frame whose tag has no defined meaning. Applying it is a no-op.
type Unknown struct {
	Kind Tag
	ID   uint32
}

func (SetTopic) Tag() Tag  { return TagSetTopic }
func (Pong) Tag() Tag      { return TagPong }
func (Init) Tag() Tag      { return TagInit }
func (Done) Tag() Tag      { return TagDone }
func (Append) Tag() Tag    { return TagAppend }
func (Delete) Tag() Tag    { return TagDelete }
func (u Unknown) Tag() Tag { return u.Kind }

func (e Init) Participant() uint32   { return e.ID }
func (e Done) Participant() uint32   { return e.ID }
func (e Append) Participant() uint32 { return e.ID }
func (e Delete) Participant() uint32 { return e.ID }

// EncodeSetTopic encodes a SetTopic frame. The id field is zero.
func EncodeSetTopic(text string) []byte {
	e := NewEncoderWithCap(HeaderSize + len(text))
	e.WriteHeader(0, TagSetTopic)
	e.WriteText(text)
	return e.Bytes()
}

// EncodePong encodes a Pong frame.
func EncodePong() []byte {
	e := NewEncoderWithCap(HeaderSize)
	e.WriteHeader(0, TagPong)
	return e.Bytes()
}

// EncodeInit encodes an Init frame.
func EncodeInit(id uint32, color uint8, name string, echo bool) []byte {
	e := NewEncoderWithCap(OffsetBody + len(name))
	e.WriteHeader(id, TagInit)
	if echo {
		e.WriteByte(1)
	} else {
		e.WriteByte(0)
	}
	e.WriteByte(color)
	e.WriteText(name)
	return e.Bytes()
}

// EncodeDone encodes a Done frame.
func EncodeDone(id uint32) []byte {
	e := NewEncoderWithCap(HeaderSize)
	e.WriteHeader(id, TagDone)
	return e.Bytes()
}

// EncodeAppend encodes an Append frame.
func EncodeAppend(id uint32, offset uint16, text string) []byte {
	e := NewEncoderWithCap(OffsetBody + len(text))
	e.WriteHeader(id, TagAppend)
	e.WriteUint16(offset)
	e.WriteText(text)
	return e.Bytes()
}

// EncodeDelete encodes a Delete frame.
func EncodeDelete(id uint32, offset uint16) []byte {
	e := NewEncoderWithCap(OffsetBody)
	e.WriteHeader(id, TagDelete)
	e.WriteUint16(offset)
	return e.Bytes()
}

// EncodeEvent encodes any known event. Unknown events encode as a bare header.
func EncodeEvent(ev Event) []byte {
	switch ev := ev.(type) {
	case SetTopic:
		return EncodeSetTopic(ev.Text)
	case Pong:
		return EncodePong()
	case Init:
		return EncodeInit(ev.ID, ev.Color, ev.Name, ev.Echo)
	case Done:
		return EncodeDone(ev.ID)
	case Append:
		return EncodeAppend(ev.ID, ev.Offset, ev.Text)
	case Delete:
		return EncodeDelete(ev.ID, ev.Offset)
	case Unknown:
		e := NewEncoderWithCap(HeaderSize)
		e.WriteHeader(ev.ID, ev.Kind)
		return e.Bytes()
	default:
		return nil
	}
}
