package protocol

import "io"

// Decoder reads fixed-width big-endian fields from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Skip advances the position by n bytes.
func (d *Decoder) Skip(n int) error {
	if d.pos+n > len(d.buf) {
		return io.ErrUnexpectedEOF
	}
	d.pos += n
	return nil
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadRest returns every unread byte as a string and moves to the end.
// Bytes are copied one to one; no character set conversion is applied.
func (d *Decoder) ReadRest() string {
	if d.pos >= len(d.buf) {
		return ""
	}
	s := string(d.buf[d.pos:])
	d.pos = len(d.buf)
	return s
}

// DecodeFrame decodes one complete frame into an event.
//
// The participant id is always read as the full 4-byte field at offsets 1-4,
// whichever compact form the producer used. Frames too short for their tag
// yield a *MalformedFrameError. Unrecognized tags yield Unknown and no error.
func DecodeFrame(frame []byte) (Event, error) {
	if len(frame) < HeaderSize {
		return nil, truncatedHeader(len(frame), HeaderSize)
	}

	tag := Tag(frame[OffsetTag])
	if want := MinFrameSize(tag); len(frame) < want {
		return nil, malformed(tag, len(frame), want)
	}

	// The length is at least MinFrameSize(tag) from here on, so none of the
	// fixed-offset reads below can fail and their errors are discarded.
	d := NewDecoder(frame)
	d.Skip(OffsetID) // reserved byte is not validated
	id, _ := d.ReadUint32()
	d.Skip(1) // tag

	switch tag {
	case TagSetTopic:
		return SetTopic{Text: d.ReadRest()}, nil

	case TagPong:
		return Pong{}, nil

	case TagInit:
		echo, _ := d.ReadByte()
		color, _ := d.ReadByte()
		return Init{
			ID:    id,
			Color: color,
			Name:  d.ReadRest(),
			Echo:  echo != 0,
		}, nil

	case TagDone:
		return Done{ID: id}, nil

	case TagAppend:
		offset, _ := d.ReadUint16()
		return Append{ID: id, Offset: offset, Text: d.ReadRest()}, nil

	case TagDelete:
		offset, _ := d.ReadUint16()
		return Delete{ID: id, Offset: offset}, nil

	default:
		return Unknown{Kind: tag, ID: id}, nil
	}
}
