package protocol

// Encoder is a binary encoder that appends data to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoderWithCap creates an encoder sized for a frame of cap bytes.
func NewEncoderWithCap(cap int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, cap),
	}
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next Write call.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// WriteByte appends a single byte. It cannot fail and so does not
// satisfy io.ByteWriter.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteText appends the bytes of s with no length prefix.
// Text always runs to the end of the frame.
func (e *Encoder) WriteText(s string) {
	e.buf = append(e.buf, s...)
}

// WriteUint16 appends a uint16 in big-endian byte order.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// WriteCompactID appends the 4-byte participant id field, setting only as
// many trailing bytes as the id needs: one for ids up to 255, two up to
// 65535, all four beyond. Leading bytes are zero padding, so the result is
// always readable as a big-endian uint32.
func (e *Encoder) WriteCompactID(id uint32) {
	var field [4]byte
	for i := 0; i < CompactIDWidth(id); i++ {
		field[3-i] = byte(id >> (8 * i))
	}
	e.buf = append(e.buf, field[:]...)
}

// WriteHeader appends the reserved byte, the compact participant id and the tag.
func (e *Encoder) WriteHeader(id uint32, tag Tag) {
	e.WriteByte(0)
	e.WriteCompactID(id)
	e.WriteByte(byte(tag))
}

// CompactIDWidth returns how many trailing bytes of the id field are used.
func CompactIDWidth(id uint32) int {
	switch {
	case id <= 0xFF:
		return 1
	case id <= 0xFFFF:
		return 2
	default:
		return 4
	}
}
