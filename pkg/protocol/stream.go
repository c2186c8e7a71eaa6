package protocol

import (
	"errors"
	"io"

	"github.com/eapache/queue"
)

// StreamPrefixSize is the size of the length prefix in a capture stream.
const StreamPrefixSize = 2

// DefaultStreamCapacity is the default limit on bytes buffered by a Reassembler.
const DefaultStreamCapacity = 1 << 17

// WriteStreamFrame writes frame to w preceded by its uint16 big-endian length.
func WriteStreamFrame(w io.Writer, frame []byte) error {
	if len(frame) == 0 {
		return ErrZeroLengthFrame
	}
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	e := NewEncoderWithCap(StreamPrefixSize + len(frame))
	e.WriteUint16(uint16(len(frame)))
	e.WriteBytes(frame)
	_, err := w.Write(e.Bytes())
	return err
}

// Reassembler rebuilds length-prefixed frames from arbitrarily chunked input.
//
// Pending chunks are kept in a ring queue and only copied once a whole frame
// is available. A Reassembler is not safe for concurrent use.
type Reassembler struct {
	chunks   *queue.Queue
	head     int // read position inside the first chunk
	buffered int
	capacity int
}

// NewReassembler creates a reassembler that buffers at most capacity bytes.
// A capacity of zero or less selects DefaultStreamCapacity.
func NewReassembler(capacity int) *Reassembler {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	return &Reassembler{
		chunks:   queue.New(),
		capacity: capacity,
	}
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *Reassembler) Buffered() int {
	return r.buffered
}

// Reset discards all pending input.
func (r *Reassembler) Reset() {
	r.chunks = queue.New()
	r.head = 0
	r.buffered = 0
}

// Feed adds a chunk and returns every frame it completes, in stream order.
// The chunk is copied; the caller may reuse it.
//
// On error the pending input is discarded, along with any frames completed
// by this chunk.
func (r *Reassembler) Feed(chunk []byte) ([][]byte, error) {
	if len(chunk) > 0 {
		r.chunks.Add(append([]byte(nil), chunk...))
		r.buffered += len(chunk)
	}

	var frames [][]byte
	for r.buffered >= StreamPrefixSize {
		n := int(r.peek(0))<<8 | int(r.peek(1))
		if n == 0 {
			r.Reset()
			return nil, ErrZeroLengthFrame
		}
		if r.buffered < StreamPrefixSize+n {
			break
		}
		r.take(StreamPrefixSize)
		frames = append(frames, r.take(n))
	}

	if r.buffered > r.capacity {
		r.Reset()
		return nil, ErrStreamOverflow
	}
	return frames, nil
}

// peek returns the i-th pending byte.
func (r *Reassembler) peek(i int) byte {
	i += r.head
	for k := 0; k < r.chunks.Length(); k++ {
		c := r.chunks.Get(k).([]byte)
		if i < len(c) {
			return c[i]
		}
		i -= len(c)
	}
	return 0
}

// take removes and returns the next n pending bytes. n must not exceed Buffered.
func (r *Reassembler) take(n int) []byte {
	out := make([]byte, 0, n)
	r.buffered -= n
	for n > 0 {
		c := r.chunks.Peek().([]byte)[r.head:]
		if len(c) <= n {
			out = append(out, c...)
			n -= len(c)
			r.chunks.Remove()
			r.head = 0
			continue
		}
		out = append(out, c[:n]...)
		r.head += n
		n = 0
	}
	return out
}

// ReadStream reads a capture stream from rd until EOF, calling fn for every
// frame. It stops at the first error from the reader, the reassembler or fn.
// A stream that ends inside a frame returns io.ErrUnexpectedEOF.
func ReadStream(rd io.Reader, fn func(frame []byte) error) error {
	r := NewReassembler(0)
	buf := make([]byte, 4096)
	for {
		n, err := rd.Read(buf)
		if n > 0 {
			frames, ferr := r.Feed(buf[:n])
			if ferr != nil {
				return ferr
			}
			for _, f := range frames {
				if err := fn(f); err != nil {
					return err
				}
			}
		}
		if errors.Is(err, io.EOF) {
			if r.Buffered() > 0 {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}
