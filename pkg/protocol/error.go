package protocol

import (
	"errors"
	"fmt"
)

// Protocol errors.
var (
	ErrMalformedFrame  = errors.New("protocol: malformed frame")
	ErrUnknownTag      = errors.New("protocol: unknown tag")
	ErrFrameTooLarge   = errors.New("protocol: frame too large")
	ErrZeroLengthFrame = errors.New("protocol: zero length frame")
	ErrStreamOverflow  = errors.New("protocol: stream backlog exceeds capacity")
)

// MalformedFrameError describes a frame that is too short for its kind.
// It matches ErrMalformedFrame with errors.Is.
type MalformedFrameError struct {
	Tag  Tag  // Tag of the frame, zero when the header itself is truncated
	Len  int  // Actual frame length
	Want int  // Minimum length for the tag
	Head bool // True when the header was incomplete
}

// Error implements the error interface.
func (e *MalformedFrameError) Error() string {
	if e.Head {
		return fmt.Sprintf("protocol: malformed frame: %d bytes, header needs %d", e.Len, e.Want)
	}
	return fmt.Sprintf("protocol: malformed %s frame: %d bytes, need %d", e.Tag, e.Len, e.Want)
}

// Is reports whether target is ErrMalformedFrame.
func (e *MalformedFrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

func malformed(tag Tag, n, want int) error {
	return &MalformedFrameError{Tag: tag, Len: n, Want: want}
}

func truncatedHeader(n, want int) error {
	return &MalformedFrameError{Len: n, Want: want, Head: true}
}
