// Package protocol implements the typewire binary wire protocol.
//
// Every participant's message travels as a sequence of small edit frames
// keyed by a participant id, and one shared topic is broadcast to everybody.
// The relay sends server frames; connections send client frames, which are
// server frames without the reserved byte and id.
//
// # Wire Format
//
// Server frames are big-endian with fixed offsets, one frame per transport
// message:
//
//	┌──────────┬───────────────────────┬─────────┬──────────────────────────┐
//	│ Reserved │ Participant ID        │ Tag     │ Payload                  │
//	│ (1 byte) │ (4 bytes, uint32 BE)  │ (1 byte)│                          │
//	└──────────┴───────────────────────┴─────────┴──────────────────────────┘
//
// The reserved byte is written as zero and ignored when decoding. Encoders
// use a compact id form that only sets the trailing bytes an id needs; the
// field is always readable as a plain uint32.
//
// # Tags
//
//   - TagSetTopic (0): replace the topic
//   - TagPong (1): heartbeat reply
//   - TagInit (2): create a participant message
//   - TagDone (3): deactivate a participant message
//   - TagAppend (4): insert text at a byte offset
//   - TagDelete (5): remove the byte before a 1-based offset
//
// Unrecognized tags decode to Unknown and are ignored by consumers.
//
// # Text
//
// The protocol is ASCII. Text is copied byte for byte and offsets count
// bytes; multi-byte UTF-8 passes through unvalidated.
//
// # Capture Streams
//
// For recording, frames are written to a byte stream with a uint16 length
// prefix (WriteStreamFrame) and rebuilt from arbitrary chunks by a
// Reassembler.
package protocol
