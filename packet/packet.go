package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrSizeMismatch = errors.New("payload size mismatch")
	ErrTruncated    = errors.New("buffer too small")
)

// Header sizes in bytes. Simple shapes carry only the timestamp; extended
// shapes add start (i64) and rate (i32).
const (
	simpleHeaderSize   = 8
	extendedHeaderSize = 8 + 8 + 4
)

// Packet is one timestamped message. StartNS and Rate are populated only for
// extended shapes and are ignored by simple-shape encoding.
type Packet struct {
	TimestampNS uint64
	StartNS     int64
	Rate        int32
	Payload     []byte
}

// Shape describes one fixed packet layout. Shapes are immutable after
// construction and safe to share; two shapes with the same parameters encode
// and decode interchangeably.
type Shape struct {
	Name        string
	PayloadSize int
	Extended    bool
}

// HeaderSize returns the wire header length for this shape.
func (s Shape) HeaderSize() int {
	if s.Extended {
		return extendedHeaderSize
	}
	return simpleHeaderSize
}

// WireSize returns the exact encoded length: header plus declared payload.
func (s Shape) WireSize() int {
	return s.HeaderSize() + s.PayloadSize
}

// Zero returns a packet with an all-zero payload of the declared size.
func (s Shape) Zero() Packet {
	return Packet{Payload: make([]byte, s.PayloadSize)}
}

// Encode serializes p into a fresh buffer. The payload must be exactly the
// declared size; anything else is a caller bug and fails with
// ErrSizeMismatch instead of being silently padded or truncated.
func (s Shape) Encode(p Packet) ([]byte, error) {
	if len(p.Payload) != s.PayloadSize {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", s.Name, ErrSizeMismatch, len(p.Payload), s.PayloadSize)
	}
	buf := make([]byte, s.WireSize())
	binary.BigEndian.PutUint64(buf[0:8], p.TimestampNS)
	off := simpleHeaderSize
	if s.Extended {
		binary.BigEndian.PutUint64(buf[8:16], uint64(p.StartNS))
		binary.BigEndian.PutUint32(buf[16:20], uint32(p.Rate))
		off = extendedHeaderSize
	}
	copy(buf[off:], p.Payload)
	return buf, nil
}

// Decode parses data into a packet. The buffer must hold at least
// WireSize() bytes; trailing bytes beyond that are ignored, so an
// over-allocated delivery buffer decodes cleanly. The payload is copied out
// of data, never aliased.
func (s Shape) Decode(data []byte) (Packet, error) {
	if len(data) < s.WireSize() {
		return Packet{}, fmt.Errorf("%s: %w: got %d, want %d", s.Name, ErrTruncated, len(data), s.WireSize())
	}
	p := Packet{TimestampNS: binary.BigEndian.Uint64(data[0:8])}
	off := simpleHeaderSize
	if s.Extended {
		p.StartNS = int64(binary.BigEndian.Uint64(data[8:16]))
		p.Rate = int32(binary.BigEndian.Uint32(data[16:20]))
		off = extendedHeaderSize
	}
	p.Payload = make([]byte, s.PayloadSize)
	copy(p.Payload, data[off:off+s.PayloadSize])
	return p, nil
}
