package frame

import (
	"context"
	"io"
)

// MemorySource serves pre-built payloads from memory. Used by tests and by
// renderers that hand over already-encoded stills.
type MemorySource struct {
	encoding string
	payloads [][]byte
	next     int
}

// NewMemorySource builds a source over the given payloads in order.
func NewMemorySource(encoding string, payloads ...[]byte) *MemorySource {
	return &MemorySource{encoding: encoding, payloads: payloads}
}

// Len returns the total number of frames.
func (s *MemorySource) Len() int {
	return len(s.payloads)
}

// Next returns the next payload as a frame. Returns io.EOF after the last.
func (s *MemorySource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.payloads) {
		return nil, io.EOF
	}
	f := &Frame{
		Index:    s.next,
		Encoding: s.encoding,
		Data:     s.payloads[s.next],
	}
	s.next++
	return f, nil
}
