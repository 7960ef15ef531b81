package frame

import (
	"context"
)

// Frame is one rendered raster image for one discrete time step. Frames are
// immutable once produced; Data must not be modified after handoff.
type Frame struct {
	// Index is the 0-based position within the encode session. Sources must
	// produce strictly increasing, gapless indices.
	Index int
	// Width and Height are in pixels. Zero when the source does not decode
	// image headers (the transcoder derives dimensions from the payload).
	Width  int
	Height int
	// Encoding names the payload encoding, e.g. "jpeg" or "png".
	Encoding string
	// Data is the still-image payload streamed to the transcoder.
	Data []byte
}

// Source produces a lazy, ordered, finite sequence of frames. Next returns
// io.EOF after the final frame. Sources are not restartable; replaying a
// sequence requires a fresh renderer invocation.
//
// Next may perform rendering work on each call, so per-frame latency is not
// constant.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
}
