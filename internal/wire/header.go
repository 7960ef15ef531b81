package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"framecast/internal/fault"
)

// Session header record, written once before the first chunk.
//
//	offset 0  magic   "FCST"
//	offset 4  uint16  protocol version
//	offset 6  uint16  frame rate
//	offset 8  uint32  total-frame hint (0 = unknown)
//	offset 12 uint32  reserved
const (
	HeaderSize      = 16
	ProtocolVersion = 1

	// MaxFrameRate bounds accepted frame rates.
	MaxFrameRate = 240
)

var headerMagic = [4]byte{'F', 'C', 'S', 'T'}

// Header carries the session parameters sent ahead of the frame stream.
type Header struct {
	FrameRate int
	// FrameCountHint is advisory only. A mismatch with the streamed frame
	// count is never a failure by itself.
	FrameCountHint int
}

// EncodeHeader serializes the session header record.
func EncodeHeader(h Header) ([]byte, error) {
	if h.FrameRate <= 0 || h.FrameRate > MaxFrameRate {
		return nil, fault.Wrap(fault.ErrMalformedFrame, "wire", "encode header",
			fmt.Sprintf("frame rate %d outside 1..%d", h.FrameRate, MaxFrameRate), nil)
	}
	if h.FrameCountHint < 0 {
		return nil, fault.Wrap(fault.ErrMalformedFrame, "wire", "encode header", "negative frame count hint", nil)
	}

	buf := make([]byte, HeaderSize)
	copy(buf[0:4], headerMagic[:])
	binary.BigEndian.PutUint16(buf[4:6], ProtocolVersion)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.FrameRate))
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.FrameCountHint))
	return buf, nil
}

// ReadHeader consumes and validates one session header record from r.
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fault.Wrap(fault.ErrConnection, "wire", "read header", "", err)
	}
	if !bytes.Equal(buf[0:4], headerMagic[:]) {
		return Header{}, fault.Wrap(fault.ErrMalformedFrame, "wire", "read header", "bad magic", nil)
	}
	if version := binary.BigEndian.Uint16(buf[4:6]); version != ProtocolVersion {
		return Header{}, fault.Wrap(fault.ErrMalformedFrame, "wire", "read header",
			fmt.Sprintf("unsupported protocol version %d", version), nil)
	}
	h := Header{
		FrameRate:      int(binary.BigEndian.Uint16(buf[6:8])),
		FrameCountHint: int(binary.BigEndian.Uint32(buf[8:12])),
	}
	if h.FrameRate <= 0 || h.FrameRate > MaxFrameRate {
		return Header{}, fault.Wrap(fault.ErrMalformedFrame, "wire", "read header",
			fmt.Sprintf("frame rate %d outside 1..%d", h.FrameRate, MaxFrameRate), nil)
	}
	return h, nil
}
