package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"framecast/internal/fault"
)

// LengthPrefixSize is the fixed width of the chunk length prefix.
const LengthPrefixSize = 4

// DefaultMaxChunkBytes caps chunk payloads when the caller does not supply a
// limit. Protects against corrupt or hostile length prefixes.
const DefaultMaxChunkBytes = 32 * 1024 * 1024

// ErrShortBuffer signals that the buffer does not yet hold a complete chunk.
// No input is consumed; the caller reads more bytes and retries.
var ErrShortBuffer = errors.New("wire: short buffer")

// AppendChunk appends one length-delimited frame record to dst and returns
// the extended slice. The record is a 4-byte big-endian payload length
// followed by the payload. No frame index is embedded; ordering is implied
// by stream position.
func AppendChunk(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return dst, fault.Wrap(fault.ErrMalformedFrame, "wire", "encode chunk", "empty frame payload", nil)
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return dst, fault.Wrap(fault.ErrMalformedFrame, "wire", "encode chunk",
			fmt.Sprintf("frame payload of %d bytes exceeds the length prefix", len(payload)), nil)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// EncodeChunk returns one freshly allocated chunk record for payload.
func EncodeChunk(payload []byte) ([]byte, error) {
	out := make([]byte, 0, LengthPrefixSize+len(payload))
	return AppendChunk(out, payload)
}

// DecodeChunk reads one chunk from the front of buf. On success it returns
// the payload (aliasing buf) and the number of bytes consumed. When buf holds
// less than a complete chunk it returns ErrShortBuffer and consumes nothing,
// so parsing resumes after the next network read.
//
// A declared length of zero, or one above maxPayload, is a protocol
// violation and returns a malformed-frame error. maxPayload <= 0 selects
// DefaultMaxChunkBytes.
func DecodeChunk(buf []byte, maxPayload int) (payload []byte, consumed int, err error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxChunkBytes
	}
	if len(buf) < LengthPrefixSize {
		return nil, 0, ErrShortBuffer
	}
	declared := binary.BigEndian.Uint32(buf)
	if declared == 0 {
		return nil, 0, fault.Wrap(fault.ErrMalformedFrame, "wire", "decode chunk", "zero-length frame chunk", nil)
	}
	if uint64(declared) > uint64(maxPayload) {
		return nil, 0, fault.Wrap(fault.ErrMalformedFrame, "wire", "decode chunk",
			fmt.Sprintf("declared chunk length %d exceeds limit %d", declared, maxPayload), nil)
	}
	total := LengthPrefixSize + int(declared)
	if len(buf) < total {
		return nil, 0, ErrShortBuffer
	}
	return buf[LengthPrefixSize:total], total, nil
}
