package wire

import (
	"bytes"
	"errors"
	"testing"

	"framecast/internal/fault"
)

func TestChunkRoundTrip(t *testing.T) {
	payload := []byte("jpeg-frame-payload")
	encoded, err := EncodeChunk(payload)
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if len(encoded) != LengthPrefixSize+len(payload) {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}

	decoded, consumed, err := DecodeChunk(encoded, DefaultMaxChunkBytes)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("expected %d bytes consumed, got %d", len(encoded), consumed)
	}
	if !bytes.Equal(decoded, payload) {
		t.Fatalf("payload mismatch: %q", decoded)
	}
}

func TestEncodeChunkRejectsEmptyPayload(t *testing.T) {
	if _, err := EncodeChunk(nil); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
	if _, err := AppendChunk(nil, []byte{}); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestDecodeChunkZeroLength(t *testing.T) {
	_, _, err := DecodeChunk([]byte{0, 0, 0, 0}, DefaultMaxChunkBytes)
	if !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestDecodeChunkOversized(t *testing.T) {
	encoded, err := EncodeChunk(make([]byte, 64))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if _, _, err := DecodeChunk(encoded, 32); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestDecodeChunkShortBuffer(t *testing.T) {
	encoded, err := EncodeChunk([]byte("frame"))
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	// Every truncation point is resumable, including a split length prefix.
	for cut := 0; cut < len(encoded); cut++ {
		if _, _, err := DecodeChunk(encoded[:cut], DefaultMaxChunkBytes); !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("cut %d: expected ErrShortBuffer, got %v", cut, err)
		}
	}
}

func TestDecodeChunkLeavesTrailingBytes(t *testing.T) {
	first, _ := EncodeChunk([]byte("one"))
	second, _ := EncodeChunk([]byte("two"))
	buf := append(append([]byte{}, first...), second...)

	payload, consumed, err := DecodeChunk(buf, DefaultMaxChunkBytes)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if string(payload) != "one" || consumed != len(first) {
		t.Fatalf("unexpected first decode: %q consumed=%d", payload, consumed)
	}

	payload, consumed, err = DecodeChunk(buf[consumed:], DefaultMaxChunkBytes)
	if err != nil {
		t.Fatalf("DecodeChunk second: %v", err)
	}
	if string(payload) != "two" || consumed != len(second) {
		t.Fatalf("unexpected second decode: %q consumed=%d", payload, consumed)
	}
}

func TestAppendChunkGrowsDst(t *testing.T) {
	buf, err := AppendChunk(nil, []byte("a"))
	if err != nil {
		t.Fatalf("AppendChunk: %v", err)
	}
	buf, err = AppendChunk(buf, []byte("bb"))
	if err != nil {
		t.Fatalf("AppendChunk: %v", err)
	}
	if len(buf) != 2*LengthPrefixSize+3 {
		t.Fatalf("unexpected buffer size %d", len(buf))
	}
}
