package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"framecast/internal/fault"
)

func TestArtifactResultRoundTrip(t *testing.T) {
	artifact := []byte("mp4-bytes-here")
	var buf bytes.Buffer
	if err := WriteArtifact(&buf, MediaTypeMP4, int64(len(artifact)), bytes.NewReader(artifact)); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}

	res, err := ReadResult(&buf, DefaultMaxArtifactBytes)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if res.Failure != nil {
		t.Fatalf("unexpected failure: %+v", res.Failure)
	}
	if res.MediaType != MediaTypeMP4 {
		t.Fatalf("unexpected media type %q", res.MediaType)
	}
	if !bytes.Equal(res.Artifact, artifact) {
		t.Fatalf("artifact bytes altered in transit")
	}
}

func TestWriteArtifactRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteArtifact(&buf, MediaTypeMP4, 0, bytes.NewReader(nil))
	if !errors.Is(err, fault.ErrTranscoderProcess) {
		t.Fatalf("expected transcoder process error, got %v", err)
	}
}

func TestFailureResultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Failure{
		Kind:     fault.KindTranscoderProcess,
		Message:  "transcoder exited",
		Detail:   "nvenc init failed",
		ExitCode: 3,
	}
	if err := WriteFailure(&buf, want); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}

	res, err := ReadResult(&buf, DefaultMaxArtifactBytes)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if res.Failure == nil {
		t.Fatal("expected failure result")
	}
	if *res.Failure != want {
		t.Fatalf("failure mismatch: got %+v want %+v", *res.Failure, want)
	}
}

func TestFailureResultNegativeExitCode(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFailure(&buf, Failure{Kind: fault.KindEncodeTimeout, Message: "killed", ExitCode: -1}); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}
	res, err := ReadResult(&buf, DefaultMaxArtifactBytes)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if res.Failure.ExitCode != -1 {
		t.Fatalf("expected exit code -1, got %d", res.Failure.ExitCode)
	}
}

func TestFailureErrMapsToTaxonomy(t *testing.T) {
	cases := []struct {
		kind   string
		marker error
	}{
		{fault.KindMalformedFrame, fault.ErrMalformedFrame},
		{fault.KindAcceleratorUnavailable, fault.ErrAcceleratorUnavailable},
		{fault.KindEncodeTimeout, fault.ErrEncodeTimeout},
		{fault.KindTranscoderProcess, fault.ErrTranscoderProcess},
		{fault.KindConnection, fault.ErrConnection},
	}
	for _, tc := range cases {
		err := Failure{Kind: tc.kind, Message: "boom"}.Err()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("kind %s: expected %v, got %v", tc.kind, tc.marker, err)
		}
	}

	// Unknown kinds degrade to a connection error rather than panicking.
	if err := (Failure{Kind: "mystery"}).Err(); !errors.Is(err, fault.ErrConnection) {
		t.Fatalf("expected connection fallback, got %v", err)
	}
}

func TestReadResultZeroSizeArtifact(t *testing.T) {
	head := []byte{resultStatusOK}
	head = appendString(head, MediaTypeMP4)
	head = append(head, make([]byte, 8)...) // size = 0
	if _, err := ReadResult(bytes.NewReader(head), DefaultMaxArtifactBytes); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestReadResultOversizedArtifact(t *testing.T) {
	head := []byte{resultStatusOK}
	head = appendString(head, MediaTypeMP4)
	head = binary.BigEndian.AppendUint64(head, 1<<62)
	if _, err := ReadResult(bytes.NewReader(head), DefaultMaxArtifactBytes); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestReadResultArtifactAboveCallerLimit(t *testing.T) {
	artifact := []byte("just-over-the-line")
	var buf bytes.Buffer
	if err := WriteArtifact(&buf, MediaTypeMP4, int64(len(artifact)), bytes.NewReader(artifact)); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if _, err := ReadResult(&buf, int64(len(artifact))-1); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestReadResultTruncatedArtifact(t *testing.T) {
	artifact := []byte("partial")
	var buf bytes.Buffer
	if err := WriteArtifact(&buf, MediaTypeMP4, int64(len(artifact)), bytes.NewReader(artifact)); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	short := buf.Bytes()[:buf.Len()-3]
	if _, err := ReadResult(bytes.NewReader(short), DefaultMaxArtifactBytes); !errors.Is(err, fault.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestReadResultUnknownStatus(t *testing.T) {
	if _, err := ReadResult(bytes.NewReader([]byte{0x7F}), DefaultMaxArtifactBytes); !errors.Is(err, fault.ErrMalformedFrame) {
		t.Fatalf("expected malformed frame error, got %v", err)
	}
}

func TestWriteFailureTruncatesLongDetail(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", maxResultStringLen+100)
	if err := WriteFailure(&buf, Failure{Kind: fault.KindTranscoderProcess, Detail: long}); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}
	res, err := ReadResult(&buf, DefaultMaxArtifactBytes)
	if err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if len(res.Failure.Detail) != maxResultStringLen {
		t.Fatalf("expected detail truncated to %d, got %d", maxResultStringLen, len(res.Failure.Detail))
	}
}
