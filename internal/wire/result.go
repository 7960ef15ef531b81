package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"framecast/internal/fault"
)

// MediaTypeMP4 is the declared media type of successful encodes.
const MediaTypeMP4 = "video/mp4"

// maxResultStringLen bounds the media type, kind, message, and detail fields
// of a result record.
const maxResultStringLen = 1 << 15

// DefaultMaxArtifactBytes caps the declared artifact size when the caller
// does not supply a limit. Protects against corrupt or hostile size fields.
const DefaultMaxArtifactBytes = 2 * 1024 * 1024 * 1024

const (
	resultStatusOK      = 0x00
	resultStatusFailure = 0x01
)

// Failure is the structured error half of a result record.
type Failure struct {
	Kind     string
	Message  string
	Detail   string
	ExitCode int
}

// Err converts the failure into the matching taxonomy error.
func (f Failure) Err() error {
	marker := fault.Marker(f.Kind)
	if marker == nil {
		marker = fault.ErrConnection
	}
	message := f.Message
	if f.Detail != "" {
		message = fmt.Sprintf("%s (%s)", f.Message, f.Detail)
	}
	if f.ExitCode != 0 {
		message = fmt.Sprintf("%s [exit %d]", message, f.ExitCode)
	}
	return fault.Wrap(marker, "remote encoder", "", message, nil)
}

// Result is the single response message terminating an encode session:
// either the complete artifact or a structured failure.
type Result struct {
	MediaType string
	Artifact  []byte
	Failure   *Failure
}

// WriteArtifact streams a success result: status byte, media type, artifact
// size, then exactly size bytes copied from r. The artifact bytes pass
// through unmodified.
func WriteArtifact(w io.Writer, mediaType string, size int64, r io.Reader) error {
	if size <= 0 {
		return fault.Wrap(fault.ErrTranscoderProcess, "wire", "write artifact", "empty artifact", nil)
	}
	head := []byte{resultStatusOK}
	head = appendString(head, mediaType)
	head = binary.BigEndian.AppendUint64(head, uint64(size))
	if _, err := w.Write(head); err != nil {
		return fault.Wrap(fault.ErrConnection, "wire", "write artifact", "", err)
	}
	if _, err := io.CopyN(w, r, size); err != nil {
		return fault.Wrap(fault.ErrConnection, "wire", "write artifact", "", err)
	}
	return nil
}

// WriteFailure sends a structured failure result.
func WriteFailure(w io.Writer, f Failure) error {
	buf := []byte{resultStatusFailure}
	buf = appendString(buf, f.Kind)
	buf = appendString(buf, truncate(f.Message, maxResultStringLen))
	buf = appendString(buf, truncate(f.Detail, maxResultStringLen))
	buf = binary.BigEndian.AppendUint32(buf, uint32(int32(f.ExitCode)))
	if _, err := w.Write(buf); err != nil {
		return fault.Wrap(fault.ErrConnection, "wire", "write failure", "", err)
	}
	return nil
}

// ReadResult consumes one result record. Failure results are returned as a
// populated Result, not as an error; transport problems are errors.
//
// A declared artifact size of zero, or one above maxArtifact, is a protocol
// violation and returns a malformed-frame error. maxArtifact <= 0 selects
// DefaultMaxArtifactBytes.
func ReadResult(r io.Reader, maxArtifact int64) (*Result, error) {
	if maxArtifact <= 0 {
		maxArtifact = DefaultMaxArtifactBytes
	}
	var status [1]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return nil, fault.Wrap(fault.ErrConnection, "wire", "read result", "", err)
	}

	switch status[0] {
	case resultStatusOK:
		mediaType, err := readString(r)
		if err != nil {
			return nil, err
		}
		var sizeBuf [8]byte
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			return nil, fault.Wrap(fault.ErrConnection, "wire", "read result", "", err)
		}
		size := binary.BigEndian.Uint64(sizeBuf[:])
		if size == 0 {
			return nil, fault.Wrap(fault.ErrMalformedFrame, "wire", "read result", "zero-length artifact", nil)
		}
		if size > uint64(maxArtifact) {
			return nil, fault.Wrap(fault.ErrMalformedFrame, "wire", "read result",
				fmt.Sprintf("declared artifact size %d exceeds limit %d", size, maxArtifact), nil)
		}
		artifact := make([]byte, size)
		if _, err := io.ReadFull(r, artifact); err != nil {
			return nil, fault.Wrap(fault.ErrConnection, "wire", "read result", "truncated artifact", err)
		}
		return &Result{MediaType: mediaType, Artifact: artifact}, nil

	case resultStatusFailure:
		kind, err := readString(r)
		if err != nil {
			return nil, err
		}
		message, err := readString(r)
		if err != nil {
			return nil, err
		}
		detail, err := readString(r)
		if err != nil {
			return nil, err
		}
		var codeBuf [4]byte
		if _, err := io.ReadFull(r, codeBuf[:]); err != nil {
			return nil, fault.Wrap(fault.ErrConnection, "wire", "read result", "", err)
		}
		return &Result{Failure: &Failure{
			Kind:     kind,
			Message:  message,
			Detail:   detail,
			ExitCode: int(int32(binary.BigEndian.Uint32(codeBuf[:]))),
		}}, nil

	default:
		return nil, fault.Wrap(fault.ErrMalformedFrame, "wire", "read result",
			fmt.Sprintf("unknown result status 0x%02x", status[0]), nil)
	}
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s)))
	return append(dst, s...)
}

func readString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fault.Wrap(fault.ErrConnection, "wire", "read result", "", err)
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fault.Wrap(fault.ErrConnection, "wire", "read result", "", err)
	}
	return string(buf), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
