package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the encode pipeline error taxonomy. Errors are wrapped
// with exactly one marker so callers can classify failures with errors.Is.
var (
	// ErrMalformedFrame flags an invalid or oversized chunk length prefix.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrAcceleratorUnavailable flags a missing hardware encoding path on the
	// remote daemon. Fatal for that daemon instance, never retried against it.
	ErrAcceleratorUnavailable = errors.New("accelerator unavailable")
	// ErrEncodeTimeout flags a missing remote response within the deadline.
	ErrEncodeTimeout = errors.New("encode timeout")
	// ErrTranscoderProcess flags a transcoder subprocess crash or non-zero exit.
	ErrTranscoderProcess = errors.New("transcoder process error")
	// ErrConnection flags transport-level failures (refused, reset, DNS).
	ErrConnection = errors.New("connection error")
)

// Wire-level kind identifiers exchanged in failure records.
const (
	KindMalformedFrame         = "malformed_frame"
	KindAcceleratorUnavailable = "accelerator_unavailable"
	KindEncodeTimeout          = "encode_timeout"
	KindTranscoderProcess      = "transcoder_process"
	KindConnection             = "connection"
	KindUnknown                = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConnection
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its wire-level kind identifier.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFrame):
		return KindMalformedFrame
	case errors.Is(err, ErrAcceleratorUnavailable):
		return KindAcceleratorUnavailable
	case errors.Is(err, ErrEncodeTimeout):
		return KindEncodeTimeout
	case errors.Is(err, ErrTranscoderProcess):
		return KindTranscoderProcess
	case errors.Is(err, ErrConnection):
		return KindConnection
	default:
		return KindUnknown
	}
}

// Marker maps a wire-level kind identifier back to its sentinel.
func Marker(kind string) error {
	switch strings.TrimSpace(kind) {
	case KindMalformedFrame:
		return ErrMalformedFrame
	case KindAcceleratorUnavailable:
		return ErrAcceleratorUnavailable
	case KindEncodeTimeout:
		return ErrEncodeTimeout
	case KindTranscoderProcess:
		return ErrTranscoderProcess
	case KindConnection:
		return ErrConnection
	default:
		return nil
	}
}

// Retryable reports whether the caller may retry with a fresh frame source.
// Retries are external policy; nothing inside the pipeline retries.
func Retryable(err error) bool {
	return errors.Is(err, ErrEncodeTimeout) || errors.Is(err, ErrConnection)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
