package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for encode session identifiers.
	FieldSessionID = "session_id"
	// FieldFrames is the standardized structured logging key for frame counts.
	FieldFrames = "frames"
	// FieldBytes is the standardized structured logging key for byte counts.
	FieldBytes = "bytes"
	// FieldErrorHint points operators at the next step after a warning or error.
	FieldErrorHint = "error_hint"
)
