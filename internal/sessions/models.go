package sessions

import "time"

// Status represents the lifecycle of an encode session on the daemon.
type Status string

const (
	// StatusReceiving: the frame stream is still arriving.
	StatusReceiving Status = "receiving"
	// StatusEncoding: input complete, waiting on the transcoder.
	StatusEncoding Status = "encoding"
	// StatusCompleted: artifact returned to the producer.
	StatusCompleted Status = "completed"
	// StatusFailed: terminal failure; the error column holds the cause.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusReceiving,
	StatusEncoding,
	StatusCompleted,
	StatusFailed,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusReceiving, StatusEncoding, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the session can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one journal row: one end-to-end request turning a frame
// sequence into a video artifact.
type Session struct {
	ID             string
	FrameRate      int
	DeclaredFrames int
	ReceivedFrames int
	BytesReceived  int64
	ArtifactBytes  int64
	Status         Status
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
