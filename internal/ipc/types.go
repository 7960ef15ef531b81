package ipc

// StatusRequest asks the daemon for its current state.
type StatusRequest struct{}

// DependencyStatus reports availability of one external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// StatusResponse describes the daemon and its encoder readiness.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Bind         string             `json:"bind"`
	JournalPath  string             `json:"journal_path"`
	LockPath     string             `json:"lock_path"`
	Accelerated  bool               `json:"accelerated"`
	Scaler       string             `json:"scaler"`
	AccelDetail  string             `json:"accel_detail,omitempty"`
	SessionStats map[string]int     `json:"session_stats"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// SessionListRequest optionally filters sessions by status name.
type SessionListRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// SessionItem is the wire form of one journal row.
type SessionItem struct {
	ID             string `json:"id"`
	FrameRate      int    `json:"frame_rate"`
	DeclaredFrames int    `json:"declared_frames"`
	ReceivedFrames int    `json:"received_frames"`
	BytesReceived  int64  `json:"bytes_received"`
	ArtifactBytes  int64  `json:"artifact_bytes"`
	Status         string `json:"status"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// SessionListResponse returns matching sessions, newest first.
type SessionListResponse struct {
	Items []SessionItem `json:"items"`
}

// SessionsClearRequest removes finished sessions from the journal.
type SessionsClearRequest struct{}

// SessionsClearResponse reports how many rows were removed.
type SessionsClearResponse struct {
	Removed int64 `json:"removed"`
}

// LogTailRequest reads daemon log lines starting at Offset. A negative
// offset tails the last Limit lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StopRequest asks the daemon process to shut down.
type StopRequest struct{}

// StopResponse acknowledges shutdown.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
