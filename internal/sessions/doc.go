// Package sessions persists the daemon's encode session journal in SQLite:
// one row per streamed encode with its progress counters and terminal state.
package sessions
