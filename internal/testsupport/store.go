package testsupport

import (
	"context"
	"testing"

	"framecast/internal/config"
	"framecast/internal/sessions"
)

// MustOpenStore opens a sessions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSession creates a journal row for tests using the provided store.
func NewSession(t testing.TB, store *sessions.Store, frameRate, declaredFrames int) *sessions.Session {
	t.Helper()

	sess, err := store.Create(context.Background(), frameRate, declaredFrames)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return sess
}
