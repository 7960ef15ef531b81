package sessions_test

import (
	"context"
	"testing"
	"time"

	"framecast/internal/sessions"
	"framecast/internal/testsupport"
)

func TestStoreLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess, err := store.Create(ctx, 30, 120)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID == "" || len(sess.ID) != 32 {
		t.Fatalf("expected 32-char session id, got %q", sess.ID)
	}
	if sess.Status != sessions.StatusReceiving {
		t.Fatalf("expected receiving, got %s", sess.Status)
	}
	if sess.FrameRate != 30 || sess.DeclaredFrames != 120 {
		t.Fatalf("unexpected session fields: %+v", sess)
	}

	if err := store.UpdateProgress(ctx, sess.ID, 64, 4096); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := store.MarkEncoding(ctx, sess.ID, 120, 8192); err != nil {
		t.Fatalf("MarkEncoding: %v", err)
	}

	got, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != sessions.StatusEncoding {
		t.Fatalf("expected encoding, got %s", got.Status)
	}
	if got.ReceivedFrames != 120 || got.BytesReceived != 8192 {
		t.Fatalf("unexpected counters: %+v", got)
	}

	if err := store.MarkCompleted(ctx, sess.ID, 555); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	got, err = store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != sessions.StatusCompleted || got.ArtifactBytes != 555 {
		t.Fatalf("unexpected completed row: %+v", got)
	}
	if !got.Status.Terminal() {
		t.Fatal("completed must be terminal")
	}
}

func TestStoreMarkFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, store, 24, 0)
	if err := store.MarkFailed(ctx, sess.ID, "transcoder exited with code 3"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := store.GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != sessions.StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage != "transcoder exited with code 3" {
		t.Fatalf("unexpected error message: %q", got.ErrorMessage)
	}
}

func TestStoreListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.NewSession(t, store, 30, 0)
	b := testsupport.NewSession(t, store, 30, 0)
	if err := store.MarkFailed(ctx, a.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}

	failed, err := store.List(ctx, sessions.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != a.ID {
		t.Fatalf("unexpected failed listing: %+v", failed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(sessions.StatusFailed)] != 1 {
		t.Fatalf("expected 1 failed, got %d", stats[string(sessions.StatusFailed)])
	}
	if stats[string(sessions.StatusReceiving)] != 1 {
		t.Fatalf("expected 1 receiving, got %d", stats[string(sessions.StatusReceiving)])
	}
	if _, ok := stats[string(sessions.StatusCompleted)]; !ok {
		t.Fatal("stats should zero-fill statuses")
	}
	_ = b
}

func TestStoreClearFinishedKeepsActive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	active := testsupport.NewSession(t, store, 30, 0)
	done := testsupport.NewSession(t, store, 30, 0)
	if err := store.MarkCompleted(ctx, done.ID, 100); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	removed, err := store.ClearFinished(ctx)
	if err != nil {
		t.Fatalf("ClearFinished: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.GetByID(ctx, active.ID); err != nil {
		t.Fatalf("active session should remain: %v", err)
	}
}

func TestStorePruneOlderThan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	old := testsupport.NewSession(t, store, 30, 0)
	if err := store.MarkCompleted(ctx, old.ID, 10); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	stale := testsupport.NewSession(t, store, 30, 0)

	// Future cutoff: finished rows go, active ones stay regardless of age.
	pruned, err := store.PruneOlderThan(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned, got %d", pruned)
	}
	if _, err := store.GetByID(ctx, stale.ID); err != nil {
		t.Fatalf("active session should survive prune: %v", err)
	}

	// Past cutoff: nothing qualifies.
	pruned, err = store.PruneOlderThan(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected 0 pruned, got %d", pruned)
	}
}

func TestStatusValidation(t *testing.T) {
	for _, status := range []sessions.Status{
		sessions.StatusReceiving,
		sessions.StatusEncoding,
		sessions.StatusCompleted,
		sessions.StatusFailed,
	} {
		if !status.Valid() {
			t.Fatalf("status %s should be valid", status)
		}
	}
	if sessions.Status("bogus").Valid() {
		t.Fatal("bogus status should be invalid")
	}
	if sessions.StatusReceiving.Terminal() || sessions.StatusEncoding.Terminal() {
		t.Fatal("active statuses must not be terminal")
	}
	if !sessions.StatusFailed.Terminal() {
		t.Fatal("failed must be terminal")
	}
}
