package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"framecast/internal/daemon"
	"framecast/internal/ipc"
	"framecast/internal/logging"
	"framecast/internal/sessions"
	"framecast/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(cfg.Paths.LogDir, "framecastd.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon not running before Start")
	}
	if !strings.HasSuffix(status.JournalPath, "sessions.db") {
		t.Fatalf("unexpected journal path: %s", status.JournalPath)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Bind == "" {
		t.Fatal("expected bound encoder address")
	}

	sessA := testsupport.NewSession(t, store, 30, 10)
	sessB := testsupport.NewSession(t, store, 24, 0)
	if err := store.MarkFailed(ctx, sessB.ID, "transcoder exited"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	listResp, err := client.SessionList(nil)
	if err != nil {
		t.Fatalf("SessionList failed: %v", err)
	}
	if len(listResp.Items) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(listResp.Items))
	}

	failedResp, err := client.SessionList([]string{string(sessions.StatusFailed)})
	if err != nil {
		t.Fatalf("SessionList filter failed: %v", err)
	}
	if len(failedResp.Items) != 1 || failedResp.Items[0].ID != sessB.ID {
		t.Fatalf("expected failed session %s, got %#v", sessB.ID, failedResp.Items)
	}
	if failedResp.Items[0].ErrorMessage != "transcoder exited" {
		t.Fatalf("unexpected error message: %s", failedResp.Items[0].ErrorMessage)
	}

	logPath := d.LogPath()
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	clearResp, err := client.SessionsClear()
	if err != nil {
		t.Fatalf("SessionsClear failed: %v", err)
	}
	if clearResp.Removed != 1 {
		t.Fatalf("expected only the failed session removed, got %d", clearResp.Removed)
	}
	if _, err := store.GetByID(ctx, sessA.ID); err != nil {
		t.Fatalf("receiving session should survive clear: %v", err)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
