package daemon_test

import (
	"bytes"
	"context"
	"testing"

	"framecast/internal/daemon"
	"framecast/internal/frame"
	"framecast/internal/logging"
	"framecast/internal/stream"
	"framecast/internal/testsupport"
)

// acceleratedStub answers the capability probe and then behaves as a
// successful encode run.
const acceleratedStub = `#!/bin/sh
case "$2" in
-hwaccels) echo "cuda"; exit 0 ;;
-encoders) echo " V....D h264_nvenc  NVIDIA NVENC H.264 encoder"; exit 0 ;;
-filters)  echo " ... scale_cuda ..."; exit 0 ;;
esac
for arg in "$@"; do out="$arg"; done
cat > /dev/null
printf 'fake-mp4-artifact-bytes' > "$out"
`

func TestDaemonLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTranscoderScript(acceleratedStub))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if !status.Accelerated {
		t.Fatalf("probe should report accelerated: %s", status.AccelDetail)
	}
	if status.Scaler != "cuda" {
		t.Fatalf("expected cuda scaler, got %s", status.Scaler)
	}
	if status.Bind == "" {
		t.Fatal("daemon should expose its bind address")
	}
	if len(status.Dependencies) == 0 || !status.Dependencies[0].Available {
		t.Fatalf("transcoder dependency should be available: %+v", status.Dependencies)
	}

	// The daemon-owned server must accept and complete encode sessions.
	client := stream.NewClient(d.Addr(), stream.Options{}, logging.NewNop())
	art, err := client.Encode(context.Background(), frame.NewMemorySource("jpeg", []byte("frame")), 30)
	if err != nil {
		t.Fatalf("encode through daemon: %v", err)
	}
	if !bytes.Equal(art.Data, []byte("fake-mp4-artifact-bytes")) {
		t.Fatalf("unexpected artifact payload %q", art.Data)
	}

	list, err := d.ListSessions(context.Background(), nil)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one journaled session, got %d", len(list))
	}

	removed, err := d.ClearFinished(context.Background())
	if err != nil {
		t.Fatalf("clear finished: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one cleared session, got %d", removed)
	}

	d.Stop()
	select {
	case <-d.Done():
	default:
		t.Fatal("Done must be closed after Stop")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should report stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTranscoderScript(acceleratedStub))
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}
}

func TestDaemonRefusesWithoutAccelerator(t *testing.T) {
	// A probe that finds no cuda support still lets the daemon start.
	softwareStub := `#!/bin/sh
case "$2" in
-hwaccels) echo "none" ;;
esac
exit 0
`
	cfg := testsupport.NewConfig(t, testsupport.WithTranscoderScript(softwareStub))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)

	status := d.Status(context.Background())
	if status.Accelerated {
		t.Fatal("probe should not report accelerated")
	}
	if status.AccelDetail == "" {
		t.Fatal("expected probe detail for missing accelerator")
	}
}
