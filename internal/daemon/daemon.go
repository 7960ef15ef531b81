package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"framecast/internal/config"
	"framecast/internal/deps"
	"framecast/internal/encoderd"
	"framecast/internal/logging"
	"framecast/internal/sessions"
)

// Daemon coordinates the encoder server, the session journal, and the
// accelerator probe, and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sessions.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	server  *encoderd.Server
	caps    deps.Capabilities
	binDeps []deps.Status

	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Bind         string
	JournalPath  string
	LockPath     string
	Accelerated  bool
	Scaler       string
	AccelDetail  string
	SessionStats map[string]int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *sessions.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "framecastd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		stopped:  make(chan struct{}),
	}, nil
}

// Start acquires the instance lock, probes the accelerator once, and begins
// accepting encode streams. A host without a working NVENC encoder still
// starts; its sessions are refused with a structured failure.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another framecastd instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.binDeps = deps.CheckBinaries(deps.Requirements(d.cfg.Encoder.FFmpegBinary))
	d.caps = deps.ProbeAccelerator(d.ctx, d.cfg.Encoder.FFmpegBinary)
	if !d.caps.Accelerated {
		d.logger.Warn("hardware encoder unavailable",
			logging.String("detail", d.caps.Detail))
	}

	server, err := encoderd.NewServer(d.ctx, d.cfg, d.store, d.caps, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start encoder server: %w", err)
	}
	d.server = server
	go server.Serve()

	d.running.Store(true)
	d.logger.Info("framecast daemon started",
		logging.String("bind", server.Addr()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the encoder server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.once.Do(func() { close(d.stopped) })
	d.logger.Info("framecast daemon stopped")
}

// Done is closed once Stop has completed, letting the process exit when
// shutdown arrives over IPC rather than a signal.
func (d *Daemon) Done() <-chan struct{} {
	return d.stopped
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the encoder server's bound address, or empty when stopped.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return filepath.Join(d.cfg.Paths.LogDir, "framecast.log")
}

// ListSessions returns journal rows filtered by optional statuses.
func (d *Daemon) ListSessions(ctx context.Context, statuses []sessions.Status) ([]*sessions.Session, error) {
	if d.store == nil {
		return nil, errors.New("session journal unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// ClearFinished removes terminal sessions from the journal.
func (d *Daemon) ClearFinished(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("session journal unavailable")
	}
	return d.store.ClearFinished(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("session stats unavailable", logging.Error(err))
		stats = map[string]int{}
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Bind:         d.Addr(),
		JournalPath:  d.store.Path(),
		LockPath:     d.lockPath,
		Accelerated:  d.caps.Accelerated,
		Scaler:       d.caps.SelectScaler(d.cfg.Encoder.Scaler),
		AccelDetail:  d.caps.Detail,
		SessionStats: stats,
		Dependencies: d.binDeps,
	}
}
