package encoderd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"framecast/internal/config"
	"framecast/internal/deps"
	"framecast/internal/logging"
	"framecast/internal/sessions"
)

// Server accepts frame streams over TCP and drives one transcoder run per
// connection. One accepted connection is one encode session.
type Server struct {
	cfg    *config.Config
	store  *sessions.Store
	caps   deps.Capabilities
	logger *slog.Logger

	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer binds the configured address and prepares the session loop.
// The accelerator capabilities are probed once by the caller and fixed for
// the server's lifetime.
func NewServer(ctx context.Context, cfg *config.Config, store *sessions.Store, caps deps.Capabilities, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	listener, err := net.Listen("tcp", cfg.Encoder.Bind)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.Encoder.Bind, err)
	}
	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		cfg:      cfg,
		store:    store,
		caps:     caps,
		logger:   logging.NewComponentLogger(logger, "encoderd"),
		listener: listener,
		ctx:      serverCtx,
		cancel:   cancel,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the accept loop until Close. Each connection is handled on its
// own goroutine; a failed session never affects its neighbors.
func (s *Server) Serve() {
	s.wg.Add(1)
	go s.sweepLoop()

	scaler := s.caps.SelectScaler(s.cfg.Encoder.Scaler)
	s.logger.Info("listening",
		slog.String("bind", s.Addr()),
		slog.Bool("accelerated", s.caps.Accelerated),
		slog.String("scaler", scaler))

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", logging.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting, cancels in-flight sessions, and waits for them to
// wind down.
func (s *Server) Close() {
	s.cancel()
	_ = s.listener.Close()
	s.wg.Wait()
}

// sweepLoop prunes aged-out finished sessions and their leftover spool files.
func (s *Server) sweepLoop() {
	defer s.wg.Done()
	interval := time.Duration(s.cfg.Encoder.RetentionSweep) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.SessionMaxAge())
			pruned, err := s.store.PruneOlderThan(s.ctx, cutoff)
			if err != nil {
				s.logger.Warn("session prune failed", logging.Error(err))
				continue
			}
			if pruned > 0 {
				s.logger.Info("pruned finished sessions", slog.Int64("count", pruned))
			}
			s.sweepSpool(cutoff)
		}
	}
}

// sweepSpool removes orphaned spool files older than the retention cutoff.
func (s *Server) sweepSpool(cutoff time.Time) {
	entries, err := os.ReadDir(s.cfg.Paths.SpoolDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp4") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(s.cfg.Paths.SpoolDir, entry.Name()))
	}
}

func (s *Server) spoolPath(sessionID string) string {
	return filepath.Join(s.cfg.Paths.SpoolDir, sessionID+".mp4")
}
