package encoderd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"framecast/internal/fault"
	"framecast/internal/logging"
	"framecast/internal/wire"
)

// progressEvery controls how often the session journal is refreshed while
// frames are arriving.
const progressEvery = 64

// handleConn runs one encode session end to end: header, frame stream,
// transcode, artifact response. The whole session lives under one deadline
// derived from the retention window so an idle producer cannot pin a
// connection forever.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(s.cfg.SessionMaxAge()))
	stop := context.AfterFunc(s.ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	header, err := wire.ReadHeader(conn)
	if err != nil {
		s.logger.Warn("rejected stream", logging.Error(err),
			slog.String("remote", conn.RemoteAddr().String()))
		return
	}

	sess, err := s.store.Create(s.ctx, header.FrameRate, header.FrameCountHint)
	if err != nil {
		s.logger.Error("session create failed", logging.Error(err))
		return
	}
	logger := s.logger.With(slog.String(logging.FieldSessionID, sess.ID))
	logger.Info("session opened",
		slog.Int("frame_rate", header.FrameRate),
		slog.Int("declared_frames", header.FrameCountHint))

	if !s.caps.Accelerated {
		s.refuse(conn, logger, sess.ID, wire.Failure{
			Kind:     fault.KindAcceleratorUnavailable,
			Message:  "hardware encoder unavailable on this host",
			Detail:   s.caps.Detail,
			ExitCode: -1,
		})
		return
	}

	s.runSession(conn, logger, sess.ID, header)
}

// refuse reports a failure before any transcoder was spawned.
func (s *Server) refuse(conn net.Conn, logger *slog.Logger, sessionID string, failure wire.Failure) {
	if err := s.store.MarkFailed(s.ctx, sessionID, failure.Message); err != nil {
		logger.Warn("journal update failed", logging.Error(err))
	}
	if err := wire.WriteFailure(conn, failure); err != nil {
		logger.Warn("failure response not delivered", logging.Error(err))
	}
	logger.Info("session refused", slog.String("kind", failure.Kind))
}

// runSession owns the transcoder subprocess for one accepted stream.
func (s *Server) runSession(conn net.Conn, logger *slog.Logger, sessionID string, header wire.Header) {
	transcoder := &Transcoder{
		Binary:       s.cfg.Encoder.FFmpegBinary,
		Scaler:       s.caps.SelectScaler(s.cfg.Encoder.Scaler),
		TargetWidth:  s.cfg.Encoder.TargetWidth,
		TargetHeight: s.cfg.Encoder.TargetHeight,
		Limit:        s.cfg.TranscodeLimit(),
		Grace:        time.Duration(s.cfg.Encoder.ShutdownGrace) * time.Second,
	}

	spool := s.spoolPath(sessionID)
	proc, err := transcoder.Start(header.FrameRate, spool)
	if err != nil {
		logger.Error("transcoder launch failed", logging.Error(err))
		s.refuse(conn, logger, sessionID, wire.Failure{
			Kind:     fault.Kind(err),
			Message:  "transcoder launch failed",
			Detail:   err.Error(),
			ExitCode: -1,
		})
		return
	}
	defer os.Remove(spool)
	defer proc.Kill()

	frames, bytesIn, err := s.feedFrames(conn, proc, logger, sessionID)
	if err != nil {
		proc.Kill()
		s.finishFailed(conn, logger, sessionID, proc, err)
		return
	}
	if frames == 0 {
		proc.Kill()
		s.finishFailed(conn, logger, sessionID, proc, fault.Wrap(
			fault.ErrMalformedFrame, "encoderd", "stream", "no frames received", nil))
		return
	}

	if err := s.store.MarkEncoding(s.ctx, sessionID, frames, bytesIn); err != nil {
		logger.Warn("journal update failed", logging.Error(err))
	}
	logger.Info("stream complete",
		slog.Int(logging.FieldFrames, frames),
		slog.Int64(logging.FieldBytes, bytesIn))

	_ = proc.CloseInput()
	if err := proc.Wait(s.ctx); err != nil {
		s.finishFailed(conn, logger, sessionID, proc, err)
		return
	}

	s.finishCompleted(conn, logger, sessionID, proc, spool)
}

// feedFrames decodes length-delimited frame chunks off the wire and pipes
// each payload to the subprocess in arrival order. Returns once the peer
// half-closes its write side.
func (s *Server) feedFrames(conn net.Conn, proc *Process, logger *slog.Logger, sessionID string) (int, int64, error) {
	var (
		pending  []byte
		scratch  = make([]byte, 64*1024)
		frames   int
		bytesIn  int64
		maxChunk = s.cfg.MaxChunkBytes()
	)

	for {
		payload, consumed, err := wire.DecodeChunk(pending, maxChunk)
		switch {
		case err == nil:
			if werr := proc.WriteFrame(payload); werr != nil {
				return frames, bytesIn, werr
			}
			frames++
			bytesIn += int64(consumed)
			pending = pending[:copy(pending, pending[consumed:])]
			if frames%progressEvery == 0 {
				if uerr := s.store.UpdateProgress(s.ctx, sessionID, frames, bytesIn); uerr != nil {
					logger.Warn("journal update failed", logging.Error(uerr))
				}
			}
			continue

		case errors.Is(err, wire.ErrShortBuffer):
			n, rerr := conn.Read(scratch)
			if n > 0 {
				pending = append(pending, scratch[:n]...)
			}
			if rerr == nil {
				continue
			}
			if errors.Is(rerr, io.EOF) {
				if len(pending) != 0 {
					return frames, bytesIn, fault.Wrap(fault.ErrMalformedFrame,
						"encoderd", "stream", "truncated frame chunk at end of stream", nil)
				}
				return frames, bytesIn, nil
			}
			return frames, bytesIn, fault.Wrap(fault.ErrConnection,
				"encoderd", "read stream", "", rerr)

		default:
			return frames, bytesIn, err
		}
	}
}

// finishFailed journals the failure and, when the connection still works,
// reports it as a structured failure record. A broken peer gets nothing;
// the partial artifact is discarded either way.
func (s *Server) finishFailed(conn net.Conn, logger *slog.Logger, sessionID string, proc *Process, cause error) {
	logger.Error("session failed", logging.Error(cause))
	if err := s.store.MarkFailed(s.ctx, sessionID, cause.Error()); err != nil {
		logger.Warn("journal update failed", logging.Error(err))
	}

	kind := fault.Kind(cause)
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		kind = fault.KindEncodeTimeout
	}
	failure := wire.Failure{
		Kind:     kind,
		Message:  cause.Error(),
		Detail:   proc.StderrExcerpt(),
		ExitCode: proc.ExitCode(),
	}
	if kind == fault.KindConnection {
		// The transport itself is gone; a response cannot be delivered.
		return
	}
	if err := wire.WriteFailure(conn, failure); err != nil {
		logger.Warn("failure response not delivered", logging.Error(err))
	}
}

// finishCompleted streams the finished artifact back and journals success.
func (s *Server) finishCompleted(conn net.Conn, logger *slog.Logger, sessionID string, proc *Process, spool string) {
	info, err := os.Stat(spool)
	if err != nil || info.Size() == 0 {
		s.finishFailed(conn, logger, sessionID, proc, fault.Wrap(
			fault.ErrTranscoderProcess, "encoderd", "collect artifact",
			"transcoder produced no output", err))
		return
	}

	file, err := os.Open(spool)
	if err != nil {
		s.finishFailed(conn, logger, sessionID, proc, fault.Wrap(
			fault.ErrTranscoderProcess, "encoderd", "collect artifact", "", err))
		return
	}
	defer file.Close()

	if err := wire.WriteArtifact(conn, wire.MediaTypeMP4, info.Size(), file); err != nil {
		logger.Warn("artifact response not delivered", logging.Error(err))
		if merr := s.store.MarkFailed(s.ctx, sessionID, "artifact delivery failed: "+err.Error()); merr != nil {
			logger.Warn("journal update failed", logging.Error(merr))
		}
		return
	}

	if err := s.store.MarkCompleted(s.ctx, sessionID, info.Size()); err != nil {
		logger.Warn("journal update failed", logging.Error(err))
	}
	logger.Info("session completed", slog.Int64("artifact_bytes", info.Size()))
}
