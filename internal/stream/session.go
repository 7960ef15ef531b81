package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"

	"framecast/internal/artifact"
	"framecast/internal/fault"
	"framecast/internal/frame"
	"framecast/internal/logging"
	"framecast/internal/wire"
)

// Session states. A session advances strictly forward and terminates in
// done or failed.
const (
	stateInit           = "init"
	stateStreaming      = "streaming"
	stateFlushing       = "flushing"
	stateAwaitingResult = "awaiting_result"
	stateDone           = "done"
	stateFailed         = "failed"
)

// counted is implemented by sources that know their total frame count up
// front; the count is sent as the advisory total-frame hint.
type counted interface {
	Len() int
}

// Encode streams every frame from src to the remote encoder at the given
// frame rate and returns the finished artifact.
//
// Two goroutines cooperate per session: the caller's goroutine drains the
// bounded chunk queue into the socket while a producer goroutine pulls
// frames, encodes chunks, and blocks when the queue is full. No frame is
// ever dropped; backpressure only delays. Cancelling ctx aborts the
// connection and releases all buffered chunks promptly.
//
// Encode performs no retries. A retry needs a fresh Source, since frames are
// not retained for replay.
func (c *Client) Encode(ctx context.Context, src frame.Source, frameRate int) (*artifact.Artifact, error) {
	if src == nil {
		return nil, errors.New("stream: frame source is required")
	}

	header := wire.Header{FrameRate: frameRate}
	if withLen, ok := src.(counted); ok {
		header.FrameCountHint = withLen.Len()
	}
	headerBytes, err := wire.EncodeHeader(header)
	if err != nil {
		return nil, err
	}

	s := &session{
		client:  c,
		state:   stateInit,
		started: time.Now(),
	}
	return s.run(ctx, src, headerBytes, frameRate)
}

type session struct {
	client  *Client
	state   string
	started time.Time

	framesSent int
	bytesSent  int64
}

func (s *session) transition(next string) {
	s.client.logger.Debug("session state change",
		logging.String("from", s.state),
		logging.String("to", next))
	s.state = next
}

func (s *session) run(ctx context.Context, src frame.Source, headerBytes []byte, frameRate int) (*artifact.Artifact, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := s.client.opts

	dialer := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.client.addr)
	if err != nil {
		s.transition(stateFailed)
		return nil, fault.Wrap(fault.ErrConnection, "stream", "dial", s.client.addr, err)
	}
	defer conn.Close()

	// Cancellation must unblock any in-flight read or write.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := s.write(conn, headerBytes); err != nil {
		return nil, s.fail(ctx, err)
	}
	s.transition(stateStreaming)

	// Producer: pull frames, encode chunks, feed the bounded queue.
	chunks := make(chan []byte, opts.QueueDepth)
	produceErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		produceErr <- s.produce(ctx, src, chunks)
	}()

	for chunk := range chunks {
		if err := s.write(conn, chunk); err != nil {
			return nil, s.fail(ctx, err)
		}
		s.framesSent++
		s.bytesSent += int64(len(chunk))
	}
	if err := <-produceErr; err != nil {
		return nil, s.fail(ctx, err)
	}

	s.transition(stateFlushing)
	half, ok := conn.(writeCloser)
	if !ok {
		return nil, s.fail(ctx, fault.Wrap(fault.ErrConnection, "stream", "flush",
			"connection does not support half-close", nil))
	}
	if err := half.CloseWrite(); err != nil {
		return nil, s.fail(ctx, fault.Wrap(fault.ErrConnection, "stream", "flush", "", err))
	}

	s.transition(stateAwaitingResult)
	if err := conn.SetReadDeadline(time.Now().Add(opts.ResultTimeout)); err != nil {
		return nil, s.fail(ctx, fault.Wrap(fault.ErrConnection, "stream", "await result", "", err))
	}
	// The cancellation hook may have fired before the read deadline was
	// armed; its past deadline must not be overwritten silently.
	if ctx.Err() != nil {
		return nil, s.fail(ctx, ctx.Err())
	}
	result, err := wire.ReadResult(bufio.NewReader(conn), opts.MaxArtifactBytes)
	if err != nil {
		return nil, s.fail(ctx, s.classifyResultErr(err))
	}

	art, err := artifact.Assemble(result)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.transition(stateDone)
	s.client.logger.Info("encode session complete",
		logging.Int(logging.FieldFrames, s.framesSent),
		logging.Int64(logging.FieldBytes, s.bytesSent),
		logging.Int64("artifact_bytes", art.Size()),
		logging.Int("frame_rate", frameRate),
		logging.Duration("elapsed", time.Since(s.started)))
	return art, nil
}

// produce pulls frames until the source is exhausted, validating the
// gapless index contract and enqueueing encoded chunks. Blocks on the queue
// when the writer lags; observes ctx at every suspension point.
func (s *session) produce(ctx context.Context, src frame.Source, chunks chan<- []byte) error {
	next := 0
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if f == nil {
			return errors.New("stream: source returned nil frame")
		}
		if f.Index != next {
			return fault.Wrap(fault.ErrMalformedFrame, "stream", "produce",
				"frame index out of sequence", nil)
		}
		next++
		if len(f.Data) > s.client.opts.MaxChunkBytes {
			return fault.Wrap(fault.ErrMalformedFrame, "stream", "produce",
				"frame payload exceeds chunk limit", nil)
		}
		chunk, err := wire.EncodeChunk(f.Data)
		if err != nil {
			return err
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) write(conn net.Conn, buf []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.client.opts.WriteTimeout)); err != nil {
		return fault.Wrap(fault.ErrConnection, "stream", "write", "", err)
	}
	if _, err := conn.Write(buf); err != nil {
		return fault.Wrap(fault.ErrConnection, "stream", "write", "", err)
	}
	return nil
}

// fail records the terminal state and surfaces cancellation ahead of the
// transport error it caused.
func (s *session) fail(ctx context.Context, err error) error {
	s.transition(stateFailed)
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.client.logger.Debug("session aborted by caller", logging.Error(err))
		return ctxErr
	}
	s.client.logger.Warn("encode session failed",
		logging.Error(err),
		logging.Int(logging.FieldFrames, s.framesSent),
		logging.Int64(logging.FieldBytes, s.bytesSent))
	return err
}

// classifyResultErr distinguishes a remote that never answered from a broken
// transport.
func (s *session) classifyResultErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fault.Wrap(fault.ErrEncodeTimeout, "stream", "await result",
			"no response within result timeout", nil)
	}
	return err
}
