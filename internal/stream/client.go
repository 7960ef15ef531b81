package stream

import (
	"log/slog"
	"net"
	"time"

	"framecast/internal/config"
	"framecast/internal/logging"
	"framecast/internal/wire"
)

// Options tunes one streaming client. Zero values select defaults.
type Options struct {
	// QueueDepth bounds the chunk queue between the frame producer and the
	// socket writer. Memory use is proportional to this, never to the total
	// frame count.
	QueueDepth int
	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration
	// WriteTimeout bounds each outbound chunk write. Backpressure inside the
	// window only delays; past it the session fails.
	WriteTimeout time.Duration
	// ResultTimeout bounds the wait for the encoded artifact after the last
	// frame is flushed.
	ResultTimeout time.Duration
	// MaxChunkBytes caps a single frame payload.
	MaxChunkBytes int
	// MaxArtifactBytes caps the declared size of the returned artifact.
	MaxArtifactBytes int64
}

const (
	defaultQueueDepth    = 8
	defaultDialTimeout   = 10 * time.Second
	defaultWriteTimeout  = 30 * time.Second
	defaultResultTimeout = 5 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.QueueDepth <= 0 {
		o.QueueDepth = defaultQueueDepth
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.ResultTimeout <= 0 {
		o.ResultTimeout = defaultResultTimeout
	}
	if o.MaxChunkBytes <= 0 {
		o.MaxChunkBytes = wire.DefaultMaxChunkBytes
	}
	if o.MaxArtifactBytes <= 0 {
		o.MaxArtifactBytes = wire.DefaultMaxArtifactBytes
	}
	return o
}

// Client streams frame sequences to a remote encoder daemon. One client may
// run any number of encode sessions; each session owns its own connection
// and bounded queue.
type Client struct {
	addr   string
	opts   Options
	logger *slog.Logger
}

// NewClient builds a client for the encoder at addr.
func NewClient(addr string, opts Options, logger *slog.Logger) *Client {
	return &Client{
		addr:   addr,
		opts:   opts.withDefaults(),
		logger: logging.NewComponentLogger(logger, "stream"),
	}
}

// NewClientFromConfig builds a client from the transport config section.
func NewClientFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(cfg.Transport.RemoteAddr, Options{
		QueueDepth:       cfg.Transport.QueueDepth,
		DialTimeout:      cfg.DialTimeout(),
		WriteTimeout:     cfg.WriteTimeout(),
		ResultTimeout:    cfg.ResultTimeout(),
		MaxChunkBytes:    cfg.MaxChunkBytes(),
		MaxArtifactBytes: cfg.MaxArtifactBytes(),
	}, logger)
}

// writeCloser is the half-close surface of TCP and unix connections.
type writeCloser interface {
	CloseWrite() error
}

var _ writeCloser = (*net.TCPConn)(nil)
