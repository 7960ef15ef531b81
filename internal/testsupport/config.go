package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SpoolDir = filepath.Join(base, "spool")
	cfgVal.Encoder.Bind = "127.0.0.1:0"
	cfgVal.Encoder.ShutdownGrace = 1
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTranscoderScript installs a shell script in place of the encoding
// binary so session handling can be exercised without real hardware. The
// script receives the assembled command line; its last argument is the
// output path.
func WithTranscoderScript(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write transcoder stub: %v", err)
		}
		b.cfg.Encoder.FFmpegBinary = target
	}
}

// WithTranscodeLimit overrides the transcode run limit in seconds.
func WithTranscodeLimit(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Encoder.TranscodeLimit = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

// CopyArtifactStub is a transcoder script that drains stdin and writes a
// fixed payload to the output path, standing in for a successful encode.
const CopyArtifactStub = `#!/bin/sh
for arg in "$@"; do out="$arg"; done
cat > /dev/null
printf 'fake-mp4-artifact-bytes' > "$out"
`

// FailingStub is a transcoder script that drains stdin, complains on
// stderr, and exits non-zero without producing output.
const FailingStub = `#!/bin/sh
cat > /dev/null
echo "encoder initialization failed: no capable device" >&2
exit 3
`
