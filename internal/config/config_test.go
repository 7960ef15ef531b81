package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Encoder.Bind != "127.0.0.1:7823" {
		t.Fatalf("unexpected default bind %s", cfg.Encoder.Bind)
	}
	if cfg.Transport.QueueDepth != 8 {
		t.Fatalf("unexpected default queue depth %d", cfg.Transport.QueueDepth)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
log_dir = "` + filepath.Join(dir, "logs") + `"
spool_dir = "` + filepath.Join(dir, "spool") + `"

[encoder]
bind = "127.0.0.1:9000"
scaler = "NPP"
target_width = 1920
target_height = 1080

[transport]
remote_addr = "encoder.local:9000"
queue_depth = 4

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Encoder.Bind != "127.0.0.1:9000" {
		t.Fatalf("bind not loaded: %s", cfg.Encoder.Bind)
	}
	if cfg.Encoder.Scaler != "npp" {
		t.Fatalf("scaler should be lowercased: %s", cfg.Encoder.Scaler)
	}
	if cfg.Transport.RemoteAddr != "encoder.local:9000" || cfg.Transport.QueueDepth != 4 {
		t.Fatalf("transport not loaded: %+v", cfg.Transport)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level should be lowercased: %s", cfg.Logging.Level)
	}
	// Unset sections keep defaults.
	if cfg.Encoder.MaxChunkMiB != 32 {
		t.Fatalf("expected default chunk ceiling, got %d", cfg.Encoder.MaxChunkMiB)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file should report exists=false")
	}
	if cfg.Encoder.Bind != "127.0.0.1:7823" {
		t.Fatalf("expected defaults, got bind %s", cfg.Encoder.Bind)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scaler", func(c *Config) { c.Encoder.Scaler = "metal" }, "encoder.scaler"},
		{"zero chunk", func(c *Config) { c.Encoder.MaxChunkMiB = 0 }, "max_chunk_mib"},
		{"zero retention", func(c *Config) { c.Encoder.SessionMaxAge = 0 }, "session_max_age"},
		{"zero limit", func(c *Config) { c.Encoder.TranscodeLimit = 0 }, "transcode_limit"},
		{"no bind", func(c *Config) { c.Encoder.Bind = " " }, "encoder.bind"},
		{"no remote", func(c *Config) { c.Transport.RemoteAddr = "" }, "remote_addr"},
		{"zero depth", func(c *Config) { c.Transport.QueueDepth = 0 }, "queue_depth"},
		{"zero result timeout", func(c *Config) { c.Transport.ResultTimeout = 0 }, "result_timeout"},
		{"zero artifact ceiling", func(c *Config) { c.Transport.MaxArtifactMiB = 0 }, "max_artifact_mib"},
		{"lone width", func(c *Config) { c.Encoder.TargetWidth = 1280 }, "set together"},
		{"negative height", func(c *Config) { c.Encoder.TargetWidth = 1; c.Encoder.TargetHeight = -1 }, "not be negative"},
		{"no log dir", func(c *Config) { c.Paths.LogDir = "" }, "log_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	if cfg.SessionMaxAge() != time.Hour {
		t.Fatalf("unexpected session max age %v", cfg.SessionMaxAge())
	}
	if cfg.TranscodeLimit() != 30*time.Minute {
		t.Fatalf("unexpected transcode limit %v", cfg.TranscodeLimit())
	}
	if cfg.MaxChunkBytes() != 32*1024*1024 {
		t.Fatalf("unexpected chunk ceiling %d", cfg.MaxChunkBytes())
	}
	if cfg.ResultTimeout() != 5*time.Minute {
		t.Fatalf("unexpected result timeout %v", cfg.ResultTimeout())
	}
	if cfg.MaxArtifactBytes() != 2048*1024*1024 {
		t.Fatalf("unexpected artifact ceiling %d", cfg.MaxArtifactBytes())
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/frames")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "frames") {
		t.Fatalf("unexpected expansion %s", got)
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestSocketPath(t *testing.T) {
	cfg := Default()
	cfg.Paths.LogDir = "/tmp/fc-logs"
	if cfg.SocketPath() != filepath.Join("/tmp/fc-logs", "framecastd.sock") {
		t.Fatalf("unexpected socket path %s", cfg.SocketPath())
	}
}
