package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by the CLI and daemon.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	SpoolDir string `toml:"spool_dir"`
}

// Encoder contains configuration for the remote encoder daemon.
type Encoder struct {
	Bind           string `toml:"bind"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	Scaler         string `toml:"scaler"`
	TargetWidth    int    `toml:"target_width"`
	TargetHeight   int    `toml:"target_height"`
	MaxChunkMiB    int    `toml:"max_chunk_mib"`
	SessionMaxAge  int    `toml:"session_max_age"`
	TranscodeLimit int    `toml:"transcode_limit"`
	ShutdownGrace  int    `toml:"shutdown_grace"`
	RetentionSweep int    `toml:"retention_sweep"`
}

// Transport contains configuration for the frame-streaming client.
type Transport struct {
	RemoteAddr     string `toml:"remote_addr"`
	QueueDepth     int    `toml:"queue_depth"`
	DialTimeout    int    `toml:"dial_timeout"`
	WriteTimeout   int    `toml:"write_timeout"`
	ResultTimeout  int    `toml:"result_timeout"`
	MaxArtifactMiB int    `toml:"max_artifact_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for framecast.
//
// Configuration sections by subsystem:
//   - Paths: log and session spool directories
//   - Encoder: daemon bind address, ffmpeg policy, and session retention
//   - Transport: client queue depth and timeouts
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Encoder   Encoder   `toml:"encoder"`
	Transport Transport `toml:"transport"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/framecast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("framecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SpoolDir, err = expandPath(c.Paths.SpoolDir); err != nil {
		return fmt.Errorf("paths.spool_dir: %w", err)
	}
	if strings.TrimSpace(c.Encoder.FFmpegBinary) == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.Scaler = strings.ToLower(strings.TrimSpace(c.Encoder.Scaler))
	if c.Encoder.Scaler == "" {
		c.Encoder.Scaler = defaultScaler
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.SpoolDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "framecastd.sock")
}

// MaxChunkBytes returns the configured frame chunk ceiling in bytes.
func (c *Config) MaxChunkBytes() int {
	return c.Encoder.MaxChunkMiB * 1024 * 1024
}

// SessionMaxAge returns the retention window for finished sessions.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Encoder.SessionMaxAge) * time.Second
}

// DialTimeout returns the client connect timeout.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Transport.DialTimeout) * time.Second
}

// WriteTimeout returns the per-write deadline for outbound frame chunks.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Transport.WriteTimeout) * time.Second
}

// MaxArtifactBytes returns the ceiling on a returned artifact in bytes.
func (c *Config) MaxArtifactBytes() int64 {
	return int64(c.Transport.MaxArtifactMiB) * 1024 * 1024
}

// ResultTimeout returns how long the client waits for the encoded artifact.
func (c *Config) ResultTimeout() time.Duration {
	return time.Duration(c.Transport.ResultTimeout) * time.Second
}

// TranscodeLimit returns the ceiling on a single transcoder run.
func (c *Config) TranscodeLimit() time.Duration {
	return time.Duration(c.Encoder.TranscodeLimit) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
