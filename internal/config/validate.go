package config

import (
	"errors"
	"fmt"
	"strings"
)

var validScalers = map[string]struct{}{
	"auto": {},
	"npp":  {},
	"cuda": {},
	"cpu":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.SpoolDir) == "" {
		return errors.New("paths.spool_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if strings.TrimSpace(c.Encoder.Bind) == "" {
		return errors.New("encoder.bind must be set")
	}
	if _, ok := validScalers[c.Encoder.Scaler]; !ok {
		return fmt.Errorf("encoder.scaler must be one of auto, npp, cuda, cpu (got %q)", c.Encoder.Scaler)
	}
	if c.Encoder.MaxChunkMiB <= 0 {
		return errors.New("encoder.max_chunk_mib must be positive")
	}
	if c.Encoder.SessionMaxAge <= 0 {
		return errors.New("encoder.session_max_age must be positive")
	}
	if c.Encoder.TranscodeLimit <= 0 {
		return errors.New("encoder.transcode_limit must be positive")
	}
	if c.Encoder.ShutdownGrace <= 0 {
		return errors.New("encoder.shutdown_grace must be positive")
	}
	if c.Encoder.RetentionSweep <= 0 {
		return errors.New("encoder.retention_sweep must be positive")
	}
	if c.Encoder.TargetWidth < 0 || c.Encoder.TargetHeight < 0 {
		return errors.New("encoder.target_width and encoder.target_height must not be negative")
	}
	if (c.Encoder.TargetWidth == 0) != (c.Encoder.TargetHeight == 0) {
		return errors.New("encoder.target_width and encoder.target_height must be set together")
	}
	return nil
}

func (c *Config) validateTransport() error {
	if strings.TrimSpace(c.Transport.RemoteAddr) == "" {
		return errors.New("transport.remote_addr must be set")
	}
	if c.Transport.QueueDepth <= 0 {
		return errors.New("transport.queue_depth must be positive")
	}
	if c.Transport.DialTimeout <= 0 {
		return errors.New("transport.dial_timeout must be positive")
	}
	if c.Transport.WriteTimeout <= 0 {
		return errors.New("transport.write_timeout must be positive")
	}
	if c.Transport.ResultTimeout <= 0 {
		return errors.New("transport.result_timeout must be positive")
	}
	if c.Transport.MaxArtifactMiB <= 0 {
		return errors.New("transport.max_artifact_mib must be positive")
	}
	return nil
}
