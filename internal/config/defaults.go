package config

const (
	defaultLogDir         = "~/.local/share/framecast/logs"
	defaultSpoolDir       = "~/.local/share/framecast/spool"
	defaultEncoderBind    = "127.0.0.1:7823"
	defaultFFmpegBinary   = "ffmpeg"
	defaultScaler         = "auto"
	defaultMaxChunkMiB    = 32
	defaultSessionMaxAge  = 3600
	defaultTranscodeLimit = 1800
	defaultShutdownGrace  = 5
	defaultRetentionSweep = 300
	defaultQueueDepth     = 8
	defaultDialTimeout    = 10
	defaultWriteTimeout   = 30
	defaultResultTimeout  = 300
	defaultMaxArtifactMiB = 2048
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			SpoolDir: defaultSpoolDir,
		},
		Encoder: Encoder{
			Bind:           defaultEncoderBind,
			FFmpegBinary:   defaultFFmpegBinary,
			Scaler:         defaultScaler,
			MaxChunkMiB:    defaultMaxChunkMiB,
			SessionMaxAge:  defaultSessionMaxAge,
			TranscodeLimit: defaultTranscodeLimit,
			ShutdownGrace:  defaultShutdownGrace,
			RetentionSweep: defaultRetentionSweep,
		},
		Transport: Transport{
			RemoteAddr:     defaultEncoderBind,
			QueueDepth:     defaultQueueDepth,
			DialTimeout:    defaultDialTimeout,
			WriteTimeout:   defaultWriteTimeout,
			ResultTimeout:  defaultResultTimeout,
			MaxArtifactMiB: defaultMaxArtifactMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
