package config

const (
	defaultWorkDir        = "~/.local/share/slidecast/work"
	defaultLogDir         = "~/.local/share/slidecast/logs"
	defaultMinFrameLength = 0.1
	defaultMaxFrameLength = 10.0
	defaultFrameRate      = 24
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Slideshow: Slideshow{
			MinFrameLength: defaultMinFrameLength,
			MaxFrameLength: defaultMaxFrameLength,
			FrameRate:      defaultFrameRate,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
	}
}
