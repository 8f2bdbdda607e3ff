package config

const (
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultChapterTitleFormat = "Chapter %d"
	defaultLogFormat          = "console"
	defaultLogLevel           = "warn"
)

// Environment fallbacks consulted when the config file leaves a value empty.
const (
	EnvFFmpeg  = "M4BMERGE_FFMPEG"
	EnvFFprobe = "M4BMERGE_FFPROBE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Merge: Merge{
			ChapterTitleFormat: defaultChapterTitleFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
