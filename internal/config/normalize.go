package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeMerge()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(strings.TrimSpace(c.Paths.TempDir)); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	var err error
	if c.Tools.FFmpeg, err = resolveTool(c.Tools.FFmpeg, EnvFFmpeg, defaultFFmpeg); err != nil {
		return fmt.Errorf("tools.ffmpeg: %w", err)
	}
	if c.Tools.FFprobe, err = resolveTool(c.Tools.FFprobe, EnvFFprobe, defaultFFprobe); err != nil {
		return fmt.Errorf("tools.ffprobe: %w", err)
	}
	return nil
}

// resolveTool keeps bare executable names for PATH lookup and expands
// anything that looks like a path.
func resolveTool(value, envKey, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if env, ok := os.LookupEnv(envKey); ok {
			value = strings.TrimSpace(env)
		}
	}
	if value == "" {
		return fallback, nil
	}
	if strings.ContainsAny(value, `/\`) || strings.HasPrefix(value, "~") {
		return expandPath(value)
	}
	return value, nil
}

func (c *Config) normalizeMerge() {
	c.Merge.Codec = strings.ToLower(strings.TrimSpace(c.Merge.Codec))
	if strings.TrimSpace(c.Merge.ChapterTitleFormat) == "" {
		c.Merge.ChapterTitleFormat = defaultChapterTitleFormat
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "":
		c.Logging.Level = defaultLogLevel
	case "warning":
		c.Logging.Level = "warn"
	default:
		c.Logging.Level = level
	}
}
