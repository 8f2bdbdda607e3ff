// Package config loads, normalizes, and validates m4bmerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the M4BMERGE_FFMPEG and
// M4BMERGE_FFPROBE environment fallbacks. Struct tags checked by
// go-playground/validator cover the simple range and enum rules; the rest
// are hand checks in validate.go.
//
// Command-line flags override these values after Load returns.
package config
