// Package main hosts the m4bmerge CLI entrypoint and command graph.
//
// The root command merges its arguments into one chaptered m4b file through
// internal/merge. Subcommands probe inputs (inspect), check the local
// toolchain (doctor), and scaffold configuration (config). Flags override
// values from the config file.
package main
