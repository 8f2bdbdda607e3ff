// Package textutil provides the small formatting helpers shared by log lines,
// status output, and tables: clock-style durations, display casing, and
// key=value parsing for user-supplied tags.
package textutil
