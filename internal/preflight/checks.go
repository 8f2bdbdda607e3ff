package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"m4bmerge/internal/config"
	"m4bmerge/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputLocation verifies that the directory receiving output can be
// written to.
func CheckOutputLocation(output string) Result {
	dir := filepath.Dir(output)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return CheckDirectoryAccess("Output directory", dir)
}

// CheckSystemDeps evaluates the external executables named by cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaTools(cfg.Tools.FFmpeg, cfg.Tools.FFprobe))
}
