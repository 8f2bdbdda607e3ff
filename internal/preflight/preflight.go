package preflight

import (
	"context"

	"m4bmerge/internal/config"
	"m4bmerge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, toolResult(ctx, status))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func toolResult(ctx context.Context, status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Resolved
	if version := deps.ToolVersion(ctx, status.Resolved); version != "" {
		detail = detail + " (" + version + ")"
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}
