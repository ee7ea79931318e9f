package preflight

import (
	"context"

	"xia2pipe/internal/config"
	"xia2pipe/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Degraded marks a passing check whose subject is unavailable but not
	// required, such as a missing optional tool.
	Degraded bool
	Detail   string
}

// Pinger is satisfied by the catalogue gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunAll executes every environment check for the given config. A nil
// pinger skips the catalogue check.
func RunAll(ctx context.Context, cfg *config.Config, catalogue Pinger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Results root", cfg.Pipeline.ResultsRoot))
	results = append(results, CheckFreeSpace("Free space", cfg.Pipeline.ResultsRoot, cfg.Preflight.MinFreeGiB))
	results = append(results, CheckDirectoryAccess("Script directory", cfg.Scheduler.ScriptDir))
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, FromDependency(status))
	}
	if catalogue != nil {
		results = append(results, CheckCatalogue(ctx, catalogue))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
