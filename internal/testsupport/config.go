package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"xia2pipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Results, raw data, scripts, logs and the sqlite catalogue all live below one
// temp root.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Pipeline.Name = "DIALS"
	cfgVal.Pipeline.Project = "SARSCOV2"
	cfgVal.Pipeline.ResultsRoot = filepath.Join(base, "processed")
	cfgVal.Raw.Roots = []string{filepath.Join(base, "raw")}
	cfgVal.Scheduler.ScriptDir = filepath.Join(base, "scripts")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Catalogue.DSN = filepath.Join(base, "catalogue.db")
	cfgVal.Refinement.ReferencePDB = filepath.Join(base, "refs", "reference.pdb")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithResolutionCutoff sets refinement.resolution_cutoff.
func WithResolutionCutoff(cutoff float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refinement.ResolutionCutoff = cutoff
	}
}

// WithReferencePDB overrides the refinement reference structure. An empty
// path clears it.
func WithReferencePDB(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refinement.ReferencePDB = path
	}
}

// WithReferenceCandidates sets the reference structures dimple may choose from.
func WithReferenceCandidates(paths ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Refinement.ReferenceCandidates = append([]string(nil), paths...)
	}
}

// WithStatisticsSelection sets reduction.statistics_selection.
func WithStatisticsSelection(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reduction.StatisticsSelection = mode
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, sbatch and sacct are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"sbatch", "sacct"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Pipeline.ResultsRoot)
}
