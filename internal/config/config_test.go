package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"xia2pipe/internal/config"
)

func TestLoadDefaultConfigUsesEnvResultsRootAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("X2P_RESULTS_ROOT", "~/processed")
	t.Setenv("X2P_CATALOGUE_DSN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Pipeline.ResultsRoot != filepath.Join(tempHome, "processed") {
		t.Fatalf("unexpected results root: %q", cfg.Pipeline.ResultsRoot)
	}
	if cfg.Catalogue.DSN != filepath.Join(tempHome, ".local", "share", "xia2pipe", "catalogue.db") {
		t.Fatalf("unexpected catalogue dsn: %q", cfg.Catalogue.DSN)
	}
	if cfg.Logging.Dir != filepath.Join(tempHome, ".local", "share", "xia2pipe", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Logging.Dir)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, cfg.Refinement.Trials); diff != "" {
		t.Fatalf("unexpected trials (-want +got):\n%s", diff)
	}
	if cfg.Raw.MinImages != 20 {
		t.Fatalf("expected min images 20, got %d", cfg.Raw.MinImages)
	}
	if cfg.Reduction.StatisticsSelection != config.SelectionFirst {
		t.Fatalf("expected first-in-order selection by default, got %q", cfg.Reduction.StatisticsSelection)
	}
	if cfg.PipelineDir() != filepath.Join(tempHome, "processed", "DIALS") {
		t.Fatalf("unexpected pipeline dir: %q", cfg.PipelineDir())
	}
}

func TestLoadMissingResultsRootFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("X2P_RESULTS_ROOT", "")
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when results root is missing")
	}
	if !strings.Contains(err.Error(), "results_root") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCustomTOML(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("X2P_CATALOGUE_DSN", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[pipeline]
name = "XDS"
project = "MPRO"
results_root = "~/results"

[raw]
roots = ["~/raw-a", "", "/data/raw-b"]

[refinement]
method = "XDS-dmpl"
reference_pdb = "/refs/mpro.pdb"
resolution_cutoff = 2.0
trials = [3, 1, 2]

[catalogue]
driver = "postgresql"
dsn = "postgres://x2p@db/campaign"
namespace = "campaign"

[layout.refinement]
primary = "final.pdb"
error_markers = ["*.fail"]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Pipeline.Name != "XDS" || cfg.Pipeline.Project != "MPRO" {
		t.Fatalf("unexpected pipeline section: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.ResultsRoot != filepath.Join(tempHome, "results") {
		t.Fatalf("unexpected results root: %q", cfg.Pipeline.ResultsRoot)
	}
	wantRoots := []string{filepath.Join(tempHome, "raw-a"), "/data/raw-b"}
	if diff := cmp.Diff(wantRoots, cfg.Raw.Roots); diff != "" {
		t.Fatalf("unexpected raw roots (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, cfg.Refinement.Trials); diff != "" {
		t.Fatalf("trials should be sorted (-want +got):\n%s", diff)
	}
	if cfg.Catalogue.Driver != config.DriverPostgres {
		t.Fatalf("expected postgres driver alias to normalize, got %q", cfg.Catalogue.Driver)
	}
	if cfg.Catalogue.DSN != "postgres://x2p@db/campaign" {
		t.Fatalf("postgres dsn must not be path-expanded: %q", cfg.Catalogue.DSN)
	}
	if cfg.Layout.Refinement.Primary != "final.pdb" {
		t.Fatalf("unexpected layout override: %+v", cfg.Layout.Refinement)
	}
	if diff := cmp.Diff([]string{"/refs/mpro.pdb"}, cfg.ReferenceCandidates()); diff != "" {
		t.Fatalf("reference candidates should fall back to reference_pdb (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("X2P_CATALOGUE_DSN", "")

	configPath := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
pipeline:
  name: DIALS
  project: SARSCOV2
  results_root: /processed
refinement:
  reference_candidates:
    - /refs/a.pdb
    - /refs/b.pdb
  resolution_cutoff: 1.9
reduction:
  statistics_selection: Crystal
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected yaml config to exist")
	}
	if cfg.Refinement.ResolutionCutoff != 1.9 {
		t.Fatalf("unexpected cutoff: %v", cfg.Refinement.ResolutionCutoff)
	}
	if cfg.Reduction.StatisticsSelection != config.SelectionCrystal {
		t.Fatalf("unexpected selection: %q", cfg.Reduction.StatisticsSelection)
	}
	if diff := cmp.Diff([]string{"/refs/a.pdb", "/refs/b.pdb"}, cfg.ReferenceCandidates()); diff != "" {
		t.Fatalf("unexpected candidates (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "pipeline.yml")
	if err := os.WriteFile(configPath, []byte("pipeline:\n  nmae: typo\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown yaml key to fail")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Pipeline.ResultsRoot = "/processed"
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad pipeline name", func(c *config.Config) { c.Pipeline.Name = "a b" }, "pipeline.name"},
		{"unknown driver", func(c *config.Config) { c.Catalogue.Driver = "mysql" }, "catalogue.driver"},
		{"sqlite namespace", func(c *config.Config) { c.Catalogue.Namespace = "campaign" }, "namespace"},
		{"bad selection", func(c *config.Config) { c.Reduction.StatisticsSelection = "last" }, "statistics_selection"},
		{"negative cutoff", func(c *config.Config) { c.Refinement.ResolutionCutoff = -1 }, "resolution_cutoff"},
		{"no trials", func(c *config.Config) { c.Refinement.Trials = nil }, "trials"},
		{"duplicate trial", func(c *config.Config) { c.Refinement.Trials = []int{1, 1} }, "twice"},
		{"zero trial", func(c *config.Config) { c.Refinement.Trials = []int{0, 1} }, "positive"},
		{"bad table", func(c *config.Config) { c.Catalogue.RefinementTable = "Refinement; DROP" }, "identifier"},
		{"shared method", func(c *config.Config) {
			c.Refinement.Method = c.Reduction.Method
			c.Catalogue.RefinementTable = c.Catalogue.ReductionTable
		}, "refinement.method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultValidatesWithResultsRoot(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.ResultsRoot = "/processed"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if parsed.Pipeline.Name != "DIALS" {
		t.Fatalf("unexpected sample pipeline name: %q", parsed.Pipeline.Name)
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("X2P_CATALOGUE_DSN", "")
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesScriptAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Pipeline.ResultsRoot = filepath.Join(base, "processed")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	cfg.Scheduler.ScriptDir = filepath.Join(base, "scripts")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Logging.Dir, cfg.Scheduler.ScriptDir, cfg.PipelineDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
