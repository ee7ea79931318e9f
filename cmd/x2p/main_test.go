package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	layout     *layout.Layout
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Preflight.MinFreeGiB = 0
	base := testsupport.BaseDir(cfg)

	binDir := filepath.Join(base, "bin")
	makeStubExecutables(t, binDir, map[string]string{
		"sbatch": "#!/bin/sh\necho \"Submitted batch job 42\"\n",
		"sacct":  "#!/bin/sh\nexit 0\n",
	})
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	configPath := filepath.Join(base, "x2p.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		layout:     layout.New(cfg),
		configPath: configPath,
		baseDir:    base,
	}
	if _, _, err := runCLI(t, []string{"catalogue", "init"}, env.configPath, nil); err != nil {
		t.Fatalf("catalogue init: %v", err)
	}
	return env
}

// addRun records a successful diffraction for item and lays out its raw images.
func (e *cliTestEnv) addRun(t *testing.T, item layout.WorkItem) {
	t.Helper()
	testsupport.WriteRawImages(t, filepath.Join(e.cfg.Raw.Roots[0], item.Sample, item.Crystal()), 30)
	if _, _, err := runCLI(t, []string{"catalogue", "record-diffraction", item.String()}, e.configPath, nil); err != nil {
		t.Fatalf("record-diffraction %s: %v", item, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func makeStubExecutables(t *testing.T, dir string, scripts map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create stub bin dir: %v", err)
	}
	for name, script := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", nil); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, "DIALS")
}

func TestStatusAndReduce(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addRun(t, layout.WorkItem{Sample: "S1", Run: 1})

	out, _, err := runCLI(t, []string{"status", "reduction"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Reduction")
	requireContains(t, out, "To submit")

	out, _, err = runCLI(t, []string{"reduce"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	requireContains(t, out, "Submitted 1, skipped 0, failed 0")

	scripts, err := filepath.Glob(filepath.Join(env.cfg.Scheduler.ScriptDir, "*.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Fatalf("submitted scripts should be removed, found %v", scripts)
	}
}

func TestSyncDryRunThenInsert(t *testing.T) {
	env := setupCLITestEnv(t)
	item := layout.WorkItem{Sample: "S1", Run: 1}
	env.addRun(t, item)
	testsupport.WriteReductionOutputs(t, env.layout, item, "1.65")

	out, stderr, err := runCLI(t, []string{"sync", "reduction", "--dry-run"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("sync --dry-run: %v", err)
	}
	requireContains(t, out, "INSERT INTO")
	requireContains(t, out, "'S1'")
	requireContains(t, stderr, "inserted 1")

	out, _, err = runCLI(t, []string{"sync", "reduce"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "inserted 1, already present 0")

	out, _, err = runCLI(t, []string{"sync", "reduction"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	requireContains(t, out, "inserted 0, already present 1")
}

func TestRetryConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	item := layout.WorkItem{Sample: "S1", Run: 2}
	env.addRun(t, item)
	marker := filepath.Join(env.layout.OutputDir(item), "xia2-error.txt")
	testsupport.WriteFile(t, marker, "Error: no spots found")

	out, _, err := runCLI(t, []string{"retry", "reduction"}, env.configPath, strings.NewReader("n\n"))
	if err != nil {
		t.Fatalf("retry declined: %v", err)
	}
	requireContains(t, out, "Aborted")
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("declined retry removed the marker: %v", err)
	}

	out, _, err = runCLI(t, []string{"retry", "xia2", "S1/2", "--yes"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("retry --yes: %v", err)
	}
	requireContains(t, out, "Removed 1 marker(s) for 1 item(s)")
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("marker still present: %v", err)
	}

	out, _, err = runCLI(t, []string{"retry", "reduction"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("retry after clearing: %v", err)
	}
	requireContains(t, out, "No failed reduction items")
}

func TestCheckPassesWithStubbedScheduler(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "sbatch")
	requireContains(t, out, "Catalogue")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failure:\n%s", out)
	}
}

func TestWatchOnce(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addRun(t, layout.WorkItem{Sample: "S1", Run: 1})

	out, _, err := runCLI(t, []string{"watch", "--once"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("watch --once: %v", err)
	}
	requireContains(t, out, "with 0 step error(s)")
}

func TestUnknownStage(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"status", "phasing"}, env.configPath, nil); err == nil {
		t.Fatal("expected unknown stage to fail")
	}
}

func TestExitCodes(t *testing.T) {
	env := setupCLITestEnv(t)
	if got := exitCode(nil); got != 0 {
		t.Fatalf("exitCode(nil) = %d, want 0", got)
	}

	_, _, err := runCLI(t, []string{"status", "phasing"}, env.configPath, nil)
	if got := exitCode(err); got != 1 {
		t.Fatalf("unknown stage exit code = %d, want 1 (%v)", got, err)
	}

	broken := filepath.Join(env.baseDir, "broken.toml")
	if err := os.WriteFile(broken, []byte("[pipeline\nname = \"DIALS\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err = runCLI(t, []string{"status"}, broken, nil)
	if err == nil {
		t.Fatal("expected malformed config to fail")
	}
	if got := exitCode(err); got != 2 {
		t.Fatalf("malformed config exit code = %d, want 2 (%v)", got, err)
	}
}

func TestStatusFailedAndItemLogs(t *testing.T) {
	env := setupCLITestEnv(t)
	item := layout.WorkItem{Sample: "S2", Run: 7}
	env.addRun(t, item)
	marker := filepath.Join(env.layout.OutputDir(item), "DIALS_S2-7.xia2.err")
	testsupport.WriteFile(t, marker, "slurmstepd: error\nDUE TO TIME LIMIT\n")

	out, _, err := runCLI(t, []string{"status", "reduction", "--failed"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("status --failed: %v", err)
	}
	requireContains(t, out, "S2/7")
	requireContains(t, out, "DUE TO TIME LIMIT")

	out, _, err = runCLI(t, []string{"logs", "reduction", "S2_007", "-n", "1"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "DUE TO TIME LIMIT")
	if strings.Contains(out, "slurmstepd") {
		t.Fatalf("expected only the last line, got:\n%s", out)
	}
}

func TestItemLogsShowQueuedItemInProgress(t *testing.T) {
	env := setupCLITestEnv(t)
	item := layout.WorkItem{Sample: "S3", Run: 4}
	env.addRun(t, item)
	testsupport.WriteFile(t, filepath.Join(env.layout.OutputDir(item), "xia2-error.txt"), "previous attempt\n")
	makeStubExecutables(t, filepath.Join(env.baseDir, "bin"), map[string]string{
		"sacct": "#!/bin/sh\necho \"101 DIALS-xia2_S3-4 RUNNING\"\n",
	})

	out, _, err := runCLI(t, []string{"logs", "reduction", "S3/4"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "reduction in-progress-unknown")
	requireContains(t, out, "previous attempt")
}

func TestRenderReportsAddsTotals(t *testing.T) {
	out := renderReports([]reconcile.Report{
		{Stage: layout.Reduction, Fetched: 5, Eligible: 4, Finished: 2, ToSubmit: 2},
		{Stage: layout.Refinement, Fetched: 2, Eligible: 2, Failed: 1, InFlight: 1},
	})
	for _, want := range []string{"To submit", "Reduction", "Refinement", "Total"} {
		requireContains(t, out, want)
	}
	single := renderReports([]reconcile.Report{{Stage: layout.Reduction}})
	if strings.Contains(single, "Total") {
		t.Fatalf("single stage should have no totals row:\n%s", single)
	}
}
