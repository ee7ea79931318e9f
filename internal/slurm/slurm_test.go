package slurm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
	"xia2pipe/internal/slurm"
	"xia2pipe/internal/testsupport"
)

type stubExecutor struct {
	lines  []string
	err    error
	calls  [][]string
	onCall func(args []string)
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls = append(s.calls, append([]string{binary}, args...))
	if s.onCall != nil {
		s.onCall(args)
	}
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

func TestInFlightMatchesPipelineJobNames(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	exec := &stubExecutor{lines: []string{
		"      4711        DIALS-xia2_S1-1",
		"      4712        DIALS-dmpl_S2-3",
		"      4713        XDS-xia2_S3-1",
		"4714.batch        batch",
		"",
	}}
	inspector := slurm.NewInspector(l, cfg, slurm.WithExecutor(exec))

	reduction, err := inspector.InFlight(context.Background(), layout.Reduction)
	if err != nil {
		t.Fatalf("InFlight: %v", err)
	}
	if diff := cmp.Diff([]layout.WorkItem{{Sample: "S1", Run: 1}}, reduction.Items()); diff != "" {
		t.Fatalf("reduction in flight (-want +got):\n%s", diff)
	}
	refinement, err := inspector.InFlight(context.Background(), layout.Refinement)
	if err != nil {
		t.Fatalf("InFlight: %v", err)
	}
	if !refinement.Has(layout.WorkItem{Sample: "S2", Run: 3}) || refinement.Len() != 1 {
		t.Fatalf("unexpected refinement set %v", refinement.Items())
	}

	want := []string{"sacct", "--format=JobID,JobName%50", "--state=RUNNING,PENDING", "--noheader"}
	if diff := cmp.Diff(want, exec.calls[0]); diff != "" {
		t.Fatalf("sacct call (-want +got):\n%s", diff)
	}
}

func TestJobsReportsIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{lines: []string{"4712 DIALS-dmpl_S2-3"}}
	jobs, err := slurm.NewInspector(layout.New(cfg), cfg, slurm.WithExecutor(exec)).Jobs(context.Background())
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	want := []slurm.Job{{ID: "4712", Name: "DIALS-dmpl_S2-3", Item: layout.WorkItem{Sample: "S2", Run: 3}, Stage: layout.Refinement}}
	if diff := cmp.Diff(want, jobs); diff != "" {
		t.Fatalf("jobs (-want +got):\n%s", diff)
	}
}

func TestInFlightSchedulerFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{err: errors.New("slurm_load_jobs error")}
	_, err := slurm.NewInspector(layout.New(cfg), cfg, slurm.WithExecutor(exec)).InFlight(context.Background(), layout.Reduction)
	if !errors.Is(err, services.ErrScheduler) {
		t.Fatalf("expected scheduler error, got %v", err)
	}
}

func TestSubmitRemovesScriptOnSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var seen string
	exec := &stubExecutor{lines: []string{"Submitted batch job 90210"}}
	exec.onCall = func(args []string) {
		seen = args[len(args)-1]
		data, err := os.ReadFile(seen)
		if err != nil {
			t.Errorf("script not readable during submission: %v", err)
			return
		}
		if !strings.HasPrefix(string(data), "#!/bin/bash") {
			t.Errorf("unexpected script body %q", data)
		}
	}

	id, err := slurm.NewSubmitter(cfg, slurm.WithExecutor(exec)).Submit(context.Background(), "DIALS-xia2_S1-1", "#!/bin/bash\necho hi\n")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "90210" {
		t.Fatalf("job id = %q", id)
	}
	if filepath.Dir(seen) != cfg.Scheduler.ScriptDir || !strings.HasPrefix(filepath.Base(seen), "DIALS-xia2_S1-1-") {
		t.Fatalf("unexpected script path %q", seen)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Fatalf("script should be removed after submission, stat err=%v", err)
	}
}

func TestSubmitKeepsScriptOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var seen string
	exec := &stubExecutor{err: errors.New("invalid partition")}
	exec.onCall = func(args []string) { seen = args[len(args)-1] }

	_, err := slurm.NewSubmitter(cfg, slurm.WithExecutor(exec)).Submit(context.Background(), "DIALS-dmpl_S1-1", "#!/bin/bash\n")
	if !errors.Is(err, services.ErrScheduler) {
		t.Fatalf("expected scheduler error, got %v", err)
	}
	if !strings.Contains(err.Error(), seen) {
		t.Fatalf("error should name the kept script %q: %v", seen, err)
	}
	if _, statErr := os.Stat(seen); statErr != nil {
		t.Fatalf("script should be kept: %v", statErr)
	}
}
