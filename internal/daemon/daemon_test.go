package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"xia2pipe/internal/catalogsync"
	"xia2pipe/internal/daemon"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
	"xia2pipe/internal/submit"
	"xia2pipe/internal/testsupport"
)

type recorder struct {
	calls     []string
	submitErr error
	syncErr   error
}

func (r *recorder) SubmitUnfinished(_ context.Context, stage layout.Stage, _ int) (submit.Summary, error) {
	r.calls = append(r.calls, "submit "+string(stage))
	return submit.Summary{Submitted: 1}, r.submitErr
}

func (r *recorder) Sync(_ context.Context, stage layout.Stage) (catalogsync.Summary, error) {
	r.calls = append(r.calls, "sync "+string(stage))
	return catalogsync.Summary{Stage: stage}, r.syncErr
}

func TestRunPassOrderAndToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Refine = false
	rec := &recorder{}
	d, err := daemon.New(cfg, rec, rec, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	result, err := d.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	want := []string{"sync reduction", "sync refinement", "submit reduction"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Fatalf("steps (-want +got):\n%s", diff)
	}
	if result.ID == "" {
		t.Fatal("expected a pass id")
	}
	if result.Submitted[layout.Reduction].Submitted != 1 {
		t.Fatalf("unexpected submit summary %+v", result.Submitted)
	}
}

func TestRunPassContinuesAfterStepFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rec := &recorder{syncErr: services.Wrap(services.ErrLookup, "", "sync", "catalogue unreachable", nil)}
	d, err := daemon.New(cfg, rec, rec, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	result, err := d.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if result.StepErrors != 2 || len(rec.calls) != 4 {
		t.Fatalf("step errors = %d, calls = %v", result.StepErrors, rec.calls)
	}
}

func TestRunPassStopsOnConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rec := &recorder{submitErr: services.Wrap(services.ErrConfiguration, "refinement", "validate", "no reference", nil)}
	d, err := daemon.New(cfg, rec, rec, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if d.Running() {
		t.Fatal("daemon should not report running after Run returns")
	}
}

func TestSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.PollInterval = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	first, err := daemon.New(cfg, &recorder{}, &recorder{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, &recorder{}, &recorder{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for first.Passes() == 0 {
		select {
		case <-deadline:
			t.Fatal("first watcher never completed a pass")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if err := second.Run(context.Background()); err == nil {
		t.Fatal("second watcher should not acquire the lock")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}
