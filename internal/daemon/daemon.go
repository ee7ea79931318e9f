package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"xia2pipe/internal/catalogsync"
	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/services"
	"xia2pipe/internal/submit"
)

// Submitter submits a stage's unfinished items.
type Submitter interface {
	SubmitUnfinished(ctx context.Context, stage layout.Stage, limit int) (submit.Summary, error)
}

// Syncer records a stage's finished items.
type Syncer interface {
	Sync(ctx context.Context, stage layout.Stage) (catalogsync.Summary, error)
}

// PassResult collects the step summaries of one pass.
type PassResult struct {
	ID          string
	Synced      map[layout.Stage]catalogsync.Summary
	Submitted   map[layout.Stage]submit.Summary
	StepErrors  int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Daemon repeats passes until its context is cancelled.
type Daemon struct {
	workflow config.Workflow
	submit   Submitter
	sync     Syncer
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
	passes   atomic.Int64
}

// New builds a Daemon for the configured pipeline.
func New(cfg *config.Config, submitter Submitter, syncer Syncer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || submitter == nil || syncer == nil {
		return nil, errors.New("daemon requires config, submitter and syncer")
	}
	lockPath := LockPath(cfg)
	return &Daemon{
		workflow: cfg.Workflow,
		submit:   submitter,
		sync:     syncer,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath returns the single-instance lock file of the pipeline.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Logging.Dir, cfg.Pipeline.Name+".lock")
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// Passes returns the number of completed passes.
func (d *Daemon) Passes() int64 { return d.passes.Load() }

// Run acquires the pipeline lock and runs passes every poll interval until
// ctx is cancelled. Configuration errors stop the loop.
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another watcher holds %s", d.lockPath)
	}
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release watch lock", logging.Error(err))
		}
	}()

	interval := time.Duration(d.workflow.PollInterval) * time.Second
	d.logger.Info("watch started",
		logging.String("lock", d.lockPath),
		logging.Duration("interval", interval),
	)
	for {
		if _, err := d.RunPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		select {
		case <-ctx.Done():
			d.logger.Info("watch stopped", logging.Any("passes", d.passes.Load()))
			return nil
		case <-time.After(interval):
		}
	}
}

// RunPass runs one pass: sync reduction, sync refinement, submit reduction,
// submit refinement, each as enabled by the workflow settings. Step failures
// are logged and counted; only configuration errors and cancellation are
// returned.
func (d *Daemon) RunPass(ctx context.Context) (PassResult, error) {
	result := PassResult{
		ID:        uuid.NewString(),
		Synced:    make(map[layout.Stage]catalogsync.Summary),
		Submitted: make(map[layout.Stage]submit.Summary),
		StartedAt: time.Now(),
	}
	ctx = services.WithRequestID(ctx, result.ID)
	logger := logging.WithContext(ctx, d.logger)

	type step struct {
		enabled bool
		name    string
		stage   layout.Stage
		run     func(context.Context, layout.Stage) error
	}
	syncStep := func(ctx context.Context, stage layout.Stage) error {
		summary, err := d.sync.Sync(ctx, stage)
		result.Synced[stage] = summary
		return err
	}
	submitStep := func(ctx context.Context, stage layout.Stage) error {
		summary, err := d.submit.SubmitUnfinished(ctx, stage, d.workflow.SubmitLimit)
		result.Submitted[stage] = summary
		return err
	}
	steps := []step{
		{d.workflow.Sync, "sync", layout.Reduction, syncStep},
		{d.workflow.Sync, "sync", layout.Refinement, syncStep},
		{d.workflow.Reduce, "submit", layout.Reduction, submitStep},
		{d.workflow.Refine, "submit", layout.Refinement, submitStep},
	}

	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		stageCtx := services.WithStage(ctx, string(s.stage))
		err := s.run(stageCtx, s.stage)
		switch {
		case err == nil:
		case services.IsFatal(err):
			logging.ErrorWithContext(logging.WithContext(stageCtx, d.logger), "pass aborted", "configuration",
				logging.String("step", s.name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the configuration and restart the watcher"),
			)
			return result, err
		case errors.Is(err, context.Canceled):
			return result, err
		default:
			result.StepErrors++
			logging.WarnWithContext(logging.WithContext(stageCtx, d.logger), "pass step failed", services.Kind(err),
				logging.String("step", s.name),
				logging.Error(err),
			)
		}
	}

	result.CompletedAt = time.Now()
	d.passes.Add(1)
	logger.Info("pass complete",
		logging.Duration("elapsed", result.CompletedAt.Sub(result.StartedAt)),
		logging.Int("step_errors", result.StepErrors),
	)
	return result, nil
}
