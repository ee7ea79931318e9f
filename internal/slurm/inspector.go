package slurm

import (
	"context"
	"log/slog"
	"strings"

	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/services"
)

// accountingArgs lists running and pending jobs with names wide enough for
// the pipeline's job-name convention.
var accountingArgs = []string{
	"--format=JobID,JobName%50",
	"--state=RUNNING,PENDING",
	"--noheader",
}

// Job is one queued or running job that belongs to the pipeline.
type Job struct {
	ID    string
	Name  string
	Item  layout.WorkItem
	Stage layout.Stage
}

// Option configures an Inspector or Submitter.
type Option func(*options)

type options struct {
	exec   Executor
	logger *slog.Logger
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(o *options) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(component string, opts []Option) options {
	o := options{exec: commandExecutor{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.NewComponentLogger(o.logger, component)
	return o
}

// Inspector reports which work items already have a job in the queue.
type Inspector struct {
	layout  *layout.Layout
	command string
	opts    options
}

// NewInspector builds an Inspector using the configured accounting command.
func NewInspector(l *layout.Layout, cfg *config.Config, opts ...Option) *Inspector {
	return &Inspector{
		layout:  l,
		command: cfg.Scheduler.AccountingCommand,
		opts:    buildOptions("slurm", opts),
	}
}

// Jobs lists the pipeline's running and pending jobs. Lines that do not carry
// a pipeline job name are ignored.
func (i *Inspector) Jobs(ctx context.Context) ([]Job, error) {
	binary, args := splitCommand(i.command)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "queue", "scheduler.accounting_command is empty", nil)
	}
	args = append(args, accountingArgs...)

	var jobs []Job
	err := i.opts.exec.Run(ctx, binary, args, func(line string) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return
		}
		for _, field := range fields {
			item, stage, ok := i.layout.ParseJobName(field)
			if !ok {
				continue
			}
			jobs = append(jobs, Job{ID: fields[0], Name: field, Item: item, Stage: stage})
			return
		}
	})
	if err != nil {
		return nil, services.Wrap(services.ErrScheduler, "", "queue", "list jobs", err)
	}
	i.opts.logger.Debug("scheduler queue listed", logging.Int("jobs", len(jobs)))
	return jobs, nil
}

// InFlight returns the work items with a running or pending job for stage.
func (i *Inspector) InFlight(ctx context.Context, stage layout.Stage) (layout.Set, error) {
	jobs, err := i.Jobs(ctx)
	if err != nil {
		return nil, err
	}
	set := layout.NewSet()
	for _, job := range jobs {
		if job.Stage == stage {
			set.Add(job.Item)
		}
	}
	return set, nil
}
