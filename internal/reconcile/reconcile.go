// Package reconcile computes which work items still need a job for a stage.
package reconcile

import (
	"context"
	"log/slog"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/status"
)

// QueueInspector reports the work items with a job in the scheduler queue.
type QueueInspector interface {
	InFlight(ctx context.Context, stage layout.Stage) (layout.Set, error)
}

// Report summarises one reconciliation pass.
type Report struct {
	Stage    layout.Stage
	Fetched  int
	Eligible int
	Finished int
	Failed   int
	InFlight int
	ToSubmit int
}

// LogValue renders the report as structured log attributes.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("stage", string(r.Stage)),
		slog.Int("fetched", r.Fetched),
		slog.Int("eligible", r.Eligible),
		slog.Int("finished", r.Finished),
		slog.Int("failed", r.Failed),
		slog.Int("in_flight", r.InFlight),
		slog.Int("to_submit", r.ToSubmit),
	)
}

// Reconciler combines the catalogue, the filesystem and the scheduler queue.
type Reconciler struct {
	catalogue  *catalogue.Catalogue
	layout     *layout.Layout
	classifier *status.Classifier
	queue      QueueInspector
	logger     *slog.Logger
}

// New builds a Reconciler.
func New(cat *catalogue.Catalogue, l *layout.Layout, queue QueueInspector, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		catalogue:  cat,
		layout:     l,
		classifier: status.NewClassifier(l),
		queue:      queue,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Classifier exposes the status classifier used by the reconciler.
func (r *Reconciler) Classifier() *status.Classifier { return r.classifier }

// Eligible returns the work items whose prerequisites are met for stage:
// successful diffractions with raw images on disk for reduction, catalogued
// reductions of the configured method for refinement. fetched counts the
// catalogue rows before any filesystem check.
func (r *Reconciler) Eligible(ctx context.Context, stage layout.Stage) (set layout.Set, fetched int, err error) {
	switch stage {
	case layout.Reduction:
		items, err := r.catalogue.DiffractionSuccesses(ctx)
		if err != nil {
			return nil, 0, err
		}
		set = layout.NewSet()
		for _, item := range items {
			if r.layout.RawDataExists(item) {
				set.Add(item)
			}
		}
		return set, len(items), nil
	default:
		prereq, _ := stage.Prerequisite()
		items, err := r.catalogue.Records(ctx, prereq)
		if err != nil {
			return nil, 0, err
		}
		return layout.NewSet(items...), len(items), nil
	}
}

// Compute returns eligible − already done − in flight for stage. The result
// carries no order.
func (r *Reconciler) Compute(ctx context.Context, stage layout.Stage) (layout.Set, Report, error) {
	report := Report{Stage: stage}
	eligible, fetched, err := r.Eligible(ctx, stage)
	if err != nil {
		return nil, report, err
	}
	report.Fetched = fetched
	report.Eligible = eligible.Len()

	done := layout.NewSet()
	for item := range eligible {
		switch r.classifier.Classify(item, stage) {
		case status.Finished:
			report.Finished++
			done.Add(item)
		case status.Failed:
			report.Failed++
			done.Add(item)
		}
	}

	inFlight, err := r.queue.InFlight(ctx, stage)
	if err != nil {
		return nil, report, err
	}
	pending := eligible.Minus(done)
	report.InFlight = pending.Intersect(inFlight).Len()

	result := pending.Minus(inFlight)
	report.ToSubmit = result.Len()
	logging.WithContext(ctx, r.logger).Info("work set reconciled", logging.Any("report", report))
	return result, report, nil
}
