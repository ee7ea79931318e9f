// Package triage finds failed work items and clears their error markers so
// the next submission pass picks them up again.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/status"
)

// Triage lists and resets failed items.
type Triage struct {
	reconciler *reconcile.Reconciler
	classifier *status.Classifier
	queue      reconcile.QueueInspector
	logger     *slog.Logger
}

// New builds a Triage.
func New(rec *reconcile.Reconciler, queue reconcile.QueueInspector, logger *slog.Logger) *Triage {
	return &Triage{
		reconciler: rec,
		classifier: rec.Classifier(),
		queue:      queue,
		logger:     logging.NewComponentLogger(logger, "triage"),
	}
}

// Failure is a failed item with the marker files that classify it.
type Failure struct {
	Item    layout.WorkItem
	Markers []string
}

// Failed returns the eligible items of stage that are classified failed and
// have no job in the queue.
func (t *Triage) Failed(ctx context.Context, stage layout.Stage) ([]Failure, error) {
	eligible, _, err := t.reconciler.Eligible(ctx, stage)
	if err != nil {
		return nil, err
	}
	inFlight, err := t.queue.InFlight(ctx, stage)
	if err != nil {
		return nil, err
	}
	var failures []Failure
	for _, item := range eligible.Minus(inFlight).Items() {
		evidence := t.classifier.Evidence(item, stage)
		if evidence.Status != status.Failed {
			continue
		}
		failures = append(failures, Failure{Item: item, Markers: evidence.Markers})
	}
	return failures, nil
}

// ClearMarkers removes the error markers of item for stage and returns the
// paths removed, or that would be removed when dryRun is set.
func (t *Triage) ClearMarkers(ctx context.Context, item layout.WorkItem, stage layout.Stage, dryRun bool) ([]string, error) {
	markers := t.classifier.Markers(item, stage)
	if dryRun {
		return markers, nil
	}
	logger := logging.WithContext(ctx, t.logger)
	removed := make([]string, 0, len(markers))
	for _, path := range markers {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
		logger.Info("error marker removed",
			logging.String(logging.FieldSample, item.Sample),
			logging.Int(logging.FieldRun, item.Run),
			logging.String("path", path),
		)
	}
	return removed, nil
}
