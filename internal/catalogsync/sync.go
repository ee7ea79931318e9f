// Package catalogsync records finished stage results in the catalogue.
//
// Each pass walks the stage's eligible items. Items the filesystem does not
// show as finished are skipped, items already recorded for the configured
// method are left alone, and the rest are extracted and inserted. The
// existence check and the insert are not one transaction; two concurrent
// passes may both insert the same record.
package catalogsync

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/extract"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/services"
	"xia2pipe/internal/status"
)

// Extractor reads the stage record of a finished item.
type Extractor interface {
	Extract(ctx context.Context, item layout.WorkItem, stage layout.Stage) (extract.Result, error)
}

// Summary counts the outcome of one pass.
type Summary struct {
	Stage          layout.Stage
	Inserted       int
	AlreadyPresent int
	Skipped        int
	Failed         int
}

// Syncer inserts missing stage records.
type Syncer struct {
	catalogue  *catalogue.Catalogue
	reconciler *reconcile.Reconciler
	classifier *status.Classifier
	extractor  Extractor
	writer     catalogue.Gateway
	logger     *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDryRun renders insert statements to w instead of executing them.
func WithDryRun(w io.Writer) Option {
	return func(s *Syncer) {
		if w != nil {
			s.writer = catalogue.NewStatementWriter(s.catalogue.Gateway(), w)
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Syncer.
func New(cat *catalogue.Catalogue, rec *reconcile.Reconciler, extractor Extractor, opts ...Option) *Syncer {
	s := &Syncer{
		catalogue:  cat,
		reconciler: rec,
		classifier: rec.Classifier(),
		extractor:  extractor,
		writer:     cat.Gateway(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "catalogsync")
	return s
}

// Sync runs one pass for stage. Errors reading the eligible set or the
// catalogue abort the pass; per-item extraction and insert failures are
// logged and counted.
func (s *Syncer) Sync(ctx context.Context, stage layout.Stage) (Summary, error) {
	summary := Summary{Stage: stage}
	eligible, _, err := s.reconciler.Eligible(ctx, stage)
	if err != nil {
		return summary, err
	}
	method := s.catalogue.MethodFor(stage)
	table := s.catalogue.TableFor(stage)

	for _, item := range eligible.Items() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		itemCtx := services.WithStage(services.WithWorkItem(ctx, item.Sample, item.Run), string(stage))
		logger := logging.WithContext(itemCtx, s.logger)

		if s.classifier.Classify(item, stage) != status.Finished {
			summary.Skipped++
			continue
		}
		present, err := s.catalogue.HasRecord(ctx, stage, item)
		if err != nil {
			return summary, err
		}
		if present {
			summary.AlreadyPresent++
			continue
		}

		result, err := s.extractor.Extract(itemCtx, item, stage)
		if err != nil {
			summary.Failed++
			logging.WarnWithContext(logger, "extraction failed", services.Kind(err),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, extractionHint(err)),
			)
			continue
		}
		if dropped := result.DroppedMetrics(); len(dropped) > 0 {
			logger.Info("NaN metrics stored as null", logging.Strings("metrics", dropped))
		}
		if missing := result.Missing(); len(missing) > 0 {
			summary.Failed++
			logging.WarnWithContext(logger, "record incomplete, not inserted", "incomplete",
				logging.Strings("missing", missing),
				logging.String(logging.FieldErrorHint, "inspect the tool output; required metrics are null"),
			)
			continue
		}
		if err := s.writer.Insert(ctx, table, result.Columns(method)); err != nil {
			summary.Failed++
			logging.ErrorWithContext(logger, "catalogue insert failed", "catalogue_insert", logging.Error(err))
			continue
		}
		summary.Inserted++
		logger.Debug("record inserted", logging.String(logging.FieldMethod, method))
	}

	logging.WithContext(ctx, s.logger).Info("catalogue sync complete",
		logging.String(logging.FieldStage, string(stage)),
		logging.Int("inserted", summary.Inserted),
		logging.Int("already_present", summary.AlreadyPresent),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func extractionHint(err error) string {
	switch {
	case errors.Is(err, extract.ErrNoValidTrial):
		return "no refinement trial log could be parsed"
	case errors.Is(err, extract.ErrMissingArtifact):
		return "an expected output file is missing"
	case errors.Is(err, extract.ErrParseFailure):
		return "tool output is malformed"
	default:
		return "check logs for details"
	}
}
