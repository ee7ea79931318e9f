package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
)

// Result is a typed stage record ready for the catalogue.
type Result interface {
	Stage() layout.Stage
	WorkItem() layout.WorkItem
	Missing() []string
	DroppedMetrics() []string
	Columns(method string) []catalogue.Column
}

// Extractor reads finished stage outputs.
type Extractor struct {
	layout     *layout.Layout
	selection  string
	trials     []int
	candidates []string
	logger     *slog.Logger
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for optional-field warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an Extractor over the given layout.
func New(l *layout.Layout, cfg *config.Config, opts ...Option) *Extractor {
	e := &Extractor{
		layout:     l,
		selection:  cfg.Reduction.StatisticsSelection,
		trials:     append([]int(nil), cfg.Refinement.Trials...),
		candidates: cfg.ReferenceCandidates(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "extract")
	return e
}

// Extract returns the record of a finished item for stage.
func (e *Extractor) Extract(ctx context.Context, item layout.WorkItem, stage layout.Stage) (Result, error) {
	switch stage {
	case layout.Reduction:
		return e.Reduction(ctx, item)
	case layout.Refinement:
		return e.Refinement(ctx, item)
	default:
		return nil, fmt.Errorf("extract: unknown stage %q", stage)
	}
}

// Reduction reads the xia2 outputs of item.
func (e *Extractor) Reduction(ctx context.Context, item layout.WorkItem) (*ReductionResult, error) {
	primary := e.layout.PrimaryPath(item, layout.Reduction)
	createdAt, err := modTime(primary)
	if err != nil {
		return nil, err
	}
	result, err := e.readReduction(ctx, item)
	if err != nil {
		return nil, err
	}
	result.OutputDir = e.layout.OutputDir(item)
	result.MTZPath = primary
	result.CreatedAt = createdAt
	return result, nil
}

func (e *Extractor) readReduction(ctx context.Context, item layout.WorkItem) (*ReductionResult, error) {
	spec := e.layout.Spec(layout.Reduction)
	metadata := e.layout.Path(item, spec.Metadata)
	data, err := os.ReadFile(metadata)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, metadata)
		}
		return nil, fmt.Errorf("read xia2 metadata: %w", err)
	}
	summary, err := parseXia2JSON(data, item.Crystal(), e.selection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", metadata, err)
	}
	result := newReductionResult(item, summary)

	logger := logging.WithContext(ctx, e.logger)
	if summary.Candidates > 1 {
		logger.Debug("xia2 metadata holds several statistics blocks",
			logging.String("selected", summary.StatisticsKey),
			logging.Int("candidates", summary.Candidates),
		)
	}

	if spec.AimlessXML != "" {
		path := e.layout.Path(item, spec.AimlessXML)
		value, err := parseAimlessResolution(path)
		switch {
		case err == nil:
			var set metricSet
			set.set(&result.ResolutionISigma, "resolution_isigma", value)
			result.Dropped = append(result.Dropped, set.dropped...)
		case errors.Is(err, ErrMissingArtifact):
			logger.Debug("aimless report not found", logging.String("path", path))
		default:
			logging.WarnWithContext(logger, "aimless resolution unavailable", "aimless_parse",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the I/sigma resolution column will be null"),
			)
		}
	}
	return result, nil
}

// Refinement reads the refinement trials of item and keeps the one with the
// lowest free R-factor.
func (e *Extractor) Refinement(ctx context.Context, item layout.WorkItem) (*RefinementResult, error) {
	spec := e.layout.Spec(layout.Refinement)
	primary := e.layout.PrimaryPath(item, layout.Refinement)
	createdAt, err := modTime(primary)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, e.logger)

	outcomes := make([]TrialOutcome, 0, len(e.trials))
	for _, trial := range e.trials {
		path := e.layout.TrialPath(item, spec.TrialLog, trial)
		stats, err := ParseRefinementLog(path, spec.AnchorToken)
		if err != nil {
			logger.Debug("refinement trial unparsable",
				logging.Int("trial", trial),
				logging.String("path", path),
				logging.Error(err),
			)
		}
		outcomes = append(outcomes, TrialOutcome{Trial: trial, Stats: stats, Err: err})
	}
	best, err := SelectTrial(outcomes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", item, err)
	}
	if best.Err != nil {
		return nil, fmt.Errorf("%w: selected trial %d of %s: %v", ErrParseFailure, best.Trial, item, best.Err)
	}
	if !finite(best.Stats.RFree) {
		return nil, fmt.Errorf("%w: selected trial %d of %s has free R %v", ErrParseFailure, best.Trial, item, best.Stats.RFree)
	}

	result := newRefinementResult(item, best)
	result.OutputDir = e.layout.OutputDir(item)
	result.FinalPDBPath = primary
	result.FinalMTZPath = e.layout.Path(item, spec.FinalMTZ)
	result.CreatedAt = createdAt

	if spec.HandoffLog != "" {
		handoff := e.layout.Path(item, spec.HandoffLog)
		ref, found, err := InitialReference(handoff, e.candidates)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "initial reference unresolved", "reference_lookup",
				logging.String("path", handoff),
				logging.Error(err),
			)
		case found:
			result.InitialPDB = ref
		default:
			logger.Debug("hand-off log names no configured reference", logging.String("path", handoff))
		}
	}
	return result, nil
}

// MeasuredResolution returns the high resolution limit of item's reduction as
// found on disk: the CC-based limit, else the I/sigma-based one.
func (e *Extractor) MeasuredResolution(ctx context.Context, item layout.WorkItem) (float64, error) {
	result, err := e.readReduction(ctx, item)
	if err != nil {
		return 0, err
	}
	if v, ok := result.ResolutionCC.Value(); ok {
		return v, nil
	}
	if v, ok := result.ResolutionISigma.Value(); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: no resolution recorded for %s", ErrParseFailure, item)
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
