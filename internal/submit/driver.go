package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"text/template"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/services"
)

// Scheduler accepts rendered batch scripts.
type Scheduler interface {
	Submit(ctx context.Context, name, script string) (jobID string, err error)
}

// ResolutionSource measures a finished reduction from its files on disk.
type ResolutionSource interface {
	MeasuredResolution(ctx context.Context, item layout.WorkItem) (float64, error)
}

// Summary counts the outcome of one SubmitUnfinished call.
type Summary struct {
	Report    reconcile.Report
	Submitted int
	Skipped   int
	Failed    int
}

// Driver submits stage jobs for work items.
type Driver struct {
	cfg        *config.Config
	layout     *layout.Layout
	catalogue  *catalogue.Catalogue
	reconciler *reconcile.Reconciler
	scheduler  Scheduler
	resolution ResolutionSource
	templates  map[layout.Stage]*template.Template
	logger     *slog.Logger
}

// New builds a Driver. Batch-script templates are parsed here so a broken
// template override fails before any submission.
func New(cfg *config.Config, l *layout.Layout, cat *catalogue.Catalogue, rec *reconcile.Reconciler,
	scheduler Scheduler, resolution ResolutionSource, logger *slog.Logger,
) (*Driver, error) {
	d := &Driver{
		cfg:        cfg,
		layout:     l,
		catalogue:  cat,
		reconciler: rec,
		scheduler:  scheduler,
		resolution: resolution,
		templates:  make(map[layout.Stage]*template.Template),
		logger:     logging.NewComponentLogger(logger, "submit"),
	}
	overrides := map[layout.Stage]string{
		layout.Reduction:  cfg.Reduction.Template,
		layout.Refinement: cfg.Refinement.Template,
	}
	for _, stage := range layout.Stages() {
		tmpl, err := loadTemplate(stage, overrides[stage])
		if err != nil {
			return nil, err
		}
		d.templates[stage] = tmpl
	}
	return d, nil
}

// ValidateStage checks the configuration a stage needs before any item is
// touched.
func (d *Driver) ValidateStage(stage layout.Stage) error {
	if stage != layout.Refinement {
		return nil
	}
	if d.cfg.Refinement.ReferencePDB == "" {
		return services.Wrap(services.ErrConfiguration, string(stage), "validate",
			"refinement.reference_pdb is not set", nil)
	}
	if d.cfg.Refinement.Script == "" {
		return services.Wrap(services.ErrConfiguration, string(stage), "validate",
			"refinement.script is not set", nil)
	}
	return nil
}

// Submit renders and submits the stage job of item.
func (d *Driver) Submit(ctx context.Context, item layout.WorkItem, stage layout.Stage) error {
	if err := d.ValidateStage(stage); err != nil {
		return err
	}
	ctx = services.WithStage(services.WithWorkItem(ctx, item.Sample, item.Run), string(stage))
	logger := logging.WithContext(ctx, d.logger)

	var params any
	var err error
	switch stage {
	case layout.Reduction:
		params, err = d.reductionParams(item)
	case layout.Refinement:
		params, err = d.refinementParams(ctx, item)
	default:
		return services.Wrap(services.ErrConfiguration, string(stage), "submit", "unknown stage", nil)
	}
	if err != nil {
		return err
	}

	outDir := d.layout.OutputDir(item)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.ErrScheduler, string(stage), "submit", "create output directory", err)
	}
	script, err := render(d.templates[stage], params)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, string(stage), "submit", "render script", err)
	}
	jobName := d.layout.JobName(item, stage)
	jobID, err := d.scheduler.Submit(ctx, jobName, script)
	if err != nil {
		return err
	}
	logger.Info("job submitted",
		logging.String("job_name", jobName),
		logging.String(logging.FieldJobID, jobID),
		logging.String("output_dir", outDir),
	)
	return nil
}

func (d *Driver) base(item layout.WorkItem, stage layout.Stage) (jobName, outDir string) {
	return d.layout.JobName(item, stage), d.layout.OutputDir(item)
}

func (d *Driver) reductionParams(item layout.WorkItem) (ReductionParams, error) {
	imageDir, ok := d.layout.RawImageDir(item)
	if !ok {
		return ReductionParams{}, services.Wrap(services.ErrLookup, string(layout.Reduction), "raw data",
			"no raw image directory for "+item.String(), nil)
	}
	jobName, outDir := d.base(item, layout.Reduction)
	return ReductionParams{
		JobName:      jobName,
		OutputDir:    outDir,
		Partition:    d.cfg.Scheduler.Partition,
		Reservation:  d.cfg.Scheduler.Reservation,
		Setup:        d.cfg.Scheduler.Setup,
		ImageDir:     imageDir,
		Xia2Pipeline: d.cfg.Reduction.Xia2Pipeline,
		Project:      d.layout.Project(),
		Crystal:      item.Crystal(),
		NProc:        d.cfg.Reduction.NProc,
		SpaceGroup:   d.cfg.Reduction.SpaceGroup,
		UnitCell:     d.cfg.Reduction.UnitCell,
	}, nil
}

func (d *Driver) refinementParams(ctx context.Context, item layout.WorkItem) (RefinementParams, error) {
	resolution, err := d.Resolution(ctx, item)
	if err != nil {
		return RefinementParams{}, err
	}
	inputMTZ, err := d.InputMTZ(ctx, item)
	if err != nil {
		return RefinementParams{}, err
	}
	jobName, outDir := d.base(item, layout.Refinement)
	return RefinementParams{
		JobName:      jobName,
		OutputDir:    outDir,
		Partition:    d.cfg.Scheduler.Partition,
		Reservation:  d.cfg.Scheduler.Reservation,
		CPUs:         d.cfg.Scheduler.CPUsPerTask,
		TimeLimit:    d.cfg.Scheduler.TimeLimit,
		Setup:        d.cfg.Scheduler.Setup,
		Script:       d.cfg.Refinement.Script,
		Crystal:      item.Crystal(),
		Resolution:   strconv.FormatFloat(resolution, 'f', -1, 64),
		ReferencePDB: d.cfg.Refinement.ReferencePDB,
		InputMTZ:     inputMTZ,
		FreeMTZ:      d.cfg.Refinement.FreeFlagMTZ,
		PlaceWaters:  d.cfg.Refinement.PlaceWaters,
	}, nil
}

// MeasuredResolution returns the reduction resolution of item: the catalogue's
// resolution_cc, else its resolution_isigma, else the value measured on disk.
func (d *Driver) MeasuredResolution(ctx context.Context, item layout.WorkItem) (float64, error) {
	cc, isigma, hasCC, hasISigma, err := d.catalogue.ReductionResolution(ctx, item)
	switch {
	case err == nil && hasCC:
		return cc, nil
	case err == nil && hasISigma:
		return isigma, nil
	case errors.Is(err, services.ErrAmbiguous):
		return 0, err
	case err != nil && !errors.Is(err, services.ErrLookup):
		return 0, err
	}
	if d.resolution == nil {
		return 0, services.Wrap(services.ErrLookup, string(layout.Refinement), "resolution",
			"no resolution recorded for "+item.String(), nil)
	}
	value, err := d.resolution.MeasuredResolution(ctx, item)
	if err != nil {
		return 0, services.Wrap(services.ErrLookup, string(layout.Refinement), "resolution",
			"no resolution in catalogue or on disk for "+item.String(), err)
	}
	return value, nil
}

// Resolution is the refinement resolution of item: the larger of the measured
// resolution and refinement.resolution_cutoff.
func (d *Driver) Resolution(ctx context.Context, item layout.WorkItem) (float64, error) {
	measured, err := d.MeasuredResolution(ctx, item)
	if err != nil {
		return 0, err
	}
	return math.Max(measured, d.cfg.Refinement.ResolutionCutoff), nil
}

// InputMTZ returns the reduction MTZ that refinement of item starts from: the
// catalogue's mtz_path, or the conventional reduction artifact when the
// catalogue has none and the file exists.
func (d *Driver) InputMTZ(ctx context.Context, item layout.WorkItem) (string, error) {
	path, found, err := d.catalogue.InputMTZ(ctx, item)
	if err != nil {
		return "", err
	}
	if found && path != "" {
		return path, nil
	}
	conventional := d.layout.PrimaryPath(item, layout.Reduction)
	if _, err := os.Stat(conventional); err != nil {
		return "", services.Wrap(services.ErrLookup, string(layout.Refinement), "input mtz",
			fmt.Sprintf("no catalogued mtz_path and %s missing", conventional), nil)
	}
	return conventional, nil
}

// SubmitUnfinished submits up to limit items (0 for all) of the stage's
// submission set. Skipped and failed items do not count towards the limit.
// Only configuration errors and reconciliation failures are returned;
// per-item failures are logged and counted.
func (d *Driver) SubmitUnfinished(ctx context.Context, stage layout.Stage, limit int) (Summary, error) {
	var summary Summary
	if err := d.ValidateStage(stage); err != nil {
		return summary, err
	}
	set, report, err := d.reconciler.Compute(ctx, stage)
	summary.Report = report
	if err != nil {
		return summary, err
	}

	for _, item := range set.Items() {
		if limit > 0 && summary.Submitted >= limit {
			break
		}
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		err := d.Submit(ctx, item, stage)
		switch {
		case err == nil:
			summary.Submitted++
		case services.IsFatal(err):
			return summary, err
		case errors.Is(err, services.ErrLookup) && !errors.Is(err, services.ErrAmbiguous):
			summary.Skipped++
			d.itemWarning(ctx, item, stage, "submission skipped", err)
		default:
			summary.Failed++
			d.itemWarning(ctx, item, stage, "submission failed", err)
		}
	}
	logging.WithContext(ctx, d.logger).Info("submission pass complete",
		logging.String(logging.FieldStage, string(stage)),
		logging.Int("submitted", summary.Submitted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (d *Driver) itemWarning(ctx context.Context, item layout.WorkItem, stage layout.Stage, msg string, err error) {
	ctx = services.WithStage(services.WithWorkItem(ctx, item.Sample, item.Run), string(stage))
	logging.WarnWithContext(logging.WithContext(ctx, d.logger), msg, services.Kind(err),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrAmbiguous):
		return "remove duplicate catalogue records for this item"
	case errors.Is(err, services.ErrLookup):
		return "item retried on the next pass once its inputs exist"
	case errors.Is(err, services.ErrScheduler):
		return "check the kept batch script and scheduler limits"
	default:
		return "check logs for details"
	}
}
