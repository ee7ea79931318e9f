package extract

import (
	"time"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/layout"
)

// RefinementResult is the record of one finished dimple/phenix run.
type RefinementResult struct {
	Item  layout.WorkItem
	Trial int

	RWork     Metric
	RFree     Metric
	RMSBonds  Metric
	RMSAngles Metric
	BMin      Metric
	BMax      Metric
	BMean     Metric

	// InitialPDB is empty when the hand-off log names no configured reference.
	InitialPDB string

	OutputDir    string
	FinalPDBPath string
	FinalMTZPath string
	CreatedAt    time.Time
	Dropped      []string
}

// Stage implements Result.
func (r *RefinementResult) Stage() layout.Stage { return layout.Refinement }

// WorkItem implements Result.
func (r *RefinementResult) WorkItem() layout.WorkItem { return r.Item }

// DroppedMetrics implements Result.
func (r *RefinementResult) DroppedMetrics() []string { return r.Dropped }

// Missing lists required metrics that are null.
func (r *RefinementResult) Missing() []string {
	return missing([]namedMetric{
		{"r_work", r.RWork},
		{"r_free", r.RFree},
		{"rms_bonds", r.RMSBonds},
		{"rms_angles", r.RMSAngles},
		{"b_min", r.BMin},
		{"b_max", r.BMax},
		{"b_mean", r.BMean},
	})
}

// Columns renders the Refinement row for method.
func (r *RefinementResult) Columns(method string) []catalogue.Column {
	initial := catalogue.Null()
	if r.InitialPDB != "" {
		initial = catalogue.String(r.InitialPDB)
	}
	cols := catalogue.ItemColumns(r.Item, method)
	return append(cols,
		catalogue.Column{Name: "analysis_time", Value: catalogue.Time(r.CreatedAt)},
		catalogue.Column{Name: "folder_path", Value: catalogue.String(r.OutputDir)},
		catalogue.Column{Name: "initial_pdb_path", Value: initial},
		catalogue.Column{Name: "final_pdb_path", Value: catalogue.String(r.FinalPDBPath)},
		catalogue.Column{Name: "final_mtz_path", Value: catalogue.String(r.FinalMTZPath)},
		catalogue.Column{Name: "trial", Value: catalogue.Int(r.Trial)},
		catalogue.Column{Name: "r_work", Value: r.RWork.Literal()},
		catalogue.Column{Name: "r_free", Value: r.RFree.Literal()},
		catalogue.Column{Name: "rms_bonds", Value: r.RMSBonds.Literal()},
		catalogue.Column{Name: "rms_angles", Value: r.RMSAngles.Literal()},
		catalogue.Column{Name: "b_min", Value: r.BMin.Literal()},
		catalogue.Column{Name: "b_max", Value: r.BMax.Literal()},
		catalogue.Column{Name: "b_mean", Value: r.BMean.Literal()},
	)
}

func newRefinementResult(item layout.WorkItem, outcome TrialOutcome) *RefinementResult {
	r := &RefinementResult{Item: item, Trial: outcome.Trial}
	var set metricSet
	s := outcome.Stats
	set.set(&r.RWork, "r_work", s.RWork)
	set.set(&r.RFree, "r_free", s.RFree)
	set.set(&r.RMSBonds, "rms_bonds", s.RMSBonds)
	set.set(&r.RMSAngles, "rms_angles", s.RMSAngles)
	set.set(&r.BMin, "b_min", s.BMin)
	set.set(&r.BMax, "b_max", s.BMax)
	set.set(&r.BMean, "b_mean", s.BMean)
	r.Dropped = set.dropped
	return r
}
