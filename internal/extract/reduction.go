package extract

import (
	"time"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/layout"
)

// ReductionResult is the record of one finished xia2 run.
type ReductionResult struct {
	Item layout.WorkItem

	ResolutionCC     Metric
	ResolutionISigma Metric
	ResolutionLow    Metric
	Completeness     Metric
	Multiplicity     Metric
	ISigma           Metric
	CCHalf           Metric
	Rmerge           Metric
	A, B, C          Metric
	Alpha, Beta      Metric
	Gamma            Metric
	SpaceGroup       string

	// Crystal and StatisticsKey name the xia2.json entries the metrics were
	// read from; Candidates counts the statistics blocks that were available.
	Crystal       string
	StatisticsKey string
	Candidates    int

	OutputDir string
	MTZPath   string
	CreatedAt time.Time
	Dropped   []string
}

// Stage implements Result.
func (r *ReductionResult) Stage() layout.Stage { return layout.Reduction }

// WorkItem implements Result.
func (r *ReductionResult) WorkItem() layout.WorkItem { return r.Item }

// DroppedMetrics implements Result.
func (r *ReductionResult) DroppedMetrics() []string { return r.Dropped }

func (r *ReductionResult) required() []namedMetric {
	return []namedMetric{
		{"resolution_cc", r.ResolutionCC},
		{"completeness", r.Completeness},
		{"multiplicity", r.Multiplicity},
		{"i_sigma", r.ISigma},
		{"cc_half", r.CCHalf},
		{"r_merge", r.Rmerge},
		{"a", r.A},
		{"b", r.B},
		{"c", r.C},
		{"alpha", r.Alpha},
		{"beta", r.Beta},
		{"gamma", r.Gamma},
	}
}

// Missing lists required metrics that are null.
func (r *ReductionResult) Missing() []string { return missing(r.required()) }

// Columns renders the Data_Reduction row for method.
func (r *ReductionResult) Columns(method string) []catalogue.Column {
	cols := catalogue.ItemColumns(r.Item, method)
	cols = append(cols,
		catalogue.Column{Name: "analysis_time", Value: catalogue.Time(r.CreatedAt)},
		catalogue.Column{Name: "folder_path", Value: catalogue.String(r.OutputDir)},
		catalogue.Column{Name: catalogue.ColMTZPath, Value: catalogue.String(r.MTZPath)},
		catalogue.Column{Name: catalogue.ColResolutionCC, Value: r.ResolutionCC.Literal()},
		catalogue.Column{Name: catalogue.ColResolutionISigma, Value: r.ResolutionISigma.Literal()},
		catalogue.Column{Name: "resolution_low", Value: r.ResolutionLow.Literal()},
		catalogue.Column{Name: "completeness", Value: r.Completeness.Literal()},
		catalogue.Column{Name: "multiplicity", Value: r.Multiplicity.Literal()},
		catalogue.Column{Name: "i_sigma", Value: r.ISigma.Literal()},
		catalogue.Column{Name: "cc_half", Value: r.CCHalf.Literal()},
		catalogue.Column{Name: "r_merge", Value: r.Rmerge.Literal()},
		catalogue.Column{Name: "a", Value: r.A.Literal()},
		catalogue.Column{Name: "b", Value: r.B.Literal()},
		catalogue.Column{Name: "c", Value: r.C.Literal()},
		catalogue.Column{Name: "alpha", Value: r.Alpha.Literal()},
		catalogue.Column{Name: "beta", Value: r.Beta.Literal()},
		catalogue.Column{Name: "gamma", Value: r.Gamma.Literal()},
	)
	if r.SpaceGroup != "" {
		cols = append(cols, catalogue.Column{Name: "space_group", Value: catalogue.String(r.SpaceGroup)})
	} else {
		cols = append(cols, catalogue.Column{Name: "space_group", Value: catalogue.Null()})
	}
	return cols
}

func newReductionResult(item layout.WorkItem, summary *xia2Summary) *ReductionResult {
	r := &ReductionResult{
		Item:          item,
		SpaceGroup:    summary.SpaceGroup,
		Crystal:       summary.Crystal,
		StatisticsKey: summary.StatisticsKey,
		Candidates:    summary.Candidates,
	}
	var set metricSet
	set.set(&r.ResolutionCC, "resolution_cc", summary.Stats[statHighResolution])
	if v, ok := summary.Stats[statLowResolution]; ok {
		set.set(&r.ResolutionLow, "resolution_low", v)
	}
	set.set(&r.Completeness, "completeness", summary.Stats[statCompleteness])
	set.set(&r.Multiplicity, "multiplicity", summary.Stats[statMultiplicity])
	set.set(&r.ISigma, "i_sigma", summary.Stats[statISigma])
	set.set(&r.CCHalf, "cc_half", summary.Stats[statCCHalf])
	set.set(&r.Rmerge, "r_merge", summary.Stats[statRmerge])
	cell := []*Metric{&r.A, &r.B, &r.C, &r.Alpha, &r.Beta, &r.Gamma}
	names := []string{"a", "b", "c", "alpha", "beta", "gamma"}
	for i, dst := range cell {
		set.set(dst, names[i], summary.Cell[i])
	}
	r.Dropped = set.dropped
	return r
}
