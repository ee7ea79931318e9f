package extract_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/extract"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/testsupport"
)

func TestMetricRejectsNaN(t *testing.T) {
	m := extract.NewMetric(math.NaN())
	if m.Valid() {
		t.Fatalf("NaN metric should be null")
	}
	if !m.Literal().IsNull() {
		t.Fatalf("NaN metric should render NULL, got %s", m.Literal().SQL())
	}
	if got := extract.NewMetric(1.5).String(); got != "1.5" {
		t.Fatalf("String = %q", got)
	}
}

func TestReductionExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	item := layout.WorkItem{Sample: "S1", Run: 1}
	testsupport.WriteReductionOutputs(t, l, item, "1.8")
	aimless := l.Path(item, l.Spec(layout.Reduction).AimlessXML)
	testsupport.WriteFile(t, aimless, `<?xml version="1.0"?>
<AIMLESS_PIPE><Result><Dataset name="NATIVE"><ResolutionHigh><Overall> 1.95 </Overall></ResolutionHigh></Dataset></Result></AIMLESS_PIPE>`)

	e := extract.New(l, cfg)
	result, err := e.Extract(context.Background(), item, layout.Reduction)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	red, ok := result.(*extract.ReductionResult)
	if !ok {
		t.Fatalf("unexpected result type %T", result)
	}
	if v, _ := red.ResolutionCC.Value(); v != 1.8 {
		t.Fatalf("resolution_cc = %v, want 1.8", v)
	}
	if v, _ := red.ResolutionISigma.Value(); v != 1.95 {
		t.Fatalf("resolution_isigma = %v, want 1.95", v)
	}
	if red.SpaceGroup != "C 1 2 1" {
		t.Fatalf("space group = %q", red.SpaceGroup)
	}
	if red.MTZPath != l.PrimaryPath(item, layout.Reduction) {
		t.Fatalf("mtz path = %q", red.MTZPath)
	}
	if len(red.Missing()) != 0 || len(red.Dropped) != 0 {
		t.Fatalf("unexpected missing=%v dropped=%v", red.Missing(), red.Dropped)
	}
	if red.CreatedAt.IsZero() {
		t.Fatalf("expected created-at from the primary artifact")
	}

	cols := red.Columns("DIALS")
	wantPrefix := []string{"crystal_id", "run_id", "method", "analysis_time", "folder_path", "mtz_path", "resolution_cc"}
	var got []string
	for _, c := range cols[:len(wantPrefix)] {
		got = append(got, c.Name)
	}
	if diff := cmp.Diff(wantPrefix, got); diff != "" {
		t.Fatalf("column order (-want +got):\n%s", diff)
	}
}

func TestReductionNaNIsDroppedNotPersisted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	item := layout.WorkItem{Sample: "S1", Run: 2}
	testsupport.WriteReductionOutputs(t, l, item, "NaN")

	red, err := extract.New(l, cfg).Reduction(context.Background(), item)
	if err != nil {
		t.Fatalf("Reduction: %v", err)
	}
	if red.ResolutionCC.Valid() {
		t.Fatalf("NaN resolution should be null")
	}
	if diff := cmp.Diff([]string{"resolution_cc"}, red.Dropped); diff != "" {
		t.Fatalf("dropped (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"resolution_cc"}, red.Missing()); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
	for _, col := range red.Columns("DIALS") {
		if col.Name == catalogue.ColResolutionCC && col.Value.SQL() != "NULL" {
			t.Fatalf("resolution_cc rendered as %s, want NULL", col.Value.SQL())
		}
	}
}

func TestReductionMissingMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	item := layout.WorkItem{Sample: "S1", Run: 3}
	testsupport.WriteFile(t, l.PrimaryPath(item, layout.Reduction), "mtz")

	_, err := extract.New(l, cfg).Reduction(context.Background(), item)
	if !errors.Is(err, extract.ErrMissingArtifact) {
		t.Fatalf("expected missing artifact, got %v", err)
	}
}

func TestAmbiguousAimlessLeavesFieldNull(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	item := layout.WorkItem{Sample: "S1", Run: 4}
	testsupport.WriteReductionOutputs(t, l, item, "2.0")
	testsupport.WriteFile(t, l.Path(item, l.Spec(layout.Reduction).AimlessXML),
		`<AIMLESS_PIPE><Result><Dataset><ResolutionHigh><Overall>1.9</Overall><Overall>2.1</Overall></ResolutionHigh></Dataset></Result></AIMLESS_PIPE>`)

	red, err := extract.New(l, cfg).Reduction(context.Background(), item)
	if err != nil {
		t.Fatalf("Reduction: %v", err)
	}
	if red.ResolutionISigma.Valid() {
		t.Fatalf("ambiguous aimless report should leave resolution_isigma null")
	}
}

func TestMeasuredResolutionFallsBackToISigma(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	item := layout.WorkItem{Sample: "S2", Run: 1}
	testsupport.WriteFile(t, l.Path(item, "xia2.json"), testsupport.Xia2JSON(item.Crystal(), "NaN"))
	testsupport.WriteFile(t, l.Path(item, l.Spec(layout.Reduction).AimlessXML),
		`<AIMLESS_PIPE><Result><Dataset><ResolutionHigh><Overall>2.2</Overall></ResolutionHigh></Dataset></Result></AIMLESS_PIPE>`)

	got, err := extract.New(l, cfg).MeasuredResolution(context.Background(), item)
	if err != nil {
		t.Fatalf("MeasuredResolution: %v", err)
	}
	if got != 2.2 {
		t.Fatalf("measured = %v, want 2.2", got)
	}
}
