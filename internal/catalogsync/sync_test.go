package catalogsync_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"xia2pipe/internal/catalogsync"
	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/config"
	"xia2pipe/internal/extract"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	l     *layout.Layout
	db    *catalogue.DB
	cat   *catalogue.Catalogue
	rec   *reconcile.Reconciler
	trace *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	trace := &bytes.Buffer{}
	db := testsupport.MustOpenCatalogue(t, cfg, catalogue.WithTrace(trace))
	cat := catalogue.New(db, cfg)
	l := layout.New(cfg)
	return &fixture{
		cfg:   cfg,
		l:     l,
		db:    db,
		cat:   cat,
		rec:   reconcile.New(cat, l, testsupport.NewStubQueue(), nil),
		trace: trace,
	}
}

func (f *fixture) finishedReduction(t *testing.T, item layout.WorkItem, highRes string) {
	t.Helper()
	testsupport.SeedDiffraction(t, f.cat, item, catalogue.DiffractionSuccess)
	testsupport.WriteRawImages(t, filepath.Join(f.cfg.Raw.Roots[0], item.Sample, item.Crystal()), 30)
	testsupport.WriteReductionOutputs(t, f.l, item, highRes)
}

func (f *fixture) syncer(opts ...catalogsync.Option) *catalogsync.Syncer {
	return catalogsync.New(f.cat, f.rec, extract.New(f.l, f.cfg), opts...)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done := layout.WorkItem{Sample: "S1", Run: 1}
	pending := layout.WorkItem{Sample: "S1", Run: 2}
	f.finishedReduction(t, done, "1.8")
	testsupport.SeedDiffraction(t, f.cat, pending, catalogue.DiffractionSuccess)
	testsupport.WriteRawImages(t, filepath.Join(f.cfg.Raw.Roots[0], pending.Sample, pending.Crystal()), 30)

	first, err := f.syncer().Sync(ctx, layout.Reduction)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if first.Inserted != 1 || first.Skipped != 1 || first.AlreadyPresent != 0 {
		t.Fatalf("first pass = %+v", first)
	}
	second, err := f.syncer().Sync(ctx, layout.Reduction)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if second.Inserted != 0 || second.AlreadyPresent != 1 {
		t.Fatalf("second pass = %+v", second)
	}

	cc, _, hasCC, _, err := f.cat.ReductionResolution(ctx, done)
	if err != nil || !hasCC || cc != 1.8 {
		t.Fatalf("stored resolution = %v %v %v", cc, hasCC, err)
	}
}

func TestSyncNeverPersistsNaN(t *testing.T) {
	f := newFixture(t)
	item := layout.WorkItem{Sample: "S2", Run: 1}
	f.finishedReduction(t, item, "NaN")

	summary, err := f.syncer().Sync(context.Background(), layout.Reduction)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 0 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if strings.Contains(f.trace.String(), "Data_Reduction") {
		t.Fatalf("incomplete record must not be inserted:\n%s", f.trace.String())
	}
}

func TestDryRunMatchesDirectStatements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.finishedReduction(t, layout.WorkItem{Sample: "S1", Run: 1}, "1.8")
	f.finishedReduction(t, layout.WorkItem{Sample: "S3", Run: 4}, "2.1")
	f.trace.Reset()

	var dry bytes.Buffer
	drySummary, err := f.syncer(catalogsync.WithDryRun(&dry)).Sync(ctx, layout.Reduction)
	if err != nil {
		t.Fatalf("dry Sync: %v", err)
	}
	if drySummary.Inserted != 2 {
		t.Fatalf("dry summary = %+v", drySummary)
	}
	if f.trace.Len() != 0 {
		t.Fatalf("dry run executed statements:\n%s", f.trace.String())
	}

	if _, err := f.syncer().Sync(ctx, layout.Reduction); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if dry.String() != f.trace.String() {
		t.Fatalf("dry and direct statements differ:\ndry:\n%s\ndirect:\n%s", dry.String(), f.trace.String())
	}
}

func TestRefinementSyncPicksBestTrial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := layout.WorkItem{Sample: "S1", Run: 1}
	testsupport.SeedReduction(t, f.cat, item, testsupport.ReductionRow{ResolutionCC: 1.8})
	testsupport.WriteRefinementOutputs(t, f.l, item, map[int]string{
		1: testsupport.RefinementLog("0.3100"),
		2: testsupport.RefinementLog("0.2400"),
		3: "garbage",
	}, "")

	summary, err := f.syncer().Sync(ctx, layout.Refinement)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	rows, err := f.db.Select(ctx, []string{"trial", "r_free", "initial_pdb_path"}, f.cat.TableFor(layout.Refinement))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	if trial, _ := rows[0].Int("trial"); trial != 2 {
		t.Fatalf("trial = %d, want 2", trial)
	}
	if rows[0].String("initial_pdb_path") != "" {
		t.Fatalf("initial pdb should be NULL without a hand-off log")
	}
}

func TestRefinementSyncAllTrialsUnparsable(t *testing.T) {
	f := newFixture(t)
	item := layout.WorkItem{Sample: "S1", Run: 1}
	testsupport.SeedReduction(t, f.cat, item, testsupport.ReductionRow{ResolutionCC: 1.8})
	testsupport.WriteRefinementOutputs(t, f.l, item, map[int]string{1: "x", 2: "y", 3: "z"}, "")

	summary, err := f.syncer().Sync(context.Background(), layout.Refinement)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if summary.Inserted != 0 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
