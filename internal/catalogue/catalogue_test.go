package catalogue_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
	"xia2pipe/internal/testsupport"
)

func TestSQLiteSelectAndInsertRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenCatalogue(t, cfg)
	ctx := context.Background()

	cols := catalogue.ItemColumns(layout.WorkItem{Sample: "S1", Run: 1}, "DIALS")
	cols = append(cols,
		catalogue.Column{Name: "resolution_cc", Value: catalogue.Null()},
		catalogue.Column{Name: "resolution_isigma", Value: catalogue.Float(1.8)},
		catalogue.Column{Name: "mtz_path", Value: catalogue.String("/data/S1_001_free.mtz")},
	)
	if err := db.Insert(ctx, db.Table(cfg.Catalogue.ReductionTable), cols); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := db.Select(ctx, []string{"resolution_cc", "resolution_isigma", "mtz_path"}, db.Table(cfg.Catalogue.ReductionTable),
		catalogue.Eq("crystal_id", catalogue.String("S1")), catalogue.Eq("run_id", catalogue.Int(1)))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0].Float("resolution_cc"); ok {
		t.Fatal("expected NULL resolution_cc")
	}
	if v, ok := rows[0].Float("resolution_isigma"); !ok || v != 1.8 {
		t.Fatalf("resolution_isigma = %v %v", v, ok)
	}
	if got := rows[0].String("mtz_path"); got != "/data/S1_001_free.mtz" {
		t.Fatalf("mtz_path = %q", got)
	}
}

func TestInsertTraceMatchesStatementWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var traced bytes.Buffer
	db := testsupport.MustOpenCatalogue(t, cfg, catalogue.WithTrace(&traced))
	ctx := context.Background()

	cols := append(catalogue.ItemColumns(layout.WorkItem{Sample: "S1", Run: 1}, "DIALS-dmpl"),
		catalogue.Column{Name: "r_free", Value: catalogue.Float(0.24)})

	var dry bytes.Buffer
	writer := catalogue.NewStatementWriter(db, &dry)
	if err := writer.Insert(ctx, db.Table(cfg.Catalogue.RefinementTable), cols); err != nil {
		t.Fatalf("dry insert: %v", err)
	}
	if err := db.Insert(ctx, db.Table(cfg.Catalogue.RefinementTable), cols); err != nil {
		t.Fatalf("direct insert: %v", err)
	}
	if dry.String() != traced.String() {
		t.Fatalf("dry and direct statements differ:\n%q\n%q", dry.String(), traced.String())
	}
	rows, err := db.Select(ctx, []string{"crystal_id"}, db.Table(cfg.Catalogue.RefinementTable))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("dry insert must not write; got %d rows", len(rows))
	}
}

func TestCatalogueTypedLookups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenCatalogue(t, cfg)
	cat := catalogue.New(db, cfg)
	ctx := context.Background()

	s1 := layout.WorkItem{Sample: "S1", Run: 1}
	s2 := layout.WorkItem{Sample: "S2", Run: 4}
	testsupport.SeedDiffraction(t, cat, s1, catalogue.DiffractionSuccess)
	testsupport.SeedDiffraction(t, cat, s1, catalogue.DiffractionSuccess)
	testsupport.SeedDiffraction(t, cat, s2, catalogue.DiffractionSuccess)
	testsupport.SeedDiffraction(t, cat, layout.WorkItem{Sample: "S3", Run: 1}, "Fail")

	items, err := cat.DiffractionSuccesses(ctx)
	if err != nil {
		t.Fatalf("DiffractionSuccesses: %v", err)
	}
	layout.SortItems(items)
	if diff := cmp.Diff([]layout.WorkItem{s1, s2}, items); diff != "" {
		t.Fatalf("successes (-want +got):\n%s", diff)
	}

	if ok, err := cat.HasRecord(ctx, layout.Reduction, s1); err != nil || ok {
		t.Fatalf("HasRecord before insert = %v, %v", ok, err)
	}
	testsupport.SeedReduction(t, cat, s1, testsupport.ReductionRow{ResolutionISigma: 1.8, MTZPath: "/x/S1.mtz"})
	if ok, err := cat.HasRecord(ctx, layout.Reduction, s1); err != nil || !ok {
		t.Fatalf("HasRecord after insert = %v, %v", ok, err)
	}
	if ok, _ := cat.HasRecord(ctx, layout.Refinement, s1); ok {
		t.Fatal("reduction record must not count for refinement")
	}

	cc, isigma, hasCC, hasISigma, err := cat.ReductionResolution(ctx, s1)
	if err != nil {
		t.Fatalf("ReductionResolution: %v", err)
	}
	if hasCC || !hasISigma || isigma != 1.8 {
		t.Fatalf("resolution = %v/%v (%v/%v)", cc, isigma, hasCC, hasISigma)
	}

	path, found, err := cat.InputMTZ(ctx, s1)
	if err != nil || !found || path != "/x/S1.mtz" {
		t.Fatalf("InputMTZ = %q %v %v", path, found, err)
	}
	if _, found, err := cat.InputMTZ(ctx, s2); err != nil || found {
		t.Fatalf("InputMTZ for unrecorded item = %v %v", found, err)
	}

	testsupport.SeedReduction(t, cat, s1, testsupport.ReductionRow{ResolutionCC: 1.5})
	if _, _, err := cat.InputMTZ(ctx, s1); !errors.Is(err, services.ErrAmbiguous) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	if _, _, _, _, err := cat.ReductionResolution(ctx, s1); !errors.Is(err, services.ErrAmbiguous) {
		t.Fatalf("expected ambiguous resolution, got %v", err)
	}
	if _, _, _, _, err := cat.ReductionResolution(ctx, s2); !errors.Is(err, services.ErrLookup) || errors.Is(err, services.ErrAmbiguous) {
		t.Fatalf("expected plain lookup error, got %v", err)
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenCatalogue(t, cfg)
	if err := db.InitSchema(context.Background(), cfg.Catalogue); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
}

func TestQualifyTable(t *testing.T) {
	if got := catalogue.QualifyTable("", "Refinement"); got != "Refinement" {
		t.Fatalf("got %q", got)
	}
	if got := catalogue.QualifyTable("SARS_COV_2_Analysis_v2", "Refinement"); got != "SARS_COV_2_Analysis_v2.Refinement" {
		t.Fatalf("got %q", got)
	}
}
