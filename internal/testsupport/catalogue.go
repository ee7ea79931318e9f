package testsupport

import (
	"context"
	"testing"

	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
)

// MustOpenCatalogue opens the config's sqlite catalogue, creates the schema,
// and registers cleanup.
func MustOpenCatalogue(t testing.TB, cfg *config.Config, opts ...catalogue.Option) *catalogue.DB {
	t.Helper()

	db, err := catalogue.Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("catalogue.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.InitSchema(context.Background(), cfg.Catalogue); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return db
}

// SeedDiffraction records a diffraction outcome for item.
func SeedDiffraction(t testing.TB, cat *catalogue.Catalogue, item layout.WorkItem, outcome string) {
	t.Helper()

	if err := cat.RecordDiffraction(context.Background(), item, outcome); err != nil {
		t.Fatalf("record diffraction: %v", err)
	}
}

// ReductionRow holds the reduction columns tests usually care about. Zero
// values are stored as NULL.
type ReductionRow struct {
	ResolutionCC     float64
	ResolutionISigma float64
	MTZPath          string
}

// SeedReduction inserts a reduction record for item under the configured
// reduction method.
func SeedReduction(t testing.TB, cat *catalogue.Catalogue, item layout.WorkItem, row ReductionRow) {
	t.Helper()

	cols := catalogue.ItemColumns(item, cat.MethodFor(layout.Reduction))
	cols = append(cols,
		catalogue.Column{Name: catalogue.ColResolutionCC, Value: optionalFloat(row.ResolutionCC)},
		catalogue.Column{Name: catalogue.ColResolutionISigma, Value: optionalFloat(row.ResolutionISigma)},
	)
	if row.MTZPath != "" {
		cols = append(cols, catalogue.Column{Name: catalogue.ColMTZPath, Value: catalogue.String(row.MTZPath)})
	}
	if err := cat.Insert(context.Background(), layout.Reduction, cols); err != nil {
		t.Fatalf("seed reduction: %v", err)
	}
}

func optionalFloat(v float64) catalogue.Literal {
	if v == 0 {
		return catalogue.Null()
	}
	return catalogue.Float(v)
}
