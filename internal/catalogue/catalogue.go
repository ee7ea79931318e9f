package catalogue

import (
	"context"
	"fmt"

	"xia2pipe/internal/config"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/services"
)

// Column names shared by the catalogue tables.
const (
	ColCrystalID        = "crystal_id"
	ColRunID            = "run_id"
	ColMethod           = "method"
	ColDiffraction      = "diffraction"
	ColMTZPath          = "mtz_path"
	ColResolutionCC     = "resolution_cc"
	ColResolutionISigma = "resolution_isigma"
)

// DiffractionSuccess is the Diffractions.diffraction value of usable data.
const DiffractionSuccess = "Success"

// Catalogue layers typed lookups over a Gateway.
type Catalogue struct {
	gw      Gateway
	tables  map[layout.Stage]string
	methods map[layout.Stage]string
	diff    string
}

// New builds a Catalogue for the configured tables and methods.
func New(gw Gateway, cfg *config.Config) *Catalogue {
	return &Catalogue{
		gw: gw,
		tables: map[layout.Stage]string{
			layout.Reduction:  gw.Table(cfg.Catalogue.ReductionTable),
			layout.Refinement: gw.Table(cfg.Catalogue.RefinementTable),
		},
		methods: map[layout.Stage]string{
			layout.Reduction:  cfg.Reduction.Method,
			layout.Refinement: cfg.Refinement.Method,
		},
		diff: gw.Table(cfg.Catalogue.DiffractionTable),
	}
}

// Gateway returns the underlying gateway.
func (c *Catalogue) Gateway() Gateway { return c.gw }

// TableFor returns the qualified result table of stage.
func (c *Catalogue) TableFor(stage layout.Stage) string { return c.tables[stage] }

// MethodFor returns the configured method name of stage.
func (c *Catalogue) MethodFor(stage layout.Stage) string { return c.methods[stage] }

// DiffractionSuccesses returns every work item whose diffraction outcome is
// Success.
func (c *Catalogue) DiffractionSuccesses(ctx context.Context) ([]layout.WorkItem, error) {
	rows, err := c.gw.Select(ctx, []string{ColCrystalID, ColRunID}, c.diff,
		Eq(ColDiffraction, String(DiffractionSuccess)))
	if err != nil {
		return nil, err
	}
	return itemsFromRows(rows)
}

// Records returns the work items holding a stage record under the stage's
// configured method.
func (c *Catalogue) Records(ctx context.Context, stage layout.Stage) ([]layout.WorkItem, error) {
	return c.RecordsFor(ctx, stage, c.methods[stage])
}

// RecordsFor returns the work items holding a stage record under method.
func (c *Catalogue) RecordsFor(ctx context.Context, stage layout.Stage, method string) ([]layout.WorkItem, error) {
	rows, err := c.gw.Select(ctx, []string{ColCrystalID, ColRunID}, c.tables[stage],
		Eq(ColMethod, String(method)))
	if err != nil {
		return nil, err
	}
	return itemsFromRows(rows)
}

// HasRecord reports whether a stage record for (item, method) exists.
func (c *Catalogue) HasRecord(ctx context.Context, stage layout.Stage, item layout.WorkItem) (bool, error) {
	rows, err := c.gw.Select(ctx, []string{ColCrystalID}, c.tables[stage], itemConditions(item, c.methods[stage])...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert writes one stage record.
func (c *Catalogue) Insert(ctx context.Context, stage layout.Stage, cols []Column) error {
	return c.gw.Insert(ctx, c.tables[stage], cols)
}

// ReductionResolution returns the recorded resolution_cc and resolution_isigma
// of item's reduction record. No record is a lookup error; more than one is
// ambiguous.
func (c *Catalogue) ReductionResolution(ctx context.Context, item layout.WorkItem) (cc, isigma float64, hasCC, hasISigma bool, err error) {
	rows, err := c.gw.Select(ctx, []string{ColResolutionCC, ColResolutionISigma}, c.tables[layout.Reduction],
		itemConditions(item, c.methods[layout.Reduction])...)
	if err != nil {
		return 0, 0, false, false, err
	}
	row, err := Single(rows, "resolution", item)
	if err != nil {
		return 0, 0, false, false, err
	}
	cc, hasCC = row.Float(ColResolutionCC)
	isigma, hasISigma = row.Float(ColResolutionISigma)
	return cc, isigma, hasCC, hasISigma, nil
}

// InputMTZ returns the reduction mtz_path recorded for item. found is false
// when no record exists; more than one record is ambiguous.
func (c *Catalogue) InputMTZ(ctx context.Context, item layout.WorkItem) (path string, found bool, err error) {
	rows, err := c.gw.Select(ctx, []string{ColMTZPath}, c.tables[layout.Reduction],
		itemConditions(item, c.methods[layout.Reduction])...)
	if err != nil {
		return "", false, err
	}
	switch len(rows) {
	case 0:
		return "", false, nil
	case 1:
		return rows[0].String(ColMTZPath), true, nil
	default:
		return "", false, services.Wrap(services.ErrAmbiguous, "refinement", "input mtz",
			fmt.Sprintf("%d %s records for %s", len(rows), c.methods[layout.Reduction], item), nil)
	}
}

// RecordDiffraction inserts a Diffractions row for item.
func (c *Catalogue) RecordDiffraction(ctx context.Context, item layout.WorkItem, outcome string) error {
	return c.gw.Insert(ctx, c.diff, []Column{
		{Name: ColCrystalID, Value: String(item.Sample)},
		{Name: ColRunID, Value: Int(item.Run)},
		{Name: ColDiffraction, Value: String(outcome)},
	})
}

// Single returns the only row of rows. Zero rows is a lookup error and more
// than one is ambiguous; neither is ever resolved by picking a row.
func Single(rows []Row, field string, item layout.WorkItem) (Row, error) {
	switch len(rows) {
	case 0:
		return nil, services.Wrap(services.ErrLookup, "", field, "no "+field+" in catalogue for "+item.String(), nil)
	case 1:
		return rows[0], nil
	default:
		return nil, services.Wrap(services.ErrAmbiguous, "", field,
			fmt.Sprintf("found %d %s rows in catalogue for %s", len(rows), field, item), nil)
	}
}

// ItemColumns returns the identity columns that start every stage record.
func ItemColumns(item layout.WorkItem, method string) []Column {
	return []Column{
		{Name: ColCrystalID, Value: String(item.Sample)},
		{Name: ColRunID, Value: Int(item.Run)},
		{Name: ColMethod, Value: String(method)},
	}
}

func itemConditions(item layout.WorkItem, method string) []Condition {
	return []Condition{
		Eq(ColCrystalID, String(item.Sample)),
		Eq(ColRunID, Int(item.Run)),
		Eq(ColMethod, String(method)),
	}
}

func itemsFromRows(rows []Row) ([]layout.WorkItem, error) {
	seen := make(map[layout.WorkItem]struct{}, len(rows))
	items := make([]layout.WorkItem, 0, len(rows))
	for _, row := range rows {
		sample := row.String(ColCrystalID)
		run, ok := row.Int(ColRunID)
		if sample == "" || !ok {
			return nil, services.Wrap(services.ErrLookup, "", "catalogue", "row without crystal_id/run_id", nil)
		}
		item := layout.WorkItem{Sample: sample, Run: run}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}
