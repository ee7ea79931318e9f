package catalogue

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"xia2pipe/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// InitSchema creates the catalogue tables when they do not exist. Existing
// tables are left untouched. (crystal_id, run_id, method) is indexed, not
// unique.
func (d *DB) InitSchema(ctx context.Context, cfg config.Catalogue) error {
	if d.driver == config.DriverPostgres && d.namespace != "" {
		if _, err := d.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+d.namespace); err != nil {
			return fmt.Errorf("create schema %s: %w", d.namespace, err)
		}
	}
	for _, statement := range schemaStatements(d.namespace, cfg) {
		if err := d.withRetry(ctx, func() error {
			_, err := d.db.ExecContext(ctx, statement)
			return err
		}); err != nil {
			return fmt.Errorf("init catalogue schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(namespace string, cfg config.Catalogue) []string {
	replacer := strings.NewReplacer(
		"{{diffractions}}", QualifyTable(namespace, cfg.DiffractionTable),
		"{{reduction}}", QualifyTable(namespace, cfg.ReductionTable),
		"{{refinement}}", QualifyTable(namespace, cfg.RefinementTable),
		"{{diffractions_index}}", strings.ToLower(cfg.DiffractionTable)+"_item_idx",
		"{{reduction_index}}", strings.ToLower(cfg.ReductionTable)+"_item_idx",
		"{{refinement_index}}", strings.ToLower(cfg.RefinementTable)+"_item_idx",
	)
	var statements []string
	for _, part := range strings.Split(replacer.Replace(schemaSQL), ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}
