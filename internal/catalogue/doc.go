// Package catalogue is the gateway to the relational store that records
// diffraction outcomes and per-stage results.
//
// The gateway offers three primitives: Select with an ordered equality
// conjunction, Insert of a single row, and Table namespace qualification.
// Statements are rendered to SQL text by RenderSelect and RenderInsert with
// literals quoted by their declared type (String, Int, Float, Null); callers
// choose the literal type. The same renderer serves the direct write path and
// the dry-run sink so both produce byte-identical statements.
//
// Two backends are supported through database/sql: sqlite (modernc.org/sqlite)
// and postgres (pgx). Catalogue layers typed lookups used by the passes on top
// of the raw gateway.
package catalogue
