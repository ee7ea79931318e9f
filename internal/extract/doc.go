// Package extract turns tool output into typed stage records.
//
// Reduction records come from xia2's xia2.json (with the optional aimless XML
// resolution), refinement records from the per-trial phenix logs plus the
// dimple hand-off log. Metrics are held in the nullable Metric type, which can
// never carry NaN: a NaN parsed from tool output becomes null and is listed in
// the record's Dropped field. Required metrics that end up null are reported by
// Missing so callers can refuse to persist incomplete records.
package extract
