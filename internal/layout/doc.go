// Package layout encodes the on-disk naming convention shared by xia2pipe and
// the external reduction and refinement tools.
//
// Output for a work item lives at
// <results_root>/<pipeline>/<sample>/<sample>_<run:03>. Stage-specific file
// names are held in a StageSpec table of path templates rather than in
// per-stage branches, so a naming difference between stages (or a site
// override from configuration) is data. The package also defines the WorkItem
// identity, the Stage enumeration, unordered work-item sets, and the batch
// job-name convention the queue inspector matches against.
package layout
