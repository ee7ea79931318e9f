// Package submit renders batch scripts for work items and hands them to the
// scheduler.
//
// Submit resolves every parameter of one item before anything is written:
// the raw image directory for reduction; the resolution, input MTZ and
// reference structure for refinement. Missing configuration is reported as
// services.ErrConfiguration before any side effect. SubmitUnfinished runs the
// reconciler and submits its result, logging and counting per-item failures
// without aborting the batch.
package submit
