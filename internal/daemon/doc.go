// Package daemon runs the pipeline's passes on a fixed interval.
//
// Each pass syncs finished results into the catalogue and submits the
// remaining work, one stage at a time. A flock on <log_dir>/<pipeline>.lock
// keeps a single watcher per pipeline. Cancellation is observed between
// steps; a step in progress runs to completion.
package daemon
