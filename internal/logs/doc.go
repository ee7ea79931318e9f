// Package logs reads the tail of job error files and the pipeline log.
//
// Last keeps at most n lines in memory regardless of file size. Follow polls
// from an offset and hands new lines to a callback until its context ends;
// `x2p logs --follow` uses it on the watch loop's log file.
package logs
