// Package status classifies the lifecycle state of a work item from
// filesystem evidence alone. Results are never cached; every call reads the
// current state of the disk.
package status

import (
	"os"
	"path/filepath"
	"sort"

	"xia2pipe/internal/layout"
)

// Status is the derived lifecycle state of a (work item, stage).
type Status string

const (
	NotStarted Status = "not-started"
	Finished   Status = "finished"
	Failed     Status = "failed"
	// InProgress is never returned by Classify. Evidence.Displayed reports it
	// for an unfinished item the scheduler lists as queued or running.
	InProgress Status = "in-progress-unknown"
)

// Done reports whether the status removes an item from the submission set.
// Failures count as done; retries happen through explicit triage.
func (s Status) Done() bool {
	return s == Finished || s == Failed
}

// Evidence lists the files that decided a classification.
type Evidence struct {
	Status  Status
	Primary string
	Markers []string
}

// Classifier maps work items to lifecycle states using the layout convention.
type Classifier struct {
	layout *layout.Layout
}

// NewClassifier builds a classifier for l.
func NewClassifier(l *layout.Layout) *Classifier {
	return &Classifier{layout: l}
}

// Classify returns the lifecycle state of item for stage. The primary
// artifact takes precedence over error markers. Missing directories read as
// not-started.
func (c *Classifier) Classify(item layout.WorkItem, stage layout.Stage) Status {
	return c.Evidence(item, stage).Status
}

// Evidence classifies item and reports the paths that decided it.
func (c *Classifier) Evidence(item layout.WorkItem, stage layout.Stage) Evidence {
	primary := c.layout.PrimaryPath(item, stage)
	if fileExists(primary) {
		return Evidence{Status: Finished, Primary: primary}
	}
	markers := c.markers(item, stage)
	if len(markers) > 0 {
		return Evidence{Status: Failed, Markers: markers}
	}
	return Evidence{Status: NotStarted}
}

// Displayed returns the status shown to an operator once the scheduler state
// is known. A queued item reads as in progress unless its primary artifact
// already exists; leftover error markers from an earlier attempt do not
// override a live job.
func (e Evidence) Displayed(queued bool) Status {
	if queued && e.Status != Finished {
		return InProgress
	}
	return e.Status
}

// Markers returns the error-marker files currently present for item.
func (c *Classifier) Markers(item layout.WorkItem, stage layout.Stage) []string {
	return c.markers(item, stage)
}

func (c *Classifier) markers(item layout.WorkItem, stage layout.Stage) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, pattern := range c.layout.ErrorMarkerGlobs(item, stage) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			found = append(found, match)
		}
	}
	sort.Strings(found)
	return found
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
