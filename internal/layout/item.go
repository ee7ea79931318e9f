package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// WorkItem identifies one (sample, run) pair tracked through both stages.
type WorkItem struct {
	Sample string
	Run    int
}

// String renders the item as <sample>/<run>.
func (w WorkItem) String() string {
	return w.Sample + "/" + strconv.Itoa(w.Run)
}

// Crystal renders the directory form <sample>_<run:03>.
func (w WorkItem) Crystal() string {
	return fmt.Sprintf("%s_%03d", w.Sample, w.Run)
}

// ParseWorkItem accepts either <sample>/<run> or <sample>_<run:03>.
func ParseWorkItem(value string) (WorkItem, error) {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndex(value, "/"); idx > 0 {
		run, err := strconv.Atoi(value[idx+1:])
		if err != nil || run < 0 {
			return WorkItem{}, fmt.Errorf("work item %q: invalid run", value)
		}
		return WorkItem{Sample: value[:idx], Run: run}, nil
	}
	if idx := strings.LastIndex(value, "_"); idx > 0 {
		run, err := strconv.Atoi(value[idx+1:])
		if err != nil || run < 0 {
			return WorkItem{}, fmt.Errorf("work item %q: invalid run", value)
		}
		return WorkItem{Sample: value[:idx], Run: run}, nil
	}
	return WorkItem{}, fmt.Errorf("work item %q: expected <sample>/<run> or <sample>_<run>", value)
}

// Set is an unordered collection of work items.
type Set map[WorkItem]struct{}

// NewSet builds a set holding items.
func NewSet(items ...WorkItem) Set {
	set := make(Set, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func (s Set) Add(item WorkItem) { s[item] = struct{}{} }

func (s Set) Has(item WorkItem) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Len() int { return len(s) }

// Minus returns the members of s absent from other.
func (s Set) Minus(other Set) Set {
	out := make(Set, len(s))
	for item := range s {
		if !other.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Intersect returns the members present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for item := range s {
		if other.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// Items returns the members ordered by sample then run. Ordering is for
// display only; set semantics carry no order.
func (s Set) Items() []WorkItem {
	items := make([]WorkItem, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	SortItems(items)
	return items
}

// SortItems orders items by sample then run.
func SortItems(items []WorkItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sample != items[j].Sample {
			return items[i].Sample < items[j].Sample
		}
		return items[i].Run < items[j].Run
	})
}
