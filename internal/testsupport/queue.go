package testsupport

import (
	"context"

	"xia2pipe/internal/layout"
)

// StubQueue is an in-memory scheduler queue keyed by stage.
type StubQueue struct {
	Items map[layout.Stage][]layout.WorkItem
	Err   error
	Calls int
}

// NewStubQueue returns an empty queue.
func NewStubQueue() *StubQueue {
	return &StubQueue{Items: make(map[layout.Stage][]layout.WorkItem)}
}

// Enqueue marks item as in flight for stage.
func (q *StubQueue) Enqueue(stage layout.Stage, item layout.WorkItem) {
	q.Items[stage] = append(q.Items[stage], item)
}

// InFlight returns the queued items of stage.
func (q *StubQueue) InFlight(_ context.Context, stage layout.Stage) (layout.Set, error) {
	q.Calls++
	if q.Err != nil {
		return nil, q.Err
	}
	return layout.NewSet(q.Items[stage]...), nil
}
