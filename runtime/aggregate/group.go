package aggregate

import (
	"sync"
	"time"

	"github.com/viant/parally/internal/clock"
	"github.com/viant/parally/model"
)

// Group collects the outcomes of a bound parameter list. Expected is fixed at
// bind time; every slot counts towards completion at most once.
type Group struct {
	ID       string
	Expected int

	mu        sync.Mutex
	completed map[int]bool
	failed    map[int]bool
	entries   model.Results
	stalled   []model.ParameterSet

	StartedAt time.Time
	DoneAt    *time.Time
}

// New creates a group expecting expected slots.
func New(id string, expected int) *Group {
	return &Group{
		ID:        id,
		Expected:  expected,
		completed: map[int]bool{},
		failed:    map[int]bool{},
		StartedAt: clock.Now(),
	}
}

// MarkDone appends entry for slot; it returns false when the slot was
// already accounted for.
func (g *Group) MarkDone(slot int, entry *model.ResultEntry) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.completed[slot] || g.failed[slot] {
		return false
	}
	g.completed[slot] = true
	g.entries = append(g.entries, entry)
	return true
}

// MarkFailed keeps parameters as stalled; failed slots are never retried.
func (g *Group) MarkFailed(slot int, parameters model.ParameterSet) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.completed[slot] || g.failed[slot] {
		return false
	}
	g.failed[slot] = true
	g.stalled = append(g.stalled, parameters)
	return true
}

// Completed returns the number of successful slots.
func (g *Group) Completed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Failed returns the number of failed slots.
func (g *Group) Failed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.failed)
}

// Complete reports whether every expected slot succeeded.
func (g *Group) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Expected > 0 && len(g.entries) >= g.Expected
}

// Results returns a copy of the entries in completion order.
func (g *Group) Results() model.Results {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append(model.Results{}, g.entries...)
}

// Stalled returns the parameter sets whose task failed.
func (g *Group) Stalled() []model.ParameterSet {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.ParameterSet(nil), g.stalled...)
}

// Close records the end of the group; it returns false if already closed.
func (g *Group) Close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DoneAt != nil {
		return false
	}
	now := clock.Now()
	g.DoneAt = &now
	return true
}

// Done returns whether the group has been closed.
func (g *Group) Done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.DoneAt != nil
}
