package progress

import (
	"sync"
	"time"

	"github.com/viant/parally/internal/clock"
)

// Delta represents an incremental counter change emitted by the dispatcher.
// The fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Total     int
	Completed int
	Failed    int
	Running   int
	Pending   int
	Workers   int
}

// Progress keeps aggregated counters for a single run. It is safe for
// concurrent use.
type Progress struct {
	Session   string
	StartedAt time.Time
	UpdatedAt time.Time

	Total     int
	Completed int
	Failed    int
	Running   int
	Pending   int
	Workers   int

	mu       sync.Mutex
	onChange func(Progress)
}

// New creates a tracker for session.
func New(session string, onChange func(Progress)) *Progress {
	now := clock.Now()
	return &Progress{Session: session, StartedAt: now, UpdatedAt: now, onChange: onChange}
}

// Update applies the supplied delta. The onChange callback, if any, receives
// a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.Total += d.Total
	p.Completed += d.Completed
	p.Failed += d.Failed
	p.Running += d.Running
	p.Pending += d.Pending
	p.Workers += d.Workers
	p.UpdatedAt = clock.Now()
	snapshot := p.copy()
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copy()
}

// OnChange replaces the change callback; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.onChange = cb
	p.mu.Unlock()
}

// Finished reports whether nothing is pending or running.
func (p Progress) Finished() bool {
	return p.Total > 0 && p.Pending == 0 && p.Running == 0
}

func (p *Progress) copy() Progress {
	return Progress{
		Session:   p.Session,
		StartedAt: p.StartedAt,
		UpdatedAt: p.UpdatedAt,
		Total:     p.Total,
		Completed: p.Completed,
		Failed:    p.Failed,
		Running:   p.Running,
		Pending:   p.Pending,
		Workers:   p.Workers,
	}
}
