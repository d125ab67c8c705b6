package policy

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/viant/parally/model"
)

// Assignment modes.
const (
	ModeFIFO   = "fifo"   // pop from the front (default)
	ModeRandom = "random" // uniformly random pick, removed at assignment time
)

// Config is the serialisable part of the assignment policy.
type Config struct {
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Validate checks the mode.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	_, err := ParseMode(c.Mode)
	return err
}

// ParseMode normalises mode; empty means FIFO.
func ParseMode(mode string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(mode)); normalized {
	case "", ModeFIFO:
		return ModeFIFO, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", fmt.Errorf("unsupported policy mode: %q", mode)
	}
}

// Pending is the collection of parameter sets not yet assigned. It is owned
// by the dispatcher; Len and Snapshot may be called from other goroutines.
type Pending struct {
	mode  string
	mu    sync.Mutex
	items []*model.Assignment
	intn  func(n int) int
}

// Option customises Pending.
type Option func(p *Pending)

// WithRandom replaces the random index source, used by tests.
func WithRandom(intn func(n int) int) Option {
	return func(p *Pending) {
		if intn != nil {
			p.intn = intn
		}
	}
}

// NewPending creates a pending collection; slot i is parameters[i].
func NewPending(config *Config, parameters []model.ParameterSet, options ...Option) (*Pending, error) {
	mode := ModeFIFO
	if config != nil {
		var err error
		if mode, err = ParseMode(config.Mode); err != nil {
			return nil, err
		}
	}
	ret := &Pending{mode: mode, items: make([]*model.Assignment, 0, len(parameters))}
	for i, item := range parameters {
		ret.items = append(ret.items, &model.Assignment{Slot: i, Parameters: item})
	}
	source := rand.New(rand.NewSource(time.Now().UnixNano()))
	ret.intn = source.Intn
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

// Mode returns the effective mode.
func (p *Pending) Mode() string { return p.mode }

// Next removes and returns the next assignment, false when nothing is pending.
func (p *Pending) Next() (*model.Assignment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return nil, false
	}
	index := 0
	if p.mode == ModeRandom {
		index = p.intn(len(p.items))
	}
	ret := p.items[index]
	p.items = append(p.items[:index], p.items[index+1:]...)
	return ret, true
}

// Remove drops the slot if it is still pending. Next already removes what it
// returns, so removing a completed slot normally reports false.
func (p *Pending) Remove(slot int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, item := range p.items {
		if item.Slot == slot {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending sets.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Snapshot returns the pending parameter sets in order.
func (p *Pending) Snapshot() []model.ParameterSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	ret := make([]model.ParameterSet, 0, len(p.items))
	for _, item := range p.items {
		ret = append(ret, item.Parameters)
	}
	return ret
}
