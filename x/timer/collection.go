package timer

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/compose-network/countdown/x/observable"
)

// ErrTimerNotFound indicates the timer is not part of the collection.
var ErrTimerNotFound = errors.New("timer: not found in collection")

// ErrMinimumTimers indicates a removal would leave fewer timers than the configured minimum.
var ErrMinimumTimers = errors.New("timer: collection is at its minimum size")

// Collection is the ordered set of timers. It owns each timer's lifecycle.
type Collection struct {
	mu      sync.Mutex
	log     zerolog.Logger
	cfg     Config
	min     int
	metrics *Metrics

	timers *observable.Value[[]*Timer]
}

// NewCollection creates a collection seeded with cfg.InitialTimers timers.
func NewCollection(cfg CollectionConfig) *Collection {
	if cfg.Metrics != nil && cfg.Timer.Metrics == nil {
		cfg.Timer.Metrics = cfg.Metrics
	}
	minTimers := max(cfg.MinTimers, 0)
	initial := max(cfg.InitialTimers, minTimers)

	c := &Collection{
		log:     cfg.Logger,
		cfg:     cfg.Timer,
		min:     minTimers,
		metrics: cfg.Metrics,
	}

	seed := make([]*Timer, 0, initial)
	for range initial {
		seed = append(seed, New(c.cfg))
	}
	c.timers = observable.New(seed)
	c.metrics.recordTimers(len(seed))

	return c
}

// Add appends a new stopped timer and returns it.
func (c *Collection) Add() *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := New(c.cfg)
	next := append(slices.Clone(c.timers.Load()), t)
	c.publishLocked(next)

	c.log.Info().Str("timer_id", t.ID()).Int("timers", len(next)).Msg("Timer added")
	return t
}

// Remove stops t and drops it from the collection. Timers are matched by identity.
func (c *Collection) Remove(t *Timer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.timers.Load()
	idx := slices.Index(cur, t)
	if idx < 0 {
		return ErrTimerNotFound
	}
	if len(cur)-1 < c.min {
		return ErrMinimumTimers
	}

	t.Close()

	next := slices.Delete(slices.Clone(cur), idx, idx+1)
	c.publishLocked(next)

	c.log.Info().Str("timer_id", t.ID()).Int("timers", len(next)).Msg("Timer removed")
	return nil
}

// Get looks a timer up by id.
func (c *Collection) Get(id string) (*Timer, bool) {
	for _, t := range c.timers.Load() {
		if t.ID() == id {
			return t, true
		}
	}
	return nil, false
}

// At returns the timer at position i.
func (c *Collection) At(i int) (*Timer, bool) {
	cur := c.timers.Load()
	if i < 0 || i >= len(cur) {
		return nil, false
	}
	return cur[i], true
}

// IndexOf returns the position of t, or -1.
func (c *Collection) IndexOf(t *Timer) int {
	return slices.Index(c.timers.Load(), t)
}

// List returns the timers in insertion order. The slice is a copy.
func (c *Collection) List() []*Timer {
	return slices.Clone(c.timers.Load())
}

// Len returns the number of timers.
func (c *Collection) Len() int {
	return len(c.timers.Load())
}

// Min returns the configured minimum size.
func (c *Collection) Min() int {
	return c.min
}

// Subscribe streams the current sequence followed by every change until ctx is done.
// Received slices must not be modified.
func (c *Collection) Subscribe(ctx context.Context) <-chan []*Timer {
	return c.timers.Subscribe(ctx)
}

// Close stops every timer and waits for their tick tasks to exit. The timers stay listed.
func (c *Collection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.timers.Load() {
		t.Close()
	}
	c.log.Info().Int("timers", c.Len()).Msg("Timer collection closed")
}

// publishLocked stores the new sequence. Published slices are never mutated afterwards.
func (c *Collection) publishLocked(next []*Timer) {
	c.timers.Store(next)
	c.metrics.recordTimers(len(next))
}
