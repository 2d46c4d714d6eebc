package observable

import (
	"context"
	"sync"
)

// Value is a current-value cell that can be observed.
// Subscribers always see the latest value; intermediate values are dropped
// when a subscriber lags, so Store never blocks on a slow reader.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	nextID uint64
	subs   map[uint64]chan T
}

// New returns a cell holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		cur:  initial,
		subs: make(map[uint64]chan T),
	}
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Store replaces the current value and notifies subscribers.
func (v *Value[T]) Store(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cur = x
	for _, ch := range v.subs {
		offer(ch, x)
	}
}

// Subscribe returns a channel that first yields the current value and then every
// later one. The channel is closed once ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.cur
	v.mu.Unlock()

	context.AfterFunc(ctx, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
		close(ch)
	})

	return ch
}

// Subscribers reports how many subscriptions are open.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// offer replaces a pending value with x. Caller must hold v.mu, which makes
// Store the only sender.
func offer[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}
