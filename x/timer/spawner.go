package timer

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Spawner runs tick tasks in the background. The returned channel is closed
// once fn has returned and every resource the spawner held for it is free
// again, so a following Go cannot fail on account of fn.
type Spawner interface {
	Go(fn func()) (<-chan struct{}, error)
}

// GoroutineSpawner starts one goroutine per task and never fails.
type GoroutineSpawner struct{}

func (GoroutineSpawner) Go(fn func()) (<-chan struct{}, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done, nil
}

// PoolSpawner runs tasks on an ants pool and admits at most size of them at
// once. A tick task holds its slot until the timer stops, so size caps
// running timers.
type PoolSpawner struct {
	pool  *ants.Pool
	slots chan struct{}
}

// NewPoolSpawner creates a pool admitting size tasks; Go fails with
// ants.ErrPoolOverload once every slot is taken. The slot is released before
// the task reports done, while the ants worker may still be on its way back
// to the pool; Submit therefore blocks for that short hand-over instead of
// failing.
func NewPoolSpawner(size int, log zerolog.Logger) (*PoolSpawner, error) {
	if size <= 0 {
		return nil, fmt.Errorf("timer: tick pool size must be positive, got %d", size)
	}
	log = log.With().Str("component", "tick-pool").Logger()
	pool, err := ants.NewPool(size,
		ants.WithPanicHandler(func(rec any) {
			log.Error().Interface("panic", rec).Msg("tick task panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("timer: create tick pool: %w", err)
	}
	return &PoolSpawner{pool: pool, slots: make(chan struct{}, size)}, nil
}

func (s *PoolSpawner) Go(fn func()) (<-chan struct{}, error) {
	select {
	case s.slots <- struct{}{}:
	default:
		return nil, ants.ErrPoolOverload
	}

	done := make(chan struct{})
	err := s.pool.Submit(func() {
		defer close(done)
		defer s.release()
		fn()
	})
	if err != nil {
		s.release()
		return nil, err
	}
	return done, nil
}

func (s *PoolSpawner) release() {
	<-s.slots
}

// Running returns the number of admitted tasks.
func (s *PoolSpawner) Running() int {
	return len(s.slots)
}

// Cap returns the number of tasks that may run at once.
func (s *PoolSpawner) Cap() int {
	return cap(s.slots)
}

// Release closes the pool. Timers must be closed first.
func (s *PoolSpawner) Release() {
	s.pool.Release()
}
