package timer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// --- test doubles ---

// manualClock hands out waits that only complete when the test fires them.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	ch    chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0)}
}

func (c *manualClock) NewTimer(time.Duration) ClockTimer {
	mt := &manualTimer{clock: c, ch: make(chan time.Time, 1)}
	c.mu.Lock()
	c.waiters = append(c.waiters, mt)
	c.mu.Unlock()
	return mt
}

func (mt *manualTimer) C() <-chan time.Time { return mt.ch }

func (mt *manualTimer) Stop() bool {
	c := mt.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == mt {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// fire waits for exactly one pending wait and completes it.
func (c *manualClock) fire(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return c.pending() == 1 }, time.Second, time.Millisecond,
		"expected one tick task waiting on the clock")

	c.mu.Lock()
	w := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.now = c.now.Add(time.Second)
	now := c.now
	c.mu.Unlock()

	w.ch <- now
}

// stubSpawner records submissions and can refuse them.
type stubSpawner struct {
	mu      sync.Mutex
	err     error
	spawned int
}

func (s *stubSpawner) Go(fn func()) (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.spawned++
	return GoroutineSpawner{}.Go(fn)
}

func (s *stubSpawner) refuse(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSpawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned
}

var errSpawnRefused = errors.New("spawn refused")

// --- helpers ---

func testConfig(clock Clock) Config {
	cfg := DefaultConfig(zerolog.Nop())
	cfg.Clock = clock
	return cfg
}

func newTestTimer(t *testing.T) (*Timer, *manualClock) {
	t.Helper()
	clock := newManualClock()
	tm := New(testConfig(clock))
	t.Cleanup(tm.Close)
	return tm, clock
}

// tick fires one wait and waits until the decrement has been published.
func tick(t *testing.T, clock *manualClock, tm *Timer, wantRemaining int) {
	t.Helper()
	clock.fire(t)
	require.Eventually(t, func() bool { return tm.State().RemainingSeconds == wantRemaining },
		time.Second, time.Millisecond, "remaining never reached %d", wantRemaining)
}

// stopAndWait stops tm and waits for the previous tick goroutine to exit.
func stopAndWait(t *testing.T, tm *Timer) {
	t.Helper()
	tm.mu.Lock()
	task := tm.task
	tm.mu.Unlock()

	tm.Stop()
	if task != nil {
		select {
		case <-task.done:
		case <-time.After(time.Second):
			t.Fatal("tick task did not exit after stop")
		}
	}
}

// waitTaskExit waits until tm has no tick task and its last goroutine is gone.
func waitTaskExit(t *testing.T, tm *Timer, clock *manualClock) {
	t.Helper()
	require.Eventually(t, func() bool { return !tm.Active() && clock.pending() == 0 },
		time.Second, time.Millisecond)
}
