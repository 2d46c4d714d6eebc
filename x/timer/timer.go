package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/countdown/x/observable"
)

// Timer is one countdown instance.
//
// Every command is synchronous and serialized with the tick task by mu, so the
// published states of a single timer are totally ordered. Stop and Reset cancel
// the task under mu and the task re-checks its cancellation under mu after each
// wait, so no state change from a stopped task can follow a command.
type Timer struct {
	id  string
	log zerolog.Logger

	clock       Clock
	spawner     Spawner
	interval    time.Duration
	maxOvertime int
	metrics     *Metrics

	mu      sync.Mutex
	state   *observable.Value[State]
	hours   int
	minutes int
	seconds int
	task    *tickTask
	// prev is the last released task until it is known to have exited.
	prev *tickTask
}

// tickTask is the handle of one running tick loop. done is closed by the
// Spawner once the loop has exited.
type tickTask struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   <-chan struct{}
}

func newTickTask() *tickTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &tickTask{ctx: ctx, cancel: cancel}
}

// New creates a stopped timer with a zero duration.
func New(cfg Config) *Timer {
	cfg.apply()

	id := uuid.NewString()
	return &Timer{
		id:          id,
		log:         cfg.Logger.With().Str("timer_id", id).Logger(),
		clock:       cfg.Clock,
		spawner:     cfg.Spawner,
		interval:    cfg.TickInterval,
		maxOvertime: cfg.MaxOvertime,
		metrics:     cfg.Metrics,
		state:       observable.New(State{Mode: ModeStopped}),
	}
}

// ID returns the unique identifier of the timer.
func (t *Timer) ID() string {
	return t.id
}

// State returns the current snapshot.
func (t *Timer) State() State {
	return t.state.Load()
}

// Subscribe streams the current state followed by every change until ctx is done.
func (t *Timer) Subscribe(ctx context.Context) <-chan State {
	return t.state.Subscribe(ctx)
}

// Initial returns the configured hour, minute and second accumulators.
func (t *Timer) Initial() (hours, minutes, seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hours, t.minutes, t.seconds
}

// InitialSeconds returns the configured duration in seconds.
func (t *Timer) InitialSeconds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initialLocked()
}

// Active reports whether a tick task is running.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task != nil
}

// Start begins counting down. It is a no-op when already counting or expired.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("start")
	t.awaitPrevLocked()
	t.startLocked()
}

// Stop pauses a running countdown.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("stop")
	t.stopLocked()
}

// Toggle stops the timer when a tick task is active and starts it otherwise.
func (t *Timer) Toggle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("toggle")
	t.awaitPrevLocked()
	if t.task != nil {
		t.stopLocked()
		return
	}
	t.startLocked()
}

// Reset stops the timer and restores the configured duration.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("reset")
	t.stopLocked()

	initial := t.initialLocked()
	t.publishLocked(State{StartSeconds: initial, RemainingSeconds: initial, Mode: ModeStopped})
	t.log.Debug().Int("initial_seconds", initial).Msg("Timer reset")
}

// AddInitialHours adjusts the hour accumulator, saturating at [0,59].
func (t *Timer) AddInitialHours(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("add_initial_hours")
	t.hours = clampComponent(t.hours, delta)
	t.applyInitialLocked()
}

// AddInitialMinutes adjusts the minute accumulator, saturating at [0,59].
func (t *Timer) AddInitialMinutes(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("add_initial_minutes")
	t.minutes = clampComponent(t.minutes, delta)
	t.applyInitialLocked()
}

// AddInitialSeconds adjusts the second accumulator, saturating at [0,59].
func (t *Timer) AddInitialSeconds(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("add_initial_seconds")
	t.seconds = clampComponent(t.seconds, delta)
	t.applyInitialLocked()
}

// AddSeconds extends (or shortens) the current countdown and re-evaluates expiration.
// Adding time to an expired timer restarts the countdown.
func (t *Timer) AddSeconds(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.recordCommand("add_seconds")
	t.awaitPrevLocked()

	cur := t.state.Load()
	next := cur
	next.StartSeconds = max(cur.StartSeconds+delta, 0)
	next.RemainingSeconds = cur.RemainingSeconds + delta

	switch {
	case next.RemainingSeconds <= 0:
		t.expireLocked(cur, &next)
		if t.task != nil && next.RemainingSeconds <= -t.maxOvertime {
			t.releaseLocked(t.task)
		}
		t.publishLocked(next)
	case t.task != nil:
		next.Mode = ModeRunning
		t.publishLocked(next)
	case cur.Mode == ModeExpired:
		// A restart that cannot be scheduled leaves the timer as it was.
		next.Mode = ModePaused
		t.startFromLocked(next)
	default:
		t.publishLocked(next)
	}
}

// Close stops the timer and waits until its tick task has exited.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.awaitPrevLocked()
}

// startLocked spawns the tick task. Caller must hold t.mu.
func (t *Timer) startLocked() {
	t.startFromLocked(t.state.Load())
}

// startFromLocked starts counting from cur. Nothing is published when the
// task cannot be scheduled.
func (t *Timer) startFromLocked(cur State) {
	if t.task != nil {
		return
	}
	if cur.Mode == ModeExpired {
		return
	}
	if cur.RemainingSeconds <= 0 {
		next := cur
		t.expireLocked(cur, &next)
		t.publishLocked(next)
		return
	}

	task := newTickTask()
	done, err := t.spawner.Go(func() { t.run(task) })
	if err != nil {
		task.cancel()
		t.metrics.recordSpawnError()
		t.log.Error().Err(err).Msg("Failed to schedule tick task")
		return
	}
	task.done = done
	t.task = task
	t.metrics.recordStarted(cur.RemainingSeconds)

	cur.Mode = ModeRunning
	t.publishLocked(cur)
	t.log.Debug().Int("remaining_seconds", cur.RemainingSeconds).Msg("Timer started")
}

// stopLocked cancels the tick task and pauses a running countdown. Caller must hold t.mu.
func (t *Timer) stopLocked() {
	if t.task != nil {
		t.releaseLocked(t.task)
	}

	cur := t.state.Load()
	if cur.Mode != ModeRunning {
		return
	}
	cur.Mode = ModePaused
	t.publishLocked(cur)
	t.log.Debug().Int("remaining_seconds", cur.RemainingSeconds).Msg("Timer paused")
}

// releaseLocked cancels task and forgets it. Caller must hold t.mu.
func (t *Timer) releaseLocked(task *tickTask) {
	task.cancel()
	if t.task == task {
		t.task = nil
		t.prev = task
		t.metrics.recordReleased()
	}
}

// awaitPrevLocked waits until the last released task has exited, so a new
// task never competes with it for a spawner slot. t.mu is dropped while
// waiting because the old task may be blocked on it in tick; callers must
// re-read any state afterwards. Must not be called from the tick task.
func (t *Timer) awaitPrevLocked() {
	for t.prev != nil {
		prev := t.prev
		select {
		case <-prev.done:
		default:
			t.mu.Unlock()
			<-prev.done
			t.mu.Lock()
		}
		if t.prev == prev {
			t.prev = nil
		}
	}
}

// run is the tick loop. It checks for cancellation before every wait and,
// under t.mu, right after it.
func (t *Timer) run(task *tickTask) {
	for {
		if task.ctx.Err() != nil {
			return
		}

		wait := t.clock.NewTimer(t.interval)
		select {
		case <-task.ctx.Done():
			wait.Stop()
			return
		case <-wait.C():
		}

		if !t.tick(task) {
			return
		}
	}
}

// tick applies one decrement and reports whether the loop should continue.
func (t *Timer) tick(task *tickTask) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.ctx.Err() != nil || t.task != task {
		return false
	}

	cur := t.state.Load()
	next := cur
	next.RemainingSeconds--
	t.metrics.recordTick()

	if next.RemainingSeconds > 0 {
		t.publishLocked(next)
		return true
	}

	t.expireLocked(cur, &next)
	t.publishLocked(next)

	if next.RemainingSeconds <= -t.maxOvertime {
		t.releaseLocked(task)
		return false
	}
	return true
}

// expireLocked moves next into ModeExpired, recording the transition once.
func (t *Timer) expireLocked(cur State, next *State) {
	next.Mode = ModeExpired
	if cur.Mode != ModeExpired {
		t.metrics.recordExpired()
		t.log.Info().Int("start_seconds", next.StartSeconds).Msg("Timer expired")
	}
}

// applyInitialLocked installs the configured duration as the new baseline.
// An expired timer is stopped first, so it can be started again.
func (t *Timer) applyInitialLocked() {
	initial := t.initialLocked()
	mode := t.state.Load().Mode
	if mode == ModeExpired {
		if t.task != nil {
			t.releaseLocked(t.task)
		}
		mode = ModeStopped
	}
	t.publishLocked(State{StartSeconds: initial, RemainingSeconds: initial, Mode: mode})
}

func (t *Timer) initialLocked() int {
	return t.seconds + t.minutes*60 + t.hours*3600
}

// publishLocked is the single writer of t.state. Caller must hold t.mu.
func (t *Timer) publishLocked(s State) {
	t.state.Store(s)
}

// clampComponent adds delta to v and saturates the result into [0,59].
func clampComponent(v, delta int) int {
	delta = min(max(delta, -maxComponent), maxComponent)
	return min(max(v+delta, 0), maxComponent)
}
