package timer

import "time"

// ClockTimer is a one-shot wait created by a Clock.
type ClockTimer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates the waits that pace tick tasks.
type Clock interface {
	NewTimer(d time.Duration) ClockTimer
}

// SystemClock implements Clock using the standard library time package.
type SystemClock struct{}

// NewTimer creates a wall-clock wait of d.
func (SystemClock) NewTimer(d time.Duration) ClockTimer {
	return &systemTimer{timer: time.NewTimer(d)}
}

// systemTimer implements ClockTimer using time.Timer.
type systemTimer struct {
	timer *time.Timer
}

func (t *systemTimer) C() <-chan time.Time {
	return t.timer.C
}

func (t *systemTimer) Stop() bool {
	return t.timer.Stop()
}
