package timer

import "time"

const (
	DefaultTickInterval  = time.Second
	DefaultInitialTimers = 1
	DefaultMinTimers     = 1

	// maxComponent bounds each of the hour/minute/second accumulators.
	maxComponent = 59
)
