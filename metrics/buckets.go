package metrics

var (
	// DurationBuckets covers sub-millisecond handlers up to multi-second requests.
	DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// CountBuckets is used for small cardinalities such as timers per collection.
	CountBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250}

	// CountdownBuckets spans countdown lengths from a few seconds to a full day.
	CountdownBuckets = []float64{10, 30, 60, 300, 900, 1800, 3600, 7200, 21600, 86400}
)
