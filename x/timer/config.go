package timer

import (
	"time"

	"github.com/rs/zerolog"
)

// Config contains the dependencies of a Timer.
type Config struct {
	Logger zerolog.Logger

	// Clock paces the tick task; defaults to SystemClock.
	Clock Clock

	// Spawner runs the tick task; defaults to GoroutineSpawner.
	Spawner Spawner

	// TickInterval is the wait between two decrements.
	TickInterval time.Duration

	// MaxOvertime is how many seconds an expired timer keeps counting below zero.
	// Zero stops the tick task exactly at expiration.
	MaxOvertime int

	// Metrics is optional.
	Metrics *Metrics
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(logger zerolog.Logger) Config {
	return Config{
		Logger:       logger.With().Str("component", "timer").Logger(),
		Clock:        SystemClock{},
		Spawner:      GoroutineSpawner{},
		TickInterval: DefaultTickInterval,
	}
}

func (cfg *Config) apply() {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Spawner == nil {
		cfg.Spawner = GoroutineSpawner{}
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.MaxOvertime < 0 {
		cfg.MaxOvertime = 0
	}
}

// CollectionConfig configures a Collection.
type CollectionConfig struct {
	Logger zerolog.Logger

	// Timer is the template every new timer is built from.
	Timer Config

	// InitialTimers is how many timers the collection starts with.
	InitialTimers int

	// MinTimers is the floor Remove refuses to go below; zero allows an empty collection.
	MinTimers int

	Metrics *Metrics
}

// DefaultCollectionConfig starts with one timer and always keeps at least one.
func DefaultCollectionConfig(logger zerolog.Logger) CollectionConfig {
	return CollectionConfig{
		Logger:        logger.With().Str("component", "timer-collection").Logger(),
		Timer:         DefaultConfig(logger),
		InitialTimers: DefaultInitialTimers,
		MinTimers:     DefaultMinTimers,
	}
}
