package timer

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/countdown/metrics"
)

func newTestCollection(t *testing.T, minTimers, initial int) (*Collection, *manualClock) {
	t.Helper()
	clock := newManualClock()
	cfg := DefaultCollectionConfig(zerolog.Nop())
	cfg.Timer = testConfig(clock)
	cfg.MinTimers = minTimers
	cfg.InitialTimers = initial
	c := NewCollection(cfg)
	t.Cleanup(c.Close)
	return c, clock
}

func TestCollectionStartsWithInitialTimers(t *testing.T) {
	t.Parallel()

	c := NewCollection(DefaultCollectionConfig(zerolog.Nop()))
	require.Equal(t, 1, c.Len())
	require.Equal(t, 1, c.Min())

	first, ok := c.At(0)
	require.True(t, ok)
	require.Equal(t, State{Mode: ModeStopped}, first.State())

	// The minimum wins over a smaller initial size.
	c2, _ := newTestCollection(t, 3, 1)
	require.Equal(t, 3, c2.Len())
}

func TestCollectionAddAppendsInOrder(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollection(t, 0, 0)

	a := c.Add()
	b := c.Add()

	require.Equal(t, []*Timer{a, b}, c.List())
	require.Equal(t, 0, c.IndexOf(a))
	require.Equal(t, 1, c.IndexOf(b))

	got, ok := c.Get(b.ID())
	require.True(t, ok)
	require.Same(t, b, got)

	_, ok = c.Get("missing")
	require.False(t, ok)
	_, ok = c.At(2)
	require.False(t, ok)
	_, ok = c.At(-1)
	require.False(t, ok)
}

func TestCollectionAddThenRemoveRestoresSequence(t *testing.T) {
	t.Parallel()
	c, clock := newTestCollection(t, 1, 2)
	before := c.List()

	added := c.Add()
	added.AddInitialSeconds(30)
	added.Start()
	require.True(t, added.Active())

	require.NoError(t, c.Remove(added))
	require.Equal(t, before, c.List())
	require.False(t, added.Active())
	require.Equal(t, ModePaused, added.State().Mode)
	require.Zero(t, clock.pending())
}

func TestCollectionRemoveMatchesByIdentity(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollection(t, 0, 0)

	a := c.Add()
	b := c.Add()
	require.Equal(t, a.State(), b.State())

	require.NoError(t, c.Remove(b))
	require.Equal(t, []*Timer{a}, c.List())
}

func TestCollectionRemoveErrors(t *testing.T) {
	t.Parallel()
	c, clock := newTestCollection(t, 1, 1)

	stranger := New(testConfig(clock))
	require.ErrorIs(t, c.Remove(stranger), ErrTimerNotFound)

	only, _ := c.At(0)
	only.AddInitialSeconds(5)
	only.Start()

	require.ErrorIs(t, c.Remove(only), ErrMinimumTimers)
	require.Equal(t, 1, c.Len())
	require.True(t, only.Active(), "refused removal must not stop the timer")

	require.NoError(t, c.Remove(c.Add()))
	require.ErrorIs(t, c.Remove(only), ErrMinimumTimers)
}

func TestCollectionAllowsEmptyWithZeroMinimum(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollection(t, 0, 1)

	only, _ := c.At(0)
	require.NoError(t, c.Remove(only))
	require.Zero(t, c.Len())
	require.ErrorIs(t, c.Remove(only), ErrTimerNotFound)
}

func TestCollectionSubscribePublishesSequences(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollection(t, 0, 1)

	seqs := c.Subscribe(t.Context())
	require.Len(t, <-seqs, 1)

	added := c.Add()
	require.Len(t, recvWithin(t, seqs), 2)

	require.NoError(t, c.Remove(added))
	last := recvWithin(t, seqs)
	require.Len(t, last, 1)
	require.NotContains(t, last, added)
}

func TestCollectionTimersRunIndependently(t *testing.T) {
	t.Parallel()
	clockA, clockB := newManualClock(), newManualClock()

	cfg := DefaultCollectionConfig(zerolog.Nop())
	cfg.InitialTimers = 0
	cfg.MinTimers = 0
	cfg.Timer = testConfig(clockA)
	c := NewCollection(cfg)
	t.Cleanup(c.Close)

	a := c.Add()
	b := New(testConfig(clockB))
	t.Cleanup(b.Close)

	a.AddInitialSeconds(5)
	b.AddInitialSeconds(5)
	a.Start()
	b.Start()

	tick(t, clockA, a, 4)
	tick(t, clockA, a, 3)
	tick(t, clockB, b, 4)

	b.Stop()
	require.Equal(t, ModeRunning, a.State().Mode)
	require.Equal(t, 3, a.State().RemainingSeconds)
}

func TestCollectionCloseStopsEveryTimer(t *testing.T) {
	t.Parallel()
	c, _ := newTestCollection(t, 0, 3)

	for _, tm := range c.List() {
		tm.AddInitialSeconds(10)
		tm.Start()
	}

	c.Close()
	for _, tm := range c.List() {
		require.False(t, tm.Active())
		require.Equal(t, ModePaused, tm.State().Mode)
	}
	require.Equal(t, 3, c.Len())
}

func TestCollectionMetricsTrackSize(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(metrics.NewComponentRegistryWith(reg, "countdown", "engine"))

	cfg := DefaultCollectionConfig(zerolog.Nop())
	cfg.Timer = testConfig(newManualClock())
	cfg.Metrics = m
	c := NewCollection(cfg)
	t.Cleanup(c.Close)
	require.Equal(t, float64(1), testutil.ToFloat64(m.TimersTotal))

	added := c.Add()
	require.Equal(t, float64(2), testutil.ToFloat64(m.TimersTotal))

	added.AddInitialSeconds(1)
	require.Equal(t, float64(1), testutil.ToFloat64(m.CommandsTotal.WithLabelValues("add_initial_seconds")),
		"timers inherit the collection metrics")

	require.NoError(t, c.Remove(added))
	require.Equal(t, float64(1), testutil.ToFloat64(m.TimersTotal))
}

func recvWithin[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for publication")
	}
	var zero T
	return zero
}
