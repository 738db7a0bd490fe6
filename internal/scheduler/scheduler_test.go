package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
)

type countingSweeper struct {
	calls   atomic.Int32
	removed int
}

func (c *countingSweeper) SweepExpired() int {
	c.calls.Add(1)
	return c.removed
}

func TestSweepPublishesEvent(t *testing.T) {
	b := bus.New()
	defer b.Close()

	sw := &countingSweeper{removed: 3}
	s, err := New(sw, "", WithBus(b))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Sweep())
	hist := b.History(0)
	require.Len(t, hist, 1)
	assert.Equal(t, bus.EventSessionsSwept, hist[0].Type)
	assert.Equal(t, 3, hist[0].Count)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := New(&countingSweeper{}, "every now and then")
	assert.Error(t, err)
}

func TestScheduledSweepRuns(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New(sw, "@every 1s")
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := session.NewStore(session.WithClock(clock))
	store.GetOrCreate("old", "pt-BR", "")

	now = now.Add(31 * time.Minute)
	store.GetOrCreate("fresh", "pt-BR", "")

	s, err := New(store, DefaultSweepSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, store.Len())
}
