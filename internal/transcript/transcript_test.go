package transcript

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		_, err := s.Append(ctx, Record{
			SessionID:    "s1",
			TurnID:       i,
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			UserMessage:  "oi",
			BotResponse:  "Olá!",
			Intent:       "SAUDACAO",
			ResponseType: "ANSWER",
			Confidence:   0.9,
			Tools:        []string{"opening_hours"},
			TotalMs:      1.5,
		})
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, Record{SessionID: "s2", TurnID: 1, ResponseType: "FALLBACK", FallbackUsed: true})
	require.NoError(t, err)

	got, err := s.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, i+1, r.TurnID)
		assert.Equal(t, []string{"opening_hours"}, r.Tools)
		assert.Equal(t, "SAUDACAO", r.Intent)
		assert.NotEmpty(t, r.ID)
	}
	assert.True(t, got[0].Timestamp.Equal(base.Add(time.Second)))

	limited, err := s.List(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	other, err := s.List(ctx, "s2", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.True(t, other[0].FallbackUsed)
	assert.Nil(t, other[0].Tools)

	none, err := s.List(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, Record{SessionID: "old", Timestamp: base, ResponseType: "ANSWER"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Record{SessionID: "new", Timestamp: base.Add(time.Hour), ResponseType: "ANSWER"})
	require.NoError(t, err)
	_, err = s.Append(ctx, Record{SessionID: "new", Timestamp: base.Add(2 * time.Hour), ResponseType: "ANSWER"})
	require.NoError(t, err)

	sums, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "new", sums[0].SessionID)
	assert.Equal(t, 2, sums[0].Turns)
	assert.True(t, sums[0].LastSeen.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "old", sums[1].SessionID)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Append(context.Background(), Record{SessionID: "s", ResponseType: "ANSWER"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(context.Background(), "s", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type memAppender struct {
	mu      sync.Mutex
	records []Record
	block   chan struct{}
	fail    bool
}

func (m *memAppender) Append(_ context.Context, r Record) (string, error) {
	if m.block != nil {
		<-m.block
	}
	if m.fail {
		return "", errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return r.ID, nil
}

func (m *memAppender) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestWriterFlushesOnClose(t *testing.T) {
	dst := &memAppender{}
	w := NewWriter(dst, 16, nil)

	for i := 0; i < 10; i++ {
		assert.True(t, w.Record(Record{SessionID: "s", TurnID: i}))
	}
	w.Close()

	assert.Equal(t, 10, dst.len())
	assert.Equal(t, uint64(10), w.Written())
	assert.Zero(t, w.Dropped())

	assert.False(t, w.Record(Record{SessionID: "s"}), "closed writer drops")
	assert.Equal(t, uint64(1), w.Dropped())
}

func TestWriterDropsWhenFull(t *testing.T) {
	dst := &memAppender{block: make(chan struct{})}
	w := NewWriter(dst, 2, nil)

	// The first record is picked up by the worker and blocks there, so the
	// queue fills after two more.
	require.True(t, w.Record(Record{TurnID: 0}))
	require.Eventually(t, func() bool { return len(w.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, w.Record(Record{TurnID: 1}))
	require.True(t, w.Record(Record{TurnID: 2}))
	assert.False(t, w.Record(Record{TurnID: 3}))
	assert.Equal(t, uint64(1), w.Dropped())

	close(dst.block)
	w.Close()
	assert.Equal(t, 3, dst.len())
}

func TestWriterAppendFailureIsNotFatal(t *testing.T) {
	dst := &memAppender{fail: true}
	w := NewWriter(dst, 4, nil)
	assert.True(t, w.Record(Record{SessionID: "s"}))
	w.Close()
	assert.Zero(t, w.Written())
}
