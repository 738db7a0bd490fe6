package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
)

type fixedSessions int

func (n fixedSessions) Len() int { return int(n) }

func TestCollectorHandleEvent(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)
	c := NewCollector(nil, m)

	out := bus.NewEvent(bus.EventMessageOut)
	out.ResponseType = "ANSWER"
	out.Intent = "PRECO"
	out.Stages = map[string]float64{"intent_recognition": 0.4, "total": 2}
	c.handleEvent(out)
	c.handleEvent(out)

	tool := bus.NewEvent(bus.EventToolExecuted)
	tool.Tool = "calculate_meal_cost"
	tool.Success = true
	tool.DurationMs = 3
	c.handleEvent(tool)

	c.handleEvent(bus.NewEvent(bus.EventFallbackUsed))

	failed := bus.NewEvent(bus.EventPipelineError)
	failed.ResponseType = "ERROR"
	c.handleEvent(failed)

	swept := bus.NewEvent(bus.EventSessionsSwept)
	swept.Count = 4
	c.handleEvent(swept)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Messages.WithLabelValues("ANSWER", "PRECO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("ERROR", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolExecutions.WithLabelValues("calculate_meal_cost", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SessionsSwept))
	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestActiveSessionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, fixedSessions(7))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "rubot_active_sessions" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, 7.0, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestCollectorSubscribes(t *testing.T) {
	b := bus.New()
	defer b.Close()

	m := New(prometheus.NewRegistry(), nil)
	c := NewCollector(b, m)
	c.Start()
	c.Start()
	assert.Equal(t, 1, b.SubscriptionsCount())

	require.NoError(t, b.Publish(bus.NewEvent(bus.EventFallbackUsed)))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Fallbacks) == 1
	}, time.Second, 5*time.Millisecond)

	c.Stop()
	assert.Zero(t, b.SubscriptionsCount())
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)
	m.ObserveRequest("POST", "/api/v1/messages", 200, 0.01)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("POST", "/api/v1/messages", "200")))
}
