package metrics

import (
	"strconv"
	"sync"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
)

// Collector subscribes to the event bus and updates the series.
type Collector struct {
	bus     *bus.Bus
	metrics *Metrics

	mu      sync.Mutex
	sub     bus.SubscriptionID
	stopped bool
}

// NewCollector creates a collector. Call Start to begin listening.
func NewCollector(b *bus.Bus, m *Metrics) *Collector {
	return &Collector{bus: b, metrics: m}
}

// Start subscribes to every event.
func (c *Collector) Start() {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.sub != "" {
		return
	}
	c.sub = c.bus.Subscribe("", c.handleEvent)
}

// Stop unsubscribes.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.sub != "" {
		_ = c.bus.Unsubscribe(c.sub)
	}
}

func (c *Collector) handleEvent(e bus.Event) {
	m := c.metrics
	switch e.Type {
	case bus.EventMessageOut:
		m.Messages.WithLabelValues(e.ResponseType, e.Intent).Inc()
		for stage, ms := range e.Stages {
			m.StageDuration.WithLabelValues(stage).Observe(ms / 1000)
		}
	case bus.EventToolExecuted:
		m.ToolExecutions.WithLabelValues(e.Tool, strconv.FormatBool(e.Success)).Inc()
		m.ToolDuration.WithLabelValues(e.Tool).Observe(float64(e.DurationMs) / 1000)
	case bus.EventFallbackUsed:
		m.Fallbacks.Inc()
	case bus.EventPipelineError:
		m.PipelineErrors.Inc()
		m.Messages.WithLabelValues(e.ResponseType, "").Inc()
	case bus.EventSessionsSwept:
		m.SessionsSwept.Add(float64(e.Count))
	}
}
