// Package scheduler runs the periodic session sweep.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
)

// DefaultSweepSchedule runs the sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweeper removes expired sessions and reports how many it removed.
type Sweeper interface {
	SweepExpired() int
}

// Publisher receives the sweep events.
type Publisher interface {
	Publish(e bus.Event) error
}

// Scheduler owns the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	events  Publisher
	log     zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBus publishes a sessions_swept event after each sweep.
func WithBus(p Publisher) Option {
	return func(s *Scheduler) {
		s.events = p
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

// New creates a scheduler that sweeps on schedule, a standard cron
// expression or a descriptor such as "@every 5m".
func New(sweeper Sweeper, schedule string, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep() }); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs one sweep now and returns how many sessions were removed.
func (s *Scheduler) Sweep() int {
	removed := s.sweeper.SweepExpired()
	s.log.Debug().Int("removed", removed).Msg("session sweep finished")

	if s.events != nil {
		ev := bus.NewEvent(bus.EventSessionsSwept)
		ev.Count = removed
		if err := s.events.Publish(ev); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish sweep event")
		}
	}
	return removed
}
