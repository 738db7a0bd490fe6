// Package app assembles a running engine from configuration.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/config"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/logging"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/metrics"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/restaurant"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/scheduler"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/transcript"
)

// App holds every long-lived component of a running engine.
type App struct {
	Config    *config.Config
	Catalog   *restaurant.Catalog
	Store     *session.Store
	Bus       *bus.Bus
	Engine    *orchestrator.Orchestrator
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Collector *metrics.Collector
	Scheduler *scheduler.Scheduler

	transcripts *transcript.Store
	writer      *transcript.Writer
	log         zerolog.Logger
}

// New wires an engine from cfg. Background work (metrics collection and the
// session sweep) starts only with Start.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		log:    logging.WithComponent(log.Logger, "app"),
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	pack := restaurant.NewPack(cat)
	a.Store = pack.Store(
		session.WithTimeout(cfg.Session.Timeout.Std()),
		session.WithLogger(logging.WithComponent(log.Logger, "session")),
	)
	a.Bus = bus.New()

	opts := []orchestrator.Option{
		orchestrator.WithConfig(cfg.Engine.Orchestrator()),
		orchestrator.WithBus(a.Bus),
		orchestrator.WithParamBindings(restaurant.ParamBindings()),
		orchestrator.WithSafeSuggestions(restaurant.SafeSuggestions()),
		orchestrator.WithLogger(logging.WithComponent(log.Logger, "orchestrator")),
	}

	if cfg.Transcript.Enabled {
		ts, err := transcript.Open(cfg.Transcript.Path)
		if err != nil {
			a.Bus.Close()
			return nil, fmt.Errorf("open transcript: %w", err)
		}
		wl := logging.WithComponent(log.Logger, "transcript")
		a.transcripts = ts
		a.writer = transcript.NewWriter(ts, cfg.Transcript.QueueSize, &wl)
		opts = append(opts, orchestrator.WithRecorder(a.writer))
	}

	a.Engine, err = orchestrator.New(orchestrator.Components{
		Recognizer: pack.Recognizer(),
		Extractor:  pack.Extractor(),
		Store:      a.Store,
		Dialog:     pack.Dialog(),
		Tools:      pack.Registry(tools.WithLogger(logging.WithComponent(log.Logger, "tools"))),
		Formatters: restaurant.Formatters(),
		Fallback:   restaurant.Fallback(),
	}, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry, a.Store)
	a.Collector = metrics.NewCollector(a.Bus, a.Metrics)

	a.Scheduler, err = scheduler.New(a.Store, cfg.Session.SweepSchedule,
		scheduler.WithBus(a.Bus),
		scheduler.WithLogger(logging.WithComponent(log.Logger, "scheduler")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.log.Info().
		Int("campuses", len(cat.Campuses)).
		Bool("transcript", cfg.Transcript.Enabled).
		Msg("engine ready")
	return a, nil
}

// Start begins metrics collection and the session sweep.
func (a *App) Start() {
	a.Collector.Start()
	a.Scheduler.Start()
}

// Transcripts returns the transcript store, or nil when disabled.
func (a *App) Transcripts() *transcript.Store {
	return a.transcripts
}

// Close stops background work and flushes pending transcript records.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Collector != nil {
		a.Collector.Stop()
	}
	if a.writer != nil {
		a.writer.Close()
		a.log.Debug().
			Uint64("written", a.writer.Written()).
			Uint64("dropped", a.writer.Dropped()).
			Msg("transcript writer closed")
	}
	if a.transcripts != nil {
		if err := a.transcripts.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close transcript store")
		}
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
}

func loadCatalog(path string) (*restaurant.Catalog, error) {
	if path == "" {
		return restaurant.DefaultCatalog()
	}
	cat, err := restaurant.LoadCatalog(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}
