package restaurant

import (
	"time"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// Pack bundles the restaurant data for wiring an engine.
type Pack struct {
	Catalog *Catalog
	now     func() time.Time
}

// PackOption configures a Pack.
type PackOption func(*Pack)

// WithClock sets the clock used to resolve relative dates.
func WithClock(now func() time.Time) PackOption {
	return func(p *Pack) {
		p.now = now
	}
}

// NewPack creates a pack over a catalog.
func NewPack(c *Catalog, opts ...PackOption) *Pack {
	p := &Pack{Catalog: c, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extractor returns an entity extractor with the Portuguese patterns and the
// catalog's campus aliases.
func (p *Pack) Extractor() *entity.Extractor {
	return entity.NewExtractor(entity.DefaultPatterns(p.Catalog.CampusAliases())...)
}

// Recognizer returns an intent recognizer with the restaurant intents.
func (p *Pack) Recognizer() *intent.Recognizer {
	return intent.NewRecognizer(IntentDefinitions())
}

// Registry returns a tool registry holding every restaurant tool.
func (p *Pack) Registry(opts ...tools.Option) *tools.Registry {
	r := tools.NewRegistry(append([]tools.Option{tools.WithSuggestions(ToolSuggestions())}, opts...)...)
	for _, t := range Tools(p.Catalog) {
		r.Register(t)
	}
	return r
}

// Store returns a session store with the restaurant requirements.
func (p *Pack) Store(opts ...session.Option) *session.Store {
	return session.NewStore(append([]session.Option{session.WithRequirements(Requirements())}, opts...)...)
}

// Dialog returns the dialog manager.
func (p *Pack) Dialog() *dialog.Manager {
	return dialog.NewManager(p.Catalog.Policy(p.now), Requirements(), session.DefaultSlotNames())
}
