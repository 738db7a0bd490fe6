package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/restaurant"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/transcript"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixedRecognizer struct {
	result intent.Result
}

func (r fixedRecognizer) Recognize(string, *intent.Context) intent.Result { return r.result }

type panicRecognizer struct{}

func (panicRecognizer) Recognize(string, *intent.Context) intent.Result { panic("recognizer exploded") }

type panicDialog struct{}

func (panicDialog) Respond(intent.Name, session.Context, float64) dialog.Response {
	panic("dialog exploded")
}

type panicTool struct{}

func (panicTool) ID() tools.ID                      { return "explode" }
func (panicTool) Name() string                      { return "Explode" }
func (panicTool) Category() tools.Category          { return tools.CategoryCalculation }
func (panicTool) Parameters() []tools.ParameterSpec { return nil }
func (panicTool) Execute(context.Context, tools.Params, tools.ExecutionContext) (tools.Data, error) {
	panic("tool exploded")
}

type memRecorder struct {
	mu      sync.Mutex
	records []transcript.Record
}

func (m *memRecorder) Record(r transcript.Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return true
}

type engine struct {
	*Orchestrator
	store *session.Store
	clock *fakeClock
	bus   *bus.Bus
}

type setup struct {
	components func(*Components)
	opts       []Option
}

func catalog(t *testing.T) *restaurant.Catalog {
	t.Helper()
	c, err := restaurant.DefaultCatalog()
	require.NoError(t, err)
	return c
}

func newEngine(t *testing.T, s setup) engine {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	pack := restaurant.NewPack(catalog(t), restaurant.WithClock(clock.Now))
	store := pack.Store(session.WithClock(clock.Now))

	c := Components{
		Recognizer: pack.Recognizer(),
		Extractor:  pack.Extractor(),
		Store:      store,
		Dialog:     pack.Dialog(),
		Tools:      pack.Registry(),
		Formatters: restaurant.Formatters(),
		Fallback:   restaurant.Fallback(),
	}
	if s.components != nil {
		s.components(&c)
	}

	b := bus.New()
	t.Cleanup(func() { b.Close() })

	opts := append([]Option{
		WithClock(clock.Now),
		WithBus(b),
		WithParamBindings(restaurant.ParamBindings()),
		WithSafeSuggestions(restaurant.SafeSuggestions()),
	}, s.opts...)

	o, err := New(c, opts...)
	require.NoError(t, err)
	return engine{Orchestrator: o, store: store, clock: clock, bus: b}
}

func (e engine) say(sessionID, text string) ProcessingResult {
	return e.Process(context.Background(), Message{SessionID: sessionID, Text: text})
}

func TestProcess_PriceEndToEnd(t *testing.T) {
	e := newEngine(t, setup{})

	res := e.say("s1", "Qual o preço do almoço?")

	assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
	assert.Equal(t, restaurant.IntentPrice, res.Response.Intent)
	assert.GreaterOrEqual(t, res.Response.Confidence, 0.3)
	assert.True(t, strings.HasPrefix(res.Response.Text, "Preço do almoço: estudante R$ 2,00"))
	assert.Contains(t, res.Response.Text, "\n\nValor do almoço (estudante): R$ 2,00")
	require.NotNil(t, res.Response.Metadata)
	assert.Equal(t, []string{string(restaurant.ToolMealCost)}, res.Response.Metadata.UsedTools)
	assert.False(t, res.Response.Metadata.FallbackUsed)

	assert.Equal(t, "s1", res.SessionSnapshot.SessionID)
	assert.Equal(t, session.StateAwaitingResponse, res.SessionSnapshot.DialogState)
	assert.Equal(t, 1, res.SessionSnapshot.TurnCount)
	assert.Equal(t, restaurant.IntentPrice, res.SessionSnapshot.CurrentIntent)
	assert.Equal(t, 1, res.SessionSnapshot.SlotsFilled)
	assert.GreaterOrEqual(t, res.Metrics.TotalMs, res.Metrics.DialogManagementMs)

	c, ok := e.store.Get("s1")
	require.True(t, ok)
	last, _ := c.LastTurn()
	assert.Equal(t, res.Response.Text, last.BotResponse)
	assert.Len(t, c.History, 1)
}


func TestProcess_PriceIgnoresDigitsOfOtherEntities(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Qual o preço do almoço? Tenho R$ 10", "Valor do almoço (estudante): R$ 2,00"},
		{"Qual o preço do almoço às 11:30?", "Valor do almoço (estudante): R$ 2,00"},
		{"Quanto custa o jantar no dia 15/03?", "Valor do jantar (estudante): R$ 2,00"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			e := newEngine(t, setup{})

			res := e.say("s1", tt.text)
			assert.Equal(t, restaurant.IntentPrice, res.Response.Intent)
			assert.Contains(t, res.Response.Text, tt.want)
			assert.NotContains(t, res.Response.Text, "Custo:")

			slot, ok := e.store.GetSlot("s1", "quantidade")
			assert.False(t, ok && slot.Filled)

			res = e.say("s1", "Qual o preço do almoço?")
			assert.Contains(t, res.Response.Text, "Valor do almoço (estudante): R$ 2,00")
		})
	}
}
func TestProcess_RequiredSlotGating(t *testing.T) {
	e := newEngine(t, setup{})

	first := e.say("s1", "Onde fica o RU?")
	assert.Equal(t, dialog.TypeClarification, first.Response.Type)
	assert.True(t, first.Response.RequiresAction)
	require.NotNil(t, first.Response.Metadata)
	assert.Contains(t, first.Response.Metadata.MissingSlots, "campus")
	assert.Empty(t, first.Response.Metadata.UsedTools)
	assert.Equal(t, session.StateCollectingInfo, first.SessionSnapshot.DialogState)

	second := e.say("s1", "no campus norte")
	assert.Equal(t, dialog.TypeAnswer, second.Response.Type)
	assert.Equal(t, restaurant.IntentLocation, second.Response.Intent)
	assert.InDelta(t, 0.6, second.Response.Confidence, 1e-9)
	assert.Contains(t, second.Response.Text, "O RU do Campus Norte fica em Rod. BR-101, km 4 - Prédio 7.")
	assert.Contains(t, second.Response.Text, "Capacidade: 450 lugares.")
	assert.Equal(t, session.StateAwaitingResponse, second.SessionSnapshot.DialogState)
}

func TestProcess_NoContinuationWithoutMultiTurn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MultiTurn = false
	e := newEngine(t, setup{opts: []Option{WithConfig(cfg)}})

	e.say("s1", "Onde fica o RU?")
	res := e.say("s1", "no campus norte")

	assert.Equal(t, dialog.TypeFallback, res.Response.Type)
	assert.Equal(t, intent.Unknown, res.Response.Intent)
	assert.Equal(t, restaurant.IntentLocation, res.SessionSnapshot.CurrentIntent)
}

func TestProcess_SlotOverwrite(t *testing.T) {
	e := newEngine(t, setup{})

	e.say("s1", "Onde fica o campus norte?")
	e.say("s1", "e o campus centro?")

	slot, ok := e.store.GetSlot("s1", "campus")
	require.True(t, ok)
	assert.Equal(t, entity.CampusValue{ID: "centro"}, slot.Value)
}

func TestProcess_HistoryBound(t *testing.T) {
	e := newEngine(t, setup{})

	var last ProcessingResult
	for i := 0; i < 60; i++ {
		last = e.say("s1", "oi")
	}
	assert.Equal(t, 60, last.SessionSnapshot.TurnCount)

	c, ok := e.store.Get("s1")
	require.True(t, ok)
	require.Len(t, c.History, 50)
	assert.Equal(t, 11, c.History[0].ID)
}

func TestProcess_Expiry(t *testing.T) {
	e := newEngine(t, setup{})

	e.say("s1", "oi")
	e.clock.Advance(31 * time.Minute)

	c := e.store.GetOrCreate("s1", "pt-BR", "")
	assert.Zero(t, c.TurnCount)

	res := e.say("s1", "oi")
	assert.Equal(t, 1, res.SessionSnapshot.TurnCount)
}

func TestProcess_ToolIsolation(t *testing.T) {
	e := newEngine(t, setup{components: func(c *Components) {
		reg := tools.NewRegistry(tools.WithSuggestions(map[intent.Name][]tools.ID{
			restaurant.IntentPrice: {"explode", restaurant.ToolMealCost},
		}))
		reg.Register(panicTool{})
		for _, tool := range restaurant.Tools(catalog(t)) {
			reg.Register(tool)
		}
		c.Tools = reg
	}})

	res := e.say("s1", "Qual o preço do almoço?")

	assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
	assert.Contains(t, res.Response.Text, "Valor do almoço (estudante): R$ 2,00")
	require.NotNil(t, res.Response.Metadata)
	assert.Equal(t, []string{string(restaurant.ToolMealCost)}, res.Response.Metadata.UsedTools)

	var failed []bus.Event
	for _, ev := range e.bus.History(0) {
		if ev.Type == bus.EventToolExecuted && !ev.Success {
			failed = append(failed, ev)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "explode", failed[0].Tool)
	assert.Contains(t, failed[0].Error, "tool panicked")
}

func TestProcess_ToolUseDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToolUse = false
	e := newEngine(t, setup{opts: []Option{WithConfig(cfg)}})

	res := e.say("s1", "Qual o preço do almoço?")
	assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
	assert.NotContains(t, res.Response.Text, "Valor do almoço")
	assert.Nil(t, res.Response.Metadata)
}

func TestProcess_FallbackThreshold(t *testing.T) {
	text := "Qual o preço do almoço?"
	tests := []struct {
		name       string
		confidence float64
		fallback   bool
	}{
		{"below threshold", 0.1, true},
		{"above threshold", 0.5, false},
		{"at threshold", 0.3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, setup{components: func(c *Components) {
				c.Recognizer = fixedRecognizer{intent.Result{Intent: restaurant.IntentPrice, Confidence: tt.confidence}}
			}})

			res := e.say("s1", text)
			assert.Equal(t, tt.confidence, res.Response.Confidence)
			// The dialog state transition is kept either way.
			assert.Equal(t, session.StateAwaitingResponse, res.SessionSnapshot.DialogState)

			if tt.fallback {
				assert.Equal(t, dialog.TypeFallback, res.Response.Type)
				assert.Equal(t, restaurant.Fallback().Respond(text).Text, res.Response.Text)
				require.NotNil(t, res.Response.Metadata)
				assert.True(t, res.Response.Metadata.FallbackUsed)
				assert.Empty(t, res.Response.Metadata.UsedTools)

				c, _ := e.store.Get("s1")
				last, _ := c.LastTurn()
				assert.Equal(t, res.Response.Text, last.BotResponse)
				return
			}
			assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
			require.NotNil(t, res.Response.Metadata)
			assert.False(t, res.Response.Metadata.FallbackUsed)
		})
	}
}

func TestProcess_FallbackDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fallback = false
	e := newEngine(t, setup{opts: []Option{WithConfig(cfg)}})

	res := e.say("s1", "xyz")
	assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
	assert.Equal(t, intent.Unknown, res.Response.Intent)
	assert.Zero(t, res.Response.Confidence)
}

func TestProcess_RecoversPanics(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*Components)
		stage     string
		turnCount int
	}{
		{"recognizer", func(c *Components) { c.Recognizer = panicRecognizer{} }, "intent recognition", 0},
		{"dialog", func(c *Components) { c.Dialog = panicDialog{} }, "pipeline", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memRecorder{}
			e := newEngine(t, setup{components: tt.setup, opts: []Option{WithRecorder(rec)}})

			res := e.say("s1", "Qual o preço do almoço?")

			assert.Equal(t, dialog.TypeError, res.Response.Type)
			assert.Zero(t, res.Response.Confidence)
			assert.Equal(t, DefaultErrorText, res.Response.Text)
			assert.Equal(t, restaurant.SafeSuggestions(), res.Response.Suggestions)
			require.NotNil(t, res.Response.Metadata)
			assert.Contains(t, res.Response.Metadata.Error, "panic in "+tt.stage)
			assert.Equal(t, tt.turnCount, res.SessionSnapshot.TurnCount)

			var sawError bool
			for _, ev := range e.bus.History(0) {
				sawError = sawError || ev.Type == bus.EventPipelineError
			}
			assert.True(t, sawError)

			require.Len(t, rec.records, 1)
			assert.Equal(t, string(dialog.TypeError), rec.records[0].ResponseType)
			assert.NotEmpty(t, rec.records[0].Error)
		})
	}
}

func TestProcess_EventsAndTranscript(t *testing.T) {
	rec := &memRecorder{}
	e := newEngine(t, setup{opts: []Option{WithRecorder(rec)}})

	e.say("s1", "Qual o preço do almoço?")

	var types []bus.EventType
	for _, ev := range e.bus.History(0) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []bus.EventType{bus.EventMessageIn, bus.EventToolExecuted, bus.EventMessageOut}, types)

	out := e.bus.History(1)[0]
	assert.Equal(t, string(restaurant.IntentPrice), out.Intent)
	assert.Contains(t, out.Stages, "intent_recognition")

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, 1, r.TurnID)
	assert.Equal(t, "ANSWER", r.ResponseType)
	assert.Equal(t, []string{string(restaurant.ToolMealCost)}, r.Tools)
	assert.Equal(t, e.clock.Now(), r.Timestamp)
}

func TestProcess_DefaultsSessionAndLanguage(t *testing.T) {
	e := newEngine(t, setup{})

	res := e.Process(context.Background(), Message{Text: "oi"})
	require.NotEmpty(t, res.SessionSnapshot.SessionID)

	c, ok := e.Session(res.SessionSnapshot.SessionID)
	require.True(t, ok)
	assert.Equal(t, "pt-BR", c.Language)
}

func TestProcess_ConcurrentSessions(t *testing.T) {
	e := newEngine(t, setup{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			for j := 0; j < 10; j++ {
				e.say(id, "Qual o preço do almoço?")
			}
		}(i)
	}
	wg.Wait()

	st := e.Stats()
	assert.Equal(t, 8, st.TotalSessions)
	assert.Equal(t, 80, st.TotalTurns)
}

func TestAdmin(t *testing.T) {
	e := newEngine(t, setup{})
	e.say("s1", "Onde fica o campus norte?")

	require.NoError(t, e.ResetSession("s1"))
	c, ok := e.Session("s1")
	require.True(t, ok)
	assert.Zero(t, c.TurnCount)
	assert.Empty(t, c.Slots)

	assert.ErrorIs(t, e.ResetSession("nope"), session.ErrNotFound)

	assert.True(t, e.EndSession("s1"))
	assert.False(t, e.EndSession("s1"))
	_, ok = e.Session("s1")
	assert.False(t, ok)

	st := e.Stats()
	assert.Equal(t, map[tools.Category]int{
		tools.CategoryDatabaseQuery:        1,
		tools.CategoryCalculation:          1,
		tools.CategoryInformationRetrieval: 1,
		tools.CategoryContextualSearch:     1,
	}, st.ToolsByType)
}

func TestUpdateConfig(t *testing.T) {
	e := newEngine(t, setup{})

	threshold := 0.5
	limit := 10
	cfg, err := e.UpdateConfig(ConfigPatch{ConfidenceThreshold: &threshold, HistoryLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.ConfidenceThreshold)
	assert.Equal(t, 10, e.store.HistoryLimit())
	assert.True(t, cfg.ToolUse, "untouched fields keep their value")

	bad := 1.5
	_, err = e.UpdateConfig(ConfigPatch{ConfidenceThreshold: &bad})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, 0.5, e.Config().ConfidenceThreshold)

	for i := 0; i < 12; i++ {
		e.say("s1", "oi")
	}
	c, _ := e.store.Get("s1")
	assert.Len(t, c.History, 10)
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(Components{})
	assert.Error(t, err)

	pack := restaurant.NewPack(catalog(t))
	_, err = New(Components{
		Recognizer: pack.Recognizer(),
		Extractor:  pack.Extractor(),
		Store:      pack.Store(),
		Dialog:     pack.Dialog(),
	}, WithConfig(Config{}))
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestParamValue(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   entity.Value
		want any
	}{
		{"meal", entity.MealValue{Meal: entity.MealDinner}, "jantar"},
		{"number", entity.NumberValue{N: 3}, 3.0},
		{"weekday", entity.WeekdayValue{Day: time.Monday}, time.Monday},
		{"relative date", entity.DateValue{Relative: true, Offset: 1}, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"campus", entity.CampusValue{ID: "norte"}, "norte"},
		{"text", entity.TextValue{Text: "pix"}, "pix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paramValue(tt.in, now))
		})
	}
}
