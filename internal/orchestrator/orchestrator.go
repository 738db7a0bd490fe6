// Package orchestrator runs one user message through recognition, extraction,
// session bookkeeping, dialog, tools and fallback, and returns a well-formed
// result for every message.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/fallback"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/transcript"
)

// DefaultErrorText is the reply given when the pipeline fails.
const DefaultErrorText = "Desculpe, ocorreu um erro ao processar sua mensagem. Tente novamente em instantes."

// Components are the collaborators the orchestrator drives. Recognizer,
// Extractor, Store and Dialog are required.
type Components struct {
	Recognizer Recognizer
	Extractor  Extractor
	Store      *session.Store
	Dialog     Dialog
	Tools      ToolRunner
	Formatters tools.Formatters
	Fallback   fallback.Responder
}

// Publisher receives pipeline events.
type Publisher interface {
	Publish(e bus.Event) error
}

// Recorder receives processed turns.
type Recorder interface {
	Record(r transcript.Record) bool
}

// Orchestrator coordinates the pipeline. It is safe for concurrent use.
type Orchestrator struct {
	c Components

	mu  sync.RWMutex
	cfg Config

	bindings        map[string][]string
	safeSuggestions []string
	errorText       string

	events   Publisher
	recorder Recorder
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.cfg = cfg
	}
}

// WithBus publishes pipeline events to p.
func WithBus(p Publisher) Option {
	return func(o *Orchestrator) {
		o.events = p
	}
}

// WithRecorder sends every processed turn to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// WithClock replaces time.Now for tool execution and relative dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithParamBindings maps tool parameter names to the slots that can fill
// them, in preference order.
func WithParamBindings(b map[string][]string) Option {
	return func(o *Orchestrator) {
		o.bindings = b
	}
}

// WithSafeSuggestions sets the suggestions offered with error responses.
func WithSafeSuggestions(s []string) Option {
	return func(o *Orchestrator) {
		o.safeSuggestions = s
	}
}

// WithErrorText sets the reply given when the pipeline fails.
func WithErrorText(text string) Option {
	return func(o *Orchestrator) {
		o.errorText = text
	}
}

// New creates an orchestrator. The store's history limit and the tool
// timeout are aligned with the configuration.
func New(c Components, opts ...Option) (*Orchestrator, error) {
	switch {
	case c.Recognizer == nil:
		return nil, errors.New("orchestrator: recognizer is required")
	case c.Extractor == nil:
		return nil, errors.New("orchestrator: extractor is required")
	case c.Store == nil:
		return nil, errors.New("orchestrator: session store is required")
	case c.Dialog == nil:
		return nil, errors.New("orchestrator: dialog manager is required")
	}

	o := &Orchestrator{
		c:         c,
		cfg:       DefaultConfig(),
		bindings:  map[string][]string{},
		errorText: DefaultErrorText,
		now:       time.Now,
		log:       log.With().Str("component", "orchestrator").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	o.apply(o.cfg)
	return o, nil
}

func (o *Orchestrator) apply(cfg Config) {
	o.c.Store.SetHistoryLimit(cfg.HistoryLimit)
	if o.c.Tools != nil {
		o.c.Tools.SetTimeout(cfg.ToolTimeout)
	}
}

// Config returns the current configuration.
func (o *Orchestrator) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// turn is the working state of one Process call.
type turn struct {
	msg      Message
	cfg      Config
	start    time.Time
	now      time.Time
	metrics  Metrics
	result   intent.Result
	updated  bool
	used     []string
	fallback bool
}

// Process handles one message. It never fails: pipeline errors and panics
// become an ERROR response with zero confidence.
func (o *Orchestrator) Process(ctx context.Context, msg Message) ProcessingResult {
	t := &turn{
		msg:   msg,
		cfg:   o.Config(),
		start: time.Now(),
		now:   o.now(),
	}
	if t.msg.SessionID == "" {
		t.msg.SessionID = uuid.NewString()
	}
	if t.msg.Language == "" {
		t.msg.Language = t.cfg.DefaultLanguage
	}

	ev := bus.NewEvent(bus.EventMessageIn)
	ev.SessionID = t.msg.SessionID
	ev.Content = t.msg.Text
	o.publish(ev)

	res, err := o.run(ctx, t)
	if err != nil {
		res = o.failure(t, err)
	}
	o.record(t, res)
	return res
}

func (o *Orchestrator) run(ctx context.Context, t *turn) (res ProcessingResult, err error) {
	defer recoverStage("pipeline", &err)

	snap := o.c.Store.GetOrCreate(t.msg.SessionID, t.msg.Language, t.msg.UserID)

	ents, err := o.understand(t, snap)
	if err != nil {
		return res, err
	}

	dialogStart := time.Now()
	snap, err = o.c.Store.Update(t.msg.SessionID, session.Update{
		UserMessage: t.msg.Text,
		Intent:      t.result.Intent,
		Entities:    ents.Entities,
	})
	if err != nil {
		return res, fmt.Errorf("update session: %w", err)
	}
	t.updated = true

	resp := o.c.Dialog.Respond(t.result.Intent, snap, t.result.Confidence)
	t.fallback = t.cfg.Fallback && o.c.Fallback != nil && t.result.Confidence < t.cfg.ConfidenceThreshold

	if resp.Type == dialog.TypeAnswer && t.cfg.ToolUse && !t.fallback && o.c.Tools != nil {
		toolStart := time.Now()
		results := o.runTools(ctx, t, snap)
		t.metrics.ToolExecutionMs = ms(time.Since(toolStart))
		if len(results) > 0 {
			resp.Text = o.c.Formatters.Merge(resp.Text, results)
			if len(t.used) > 0 {
				resp.Meta().UsedTools = t.used
			}
		}
	}

	state := session.StateAwaitingResponse
	if resp.Type == dialog.TypeClarification {
		state = session.StateCollectingInfo
	}
	if err := o.c.Store.SetState(t.msg.SessionID, state); err != nil {
		return res, fmt.Errorf("set dialog state: %w", err)
	}

	if t.fallback {
		o.applyFallback(t, &resp)
	}

	snap, err = o.c.Store.AttachResponse(t.msg.SessionID, resp.Text)
	if err != nil {
		return res, fmt.Errorf("attach response: %w", err)
	}
	t.metrics.DialogManagementMs = ms(time.Since(dialogStart))
	t.metrics.TotalMs = ms(time.Since(t.start))

	o.log.Debug().
		Str("session", t.msg.SessionID).
		Str("intent", string(t.result.Intent)).
		Float64("confidence", t.result.Confidence).
		Str("type", string(resp.Type)).
		Float64("intent_ms", t.metrics.IntentRecognitionMs).
		Float64("entity_ms", t.metrics.EntityExtractionMs).
		Float64("dialog_ms", t.metrics.DialogManagementMs).
		Float64("total_ms", t.metrics.TotalMs).
		Msg("message processed")

	out := bus.NewEvent(bus.EventMessageOut)
	out.SessionID = t.msg.SessionID
	out.Intent = string(resp.Intent)
	out.ResponseType = string(resp.Type)
	out.Confidence = resp.Confidence
	out.Stages = t.metrics.stages()
	o.publish(out)

	return ProcessingResult{
		Response:        resp,
		SessionSnapshot: snapshotOf(snap),
		Metrics:         t.metrics,
	}, nil
}

// understand runs intent recognition and entity extraction concurrently.
func (o *Orchestrator) understand(t *turn, snap session.Context) (entity.Result, error) {
	ictx := &intent.Context{
		CurrentIntent:       snap.CurrentIntent,
		AwaitingInformation: t.cfg.MultiTurn && snap.State == session.StateCollectingInfo,
	}

	var (
		g    errgroup.Group
		ents entity.Result
	)
	g.Go(func() (err error) {
		defer recoverStage("intent recognition", &err)
		start := time.Now()
		t.result = o.c.Recognizer.Recognize(t.msg.Text, ictx)
		t.metrics.IntentRecognitionMs = ms(time.Since(start))
		return nil
	})
	g.Go(func() (err error) {
		defer recoverStage("entity extraction", &err)
		start := time.Now()
		ents = o.c.Extractor.Extract(t.msg.Text)
		t.metrics.EntityExtractionMs = ms(time.Since(start))
		return nil
	})
	if err := g.Wait(); err != nil {
		return entity.Result{}, err
	}
	return ents, nil
}

// runTools executes the suggested tools in parallel. Results keep the
// suggestion order so merged sections are stable.
func (o *Orchestrator) runTools(ctx context.Context, t *turn, snap session.Context) []tools.Result {
	ids := o.c.Tools.Suggest(t.result.Intent)
	if len(ids) == 0 {
		return nil
	}

	ec := tools.ExecutionContext{
		SessionID: t.msg.SessionID,
		UserID:    t.msg.UserID,
		Intent:    string(t.result.Intent),
		Language:  t.msg.Language,
		Now:       t.now,
	}

	results := make([]tools.Result, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			var params tools.Params
			if tool, ok := o.c.Tools.Get(id); ok {
				params = o.params(tool, snap, t.now)
			}
			results[i] = o.c.Tools.Execute(ctx, id, params, ec)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		ev := bus.NewEvent(bus.EventToolExecuted)
		ev.SessionID = t.msg.SessionID
		ev.Tool = string(res.Tool)
		ev.Success = res.Success
		ev.DurationMs = res.Duration.Milliseconds()
		ev.Error = res.Error
		o.publish(ev)

		if res.Success {
			t.used = append(t.used, string(res.Tool))
		}
	}
	return results
}

func (o *Orchestrator) applyFallback(t *turn, resp *dialog.Response) {
	reply := o.c.Fallback.Respond(t.msg.Text)
	resp.Text = reply.Text
	resp.Type = dialog.TypeFallback
	if len(reply.Suggestions) > 0 {
		resp.Suggestions = reply.Suggestions
	}
	resp.Meta().FallbackUsed = true

	ev := bus.NewEvent(bus.EventFallbackUsed)
	ev.SessionID = t.msg.SessionID
	ev.Intent = string(t.result.Intent)
	ev.Confidence = t.result.Confidence
	o.publish(ev)
}

// failure builds the ERROR result and logs the original message.
func (o *Orchestrator) failure(t *turn, err error) ProcessingResult {
	l := o.log.Error().
		Err(err).
		Str("session", t.msg.SessionID).
		Str("message", t.msg.Text)
	var pe *PanicError
	if errors.As(err, &pe) {
		l = l.Bytes("stack", pe.Stack)
	}
	l.Msg("message processing failed")

	resp := dialog.Response{
		Text:        o.errorText,
		Type:        dialog.TypeError,
		Confidence:  0,
		Suggestions: append([]string(nil), o.safeSuggestions...),
		Metadata:    &dialog.Metadata{Error: err.Error()},
	}

	var snap SessionSnapshot
	if t.updated {
		if c, aerr := o.c.Store.AttachResponse(t.msg.SessionID, resp.Text); aerr == nil {
			snap = snapshotOf(c)
		}
	}
	if snap.SessionID == "" {
		if c, ok := o.c.Store.Get(t.msg.SessionID); ok {
			snap = snapshotOf(c)
		} else {
			snap = SessionSnapshot{SessionID: t.msg.SessionID, DialogState: session.StateStart}
		}
	}

	t.metrics.TotalMs = ms(time.Since(t.start))

	ev := bus.NewEvent(bus.EventPipelineError)
	ev.SessionID = t.msg.SessionID
	ev.ResponseType = string(dialog.TypeError)
	ev.Error = err.Error()
	ev.Content = t.msg.Text
	o.publish(ev)

	return ProcessingResult{Response: resp, SessionSnapshot: snap, Metrics: t.metrics}
}

func (o *Orchestrator) publish(e bus.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(e); err != nil && !errors.Is(err, bus.ErrClosed) {
		o.log.Warn().Err(err).Str("event", string(e.Type)).Msg("failed to publish event")
	}
}

func (o *Orchestrator) record(t *turn, res ProcessingResult) {
	if o.recorder == nil {
		return
	}
	r := transcript.Record{
		SessionID:    t.msg.SessionID,
		TurnID:       res.SessionSnapshot.TurnCount,
		Timestamp:    t.now,
		UserMessage:  t.msg.Text,
		BotResponse:  res.Response.Text,
		Intent:       string(res.Response.Intent),
		ResponseType: string(res.Response.Type),
		Confidence:   res.Response.Confidence,
		TotalMs:      res.Metrics.TotalMs,
	}
	if m := res.Response.Metadata; m != nil {
		r.FallbackUsed = m.FallbackUsed
		r.Tools = m.UsedTools
		r.Error = m.Error
	}
	o.recorder.Record(r)
}

func recoverStage(stage string, err *error) {
	if rec := recover(); rec != nil {
		*err = &PanicError{Stage: stage, Value: rec, Stack: debug.Stack()}
	}
}
