package orchestrator

import (
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// ResetSession clears a session's slots, history and intent.
func (o *Orchestrator) ResetSession(id string) error {
	if err := o.c.Store.Reset(id); err != nil {
		return err
	}
	o.log.Info().Str("session", id).Msg("session reset")
	return nil
}

// EndSession removes a session. It reports whether the session existed.
func (o *Orchestrator) EndSession(id string) bool {
	ok := o.c.Store.Delete(id)
	if ok {
		o.log.Info().Str("session", id).Msg("session ended")
	}
	return ok
}

// Session returns a snapshot of a live session.
func (o *Orchestrator) Session(id string) (session.Context, bool) {
	return o.c.Store.Get(id)
}

// Stats returns session and tool aggregates.
func (o *Orchestrator) Stats() Stats {
	st := Stats{
		Stats:       o.c.Store.Stats(),
		ToolsByType: map[tools.Category]int{},
	}
	if o.c.Tools != nil {
		st.ToolsByType = o.c.Tools.CountByType()
		st.Tools = o.c.Tools.Stats()
	}
	return st
}

// UpdateConfig applies a partial update. An invalid result leaves the
// configuration unchanged.
func (o *Orchestrator) UpdateConfig(p ConfigPatch) (Config, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	next := p.Apply(o.cfg)
	if err := next.Validate(); err != nil {
		return o.cfg, err
	}
	o.cfg = next
	o.apply(next)

	o.log.Info().
		Str("language", next.DefaultLanguage).
		Float64("threshold", next.ConfidenceThreshold).
		Int("history_limit", next.HistoryLimit).
		Bool("multi_turn", next.MultiTurn).
		Bool("tool_use", next.ToolUse).
		Bool("fallback", next.Fallback).
		Msg("engine config updated")
	return next, nil
}
