// Package session owns the mutable dialog state: per-session slots,
// bounded turn history, dialog state and lifecycle.
package session

import (
	"errors"
	"time"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
)

// State is the dialog state of a session.
type State string

const (
	StateStart            State = "INICIO"
	StateCollectingInfo   State = "COLETANDO_INFORMACOES"
	StateAwaitingResponse State = "AGUARDANDO_RESPOSTA"
)

var (
	// ErrNotFound is returned for unknown or removed sessions.
	ErrNotFound = errors.New("session not found")
	// ErrNoTurn is returned when a response is attached to a session without turns.
	ErrNoTurn = errors.New("session has no turns")
)

// Turn is one user message and, once produced, the bot response.
type Turn struct {
	ID          int             `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	UserMessage string          `json:"user_message"`
	BotResponse string          `json:"bot_response,omitempty"`
	Intent      intent.Name     `json:"intent,omitempty"`
	Entities    []entity.Entity `json:"entities"`
}

// Slot is a named piece of information the dialog needs.
type Slot struct {
	Name       string       `json:"name"`
	Value      entity.Value `json:"value,omitempty"`
	Type       entity.Type  `json:"type"`
	Required   bool         `json:"required"`
	Filled     bool         `json:"filled"`
	Confidence float64      `json:"confidence"`
}

// Context is a copy of one session's state. Store methods return snapshots,
// so a Context can be read freely without locking.
type Context struct {
	SessionID      string          `json:"session_id"`
	State          State           `json:"dialog_state"`
	Slots          map[string]Slot `json:"slots"`
	History        []Turn          `json:"history"`
	CurrentIntent  intent.Name     `json:"current_intent,omitempty"`
	Language       string          `json:"language"`
	UserID         string          `json:"user_id,omitempty"`
	StartTime      time.Time       `json:"start_time"`
	LastUpdateTime time.Time       `json:"last_update_time"`
	TurnCount      int             `json:"turn_count"`
}

func newContext(id, language, userID string, now time.Time) *Context {
	return &Context{
		SessionID:      id,
		State:          StateStart,
		Slots:          make(map[string]Slot),
		History:        []Turn{},
		Language:       language,
		UserID:         userID,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Slot returns a slot by name.
func (c *Context) Slot(name string) (Slot, bool) {
	s, ok := c.Slots[name]
	return s, ok
}

// SlotsFilled returns the number of filled slots.
func (c *Context) SlotsFilled() int {
	n := 0
	for _, s := range c.Slots {
		if s.Filled {
			n++
		}
	}
	return n
}

// LastTurn returns the most recent turn.
func (c *Context) LastTurn() (Turn, bool) {
	if len(c.History) == 0 {
		return Turn{}, false
	}
	return c.History[len(c.History)-1], true
}

func (c *Context) clone() Context {
	out := *c
	out.Slots = make(map[string]Slot, len(c.Slots))
	for k, v := range c.Slots {
		out.Slots[k] = v
	}
	out.History = make([]Turn, len(c.History))
	for i, t := range c.History {
		t.Entities = append([]entity.Entity(nil), t.Entities...)
		out.History[i] = t
	}
	return out
}

// Stats aggregates the store.
type Stats struct {
	TotalSessions  int     `json:"total_sessions"`
	ActiveSessions int     `json:"active_sessions"`
	TotalTurns     int     `json:"total_turns"`
	AverageTurns   float64 `json:"average_turns_per_session"`
}
