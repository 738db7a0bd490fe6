package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
)

const (
	// DefaultTimeout is how long a session may stay idle.
	DefaultTimeout = 30 * time.Minute
	// DefaultHistoryLimit is the number of turns kept per session.
	DefaultHistoryLimit = 50
)

// Store is the in-memory session table. Operations on one session are
// serialized by that session's lock; different sessions never wait on
// each other beyond a table lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	timeout      time.Duration
	historyLimit int
	slotNames    SlotNames
	requirements Requirements
	now          func() time.Time
	log          zerolog.Logger
}

type entry struct {
	mu      sync.Mutex
	ctx     *Context
	removed bool
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the idle timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHistoryLimit sets how many turns are kept.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRequirements sets the intent to required entity table.
func WithRequirements(r Requirements) Option {
	return func(s *Store) {
		s.requirements = r
	}
}

// WithSlotNames overrides the entity type to slot name mapping.
func WithSlotNames(names SlotNames) Option {
	return func(s *Store) {
		s.slotNames = names
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[string]*entry),
		timeout:      DefaultTimeout,
		historyLimit: DefaultHistoryLimit,
		slotNames:    DefaultSlotNames(),
		requirements: Requirements{},
		now:          time.Now,
		log:          log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the idle timeout.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// SlotName returns the slot filled by an entity type.
func (s *Store) SlotName(t entity.Type) string {
	return s.slotNames[t]
}

// Requirements returns the required entity table.
func (s *Store) Requirements() Requirements {
	return s.requirements
}

// SetHistoryLimit changes the history cap. Longer histories are trimmed on
// their next update.
func (s *Store) SetHistoryLimit(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.historyLimit = n
	s.mu.Unlock()
}

// HistoryLimit returns the history cap.
func (s *Store) HistoryLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyLimit
}

func (s *Store) expired(c *Context, now time.Time) bool {
	return now.Sub(c.LastUpdateTime) > s.timeout
}

// lockedEntry returns the locked entry for id, inserting one if create is
// set. The caller must unlock it.
func (s *Store) lockedEntry(id string, create bool) (*entry, bool) {
	for {
		s.mu.RLock()
		e, ok := s.sessions[id]
		s.mu.RUnlock()

		if !ok {
			if !create {
				return nil, false
			}
			s.mu.Lock()
			if e, ok = s.sessions[id]; !ok {
				e = &entry{}
				s.sessions[id] = e
			}
			s.mu.Unlock()
		}

		e.mu.Lock()
		if e.removed {
			// Swept or deleted between lookup and lock.
			e.mu.Unlock()
			continue
		}
		if e.ctx == nil && !create {
			e.mu.Unlock()
			return nil, false
		}
		return e, true
	}
}

// with runs fn on an existing session under its lock.
func (s *Store) with(id string, fn func(c *Context) error) error {
	e, ok := s.lockedEntry(id, false)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	defer e.mu.Unlock()
	return fn(e.ctx)
}

// GetOrCreate returns the session, creating it when it does not exist or
// replacing it when it has been idle past the timeout.
func (s *Store) GetOrCreate(id, language, userID string) Context {
	e, _ := s.lockedEntry(id, true)
	defer e.mu.Unlock()

	now := s.now()
	switch {
	case e.ctx == nil:
		e.ctx = newContext(id, language, userID, now)
		s.log.Debug().Str("session", id).Msg("session created")
	case s.expired(e.ctx, now):
		s.log.Debug().Str("session", id).Dur("idle", now.Sub(e.ctx.LastUpdateTime)).Msg("session expired, replaced")
		e.ctx = newContext(id, language, userID, now)
	case userID != "" && e.ctx.UserID == "":
		e.ctx.UserID = userID
	}
	return e.ctx.clone()
}

// Get returns a snapshot of an existing session.
func (s *Store) Get(id string) (Context, bool) {
	var snap Context
	err := s.with(id, func(c *Context) error {
		snap = c.clone()
		return nil
	})
	return snap, err == nil
}

// Update describes one user turn.
type Update struct {
	UserMessage string
	Intent      intent.Name
	Entities    []entity.Entity
	BotResponse string
}

// Update appends a turn, refreshes the session clock, sets the current intent
// and folds entities into slots. A later entity for a slot replaces the
// earlier value.
func (s *Store) Update(id string, u Update) (Context, error) {
	limit := s.HistoryLimit()

	var snap Context
	err := s.with(id, func(c *Context) error {
		now := s.touch(c)

		c.TurnCount++
		c.History = append(c.History, Turn{
			ID:          c.TurnCount,
			Timestamp:   now,
			UserMessage: u.UserMessage,
			BotResponse: u.BotResponse,
			Intent:      u.Intent,
			Entities:    append([]entity.Entity{}, u.Entities...),
		})
		if over := len(c.History) - limit; over > 0 {
			c.History = append([]Turn(nil), c.History[over:]...)
		}

		// An unrecognized message keeps the intent the session is working on.
		if u.Intent != "" && u.Intent != intent.Unknown && u.Intent != c.CurrentIntent {
			c.CurrentIntent = u.Intent
			for name, slot := range c.Slots {
				slot.Required = s.requirements.Requires(c.CurrentIntent, slot.Type)
				c.Slots[name] = slot
			}
		}

		for _, ent := range u.Entities {
			name := s.slotNames[ent.Type]
			if name == "" {
				continue
			}
			c.Slots[name] = Slot{
				Name:       name,
				Value:      ent.Value,
				Type:       ent.Type,
				Required:   s.requirements.Requires(c.CurrentIntent, ent.Type),
				Filled:     true,
				Confidence: ent.Confidence,
			}
		}

		snap = c.clone()
		return nil
	})
	return snap, err
}

// AttachResponse records the bot response on the latest turn.
func (s *Store) AttachResponse(id, response string) (Context, error) {
	var snap Context
	err := s.with(id, func(c *Context) error {
		if len(c.History) == 0 {
			return fmt.Errorf("%w: %s", ErrNoTurn, id)
		}
		s.touch(c)
		c.History[len(c.History)-1].BotResponse = response
		snap = c.clone()
		return nil
	})
	return snap, err
}

// touch advances LastUpdateTime, never backwards.
func (s *Store) touch(c *Context) time.Time {
	now := s.now()
	if now.After(c.LastUpdateTime) {
		c.LastUpdateTime = now
	}
	return now
}

// SetSlot sets a slot directly. Name must be set; Required is derived from
// the current intent and Filled is forced to true.
func (s *Store) SetSlot(id string, slot Slot) error {
	if slot.Name == "" {
		return fmt.Errorf("set slot: empty name")
	}
	return s.with(id, func(c *Context) error {
		slot.Filled = true
		slot.Required = s.requirements.Requires(c.CurrentIntent, slot.Type)
		c.Slots[slot.Name] = slot
		s.touch(c)
		return nil
	})
}

// GetSlot returns a slot by name.
func (s *Store) GetSlot(id, name string) (Slot, bool) {
	var (
		slot Slot
		ok   bool
	)
	_ = s.with(id, func(c *Context) error {
		slot, ok = c.Slots[name]
		return nil
	})
	return slot, ok
}

// ClearSlots removes every slot.
func (s *Store) ClearSlots(id string) error {
	return s.with(id, func(c *Context) error {
		c.Slots = make(map[string]Slot)
		return nil
	})
}

// MissingRequiredSlots returns the required slots the current intent still
// needs.
func (s *Store) MissingRequiredSlots(id string) ([]Slot, error) {
	var missing []Slot
	err := s.with(id, func(c *Context) error {
		missing = s.requirements.Missing(c.CurrentIntent, c.Slots, s.slotNames)
		return nil
	})
	return missing, err
}

// SetState sets the dialog state.
func (s *Store) SetState(id string, state State) error {
	return s.with(id, func(c *Context) error {
		c.State = state
		return nil
	})
}

// Reset clears the session but keeps its id, language and user.
func (s *Store) Reset(id string) error {
	return s.with(id, func(c *Context) error {
		*c = *newContext(c.SessionID, c.Language, c.UserID, s.now())
		return nil
	})
}

// Delete ends a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return true
}

// SweepExpired removes every session idle past the timeout and returns how
// many were removed. The table lock is held for one expiry check at a time,
// and sessions busy in another operation are skipped.
func (s *Store) SweepExpired() int {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		if s.sweepOne(id) {
			removed++
		}
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("expired sessions swept")
	}
	return removed
}

func (s *Store) sweepOne(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok || !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	if e.ctx == nil || !s.expired(e.ctx, s.now()) {
		return false
	}
	e.removed = true
	delete(s.sessions, id)
	return true
}

// Len returns the number of sessions in the table, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats aggregates the store.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	now := s.now()
	var st Stats
	for _, e := range entries {
		e.mu.Lock()
		if e.ctx != nil && !e.removed {
			st.TotalSessions++
			st.TotalTurns += e.ctx.TurnCount
			if !s.expired(e.ctx, now) {
				st.ActiveSessions++
			}
		}
		e.mu.Unlock()
	}
	if st.TotalSessions > 0 {
		st.AverageTurns = float64(st.TotalTurns) / float64(st.TotalSessions)
	}
	return st
}
