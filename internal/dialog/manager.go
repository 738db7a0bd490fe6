package dialog

import (
	"fmt"
	"strings"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
)

// AnswerFunc renders the canonical answer of an intent from a snapshot.
type AnswerFunc func(c session.Context) string

// Policy is the static data the manager works from.
type Policy struct {
	// Questions maps a slot name to the question that asks for it.
	Questions map[string]string

	// Suggestions maps an intent to short follow-up suggestions.
	Suggestions map[intent.Name][]string

	// Answers maps an intent to its answer template.
	Answers map[intent.Name]AnswerFunc

	// DefaultAnswer is used for intents without an answer.
	DefaultAnswer AnswerFunc
}

// Manager produces responses. It only reads the snapshot it is given.
type Manager struct {
	policy       Policy
	requirements session.Requirements
	slotNames    session.SlotNames
}

// NewManager creates a manager.
func NewManager(policy Policy, requirements session.Requirements, names session.SlotNames) *Manager {
	if names == nil {
		names = session.DefaultSlotNames()
	}
	return &Manager{
		policy:       policy,
		requirements: requirements,
		slotNames:    names,
	}
}

// Missing returns the names of the required slots the intent still needs.
func (m *Manager) Missing(name intent.Name, c session.Context) []string {
	slots := m.requirements.Missing(name, c.Slots, m.slotNames)
	if len(slots) == 0 {
		return nil
	}
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = s.Name
	}
	return names
}

// Respond returns a clarification while required slots are missing and the
// intent's answer otherwise.
func (m *Manager) Respond(name intent.Name, c session.Context, confidence float64) Response {
	if missing := m.Missing(name, c); len(missing) > 0 {
		return Response{
			Text:           m.question(missing),
			Type:           TypeClarification,
			Intent:         name,
			Confidence:     confidence,
			RequiresAction: true,
			Suggestions:    m.Suggestions(name),
			Metadata:       &Metadata{MissingSlots: missing},
		}
	}

	return Response{
		Text:        m.answer(name, c),
		Type:        TypeAnswer,
		Intent:      name,
		Confidence:  confidence,
		Suggestions: m.Suggestions(name),
	}
}

// Suggestions returns a copy of the intent's suggestions.
func (m *Manager) Suggestions(name intent.Name) []string {
	s := m.policy.Suggestions[name]
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

func (m *Manager) question(missing []string) string {
	questions := make([]string, 0, len(missing))
	for _, slot := range missing {
		if q, ok := m.policy.Questions[slot]; ok {
			questions = append(questions, q)
			continue
		}
		questions = append(questions, fmt.Sprintf("Pode me informar %s?", strings.ReplaceAll(slot, "_", " ")))
	}
	return strings.Join(questions, " ")
}

func (m *Manager) answer(name intent.Name, c session.Context) string {
	if fn, ok := m.policy.Answers[name]; ok && fn != nil {
		return fn(c)
	}
	if m.policy.DefaultAnswer != nil {
		return m.policy.DefaultAnswer(c)
	}
	return ""
}
