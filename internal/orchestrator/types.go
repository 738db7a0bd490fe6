package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// Message is one incoming user message.
type Message struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	UserID    string `json:"userId,omitempty"`
	Language  string `json:"language,omitempty"`
}

// SessionSnapshot summarizes the session after a turn.
type SessionSnapshot struct {
	SessionID     string        `json:"sessionId"`
	DialogState   session.State `json:"dialogState"`
	TurnCount     int           `json:"turnCount"`
	CurrentIntent intent.Name   `json:"currentIntent,omitempty"`
	SlotsFilled   int           `json:"slotsFilled"`
	TotalSlots    int           `json:"totalSlots"`
}

func snapshotOf(c session.Context) SessionSnapshot {
	return SessionSnapshot{
		SessionID:     c.SessionID,
		DialogState:   c.State,
		TurnCount:     c.TurnCount,
		CurrentIntent: c.CurrentIntent,
		SlotsFilled:   c.SlotsFilled(),
		TotalSlots:    len(c.Slots),
	}
}

// Metrics holds stage timings in milliseconds.
type Metrics struct {
	TotalMs             float64 `json:"totalTimeMs"`
	IntentRecognitionMs float64 `json:"intentRecognitionTimeMs"`
	EntityExtractionMs  float64 `json:"entityExtractionTimeMs"`
	DialogManagementMs  float64 `json:"dialogManagementTimeMs"`
	ToolExecutionMs     float64 `json:"toolExecutionTimeMs"`
}

func (m Metrics) stages() map[string]float64 {
	return map[string]float64{
		"intent_recognition": m.IntentRecognitionMs,
		"entity_extraction":  m.EntityExtractionMs,
		"dialog_management":  m.DialogManagementMs,
		"tool_execution":     m.ToolExecutionMs,
		"total":              m.TotalMs,
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// ProcessingResult is what Process returns for every message.
type ProcessingResult struct {
	Response        dialog.Response `json:"response"`
	SessionSnapshot SessionSnapshot `json:"sessionSnapshot"`
	Metrics         Metrics         `json:"metrics"`
}

// Stats aggregates the engine.
type Stats struct {
	session.Stats
	ToolsByType map[tools.Category]int `json:"tools_by_type"`
	Tools       tools.Stats            `json:"tool_executions"`
}

// Recognizer classifies a message into an intent.
type Recognizer interface {
	Recognize(text string, ctx *intent.Context) intent.Result
}

// Extractor finds entities in a message.
type Extractor interface {
	Extract(text string) entity.Result
}

// Dialog turns an intent and a session snapshot into a response.
type Dialog interface {
	Respond(name intent.Name, c session.Context, confidence float64) dialog.Response
}

// ToolRunner suggests and executes tools.
type ToolRunner interface {
	Suggest(name intent.Name) []tools.ID
	Get(id tools.ID) (tools.Tool, bool)
	Execute(ctx context.Context, id tools.ID, params tools.Params, ec tools.ExecutionContext) tools.Result
	CountByType() map[tools.Category]int
	Stats() tools.Stats
	SetTimeout(d time.Duration)
}

// PanicError is a recovered panic from a pipeline stage.
type PanicError struct {
	Stage string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Stage, e.Value)
}
