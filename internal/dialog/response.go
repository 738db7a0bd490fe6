// Package dialog decides, for a recognized intent and a session snapshot,
// whether to ask for missing information or answer.
package dialog

import "github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"

// ResponseType classifies a response.
type ResponseType string

const (
	TypeAnswer        ResponseType = "ANSWER"
	TypeClarification ResponseType = "CLARIFICATION"
	TypeError         ResponseType = "ERROR"
	TypeFallback      ResponseType = "FALLBACK"
)

// Metadata carries optional response details.
type Metadata struct {
	FallbackUsed bool     `json:"fallbackUsed,omitempty"`
	UsedTools    []string `json:"usedTools,omitempty"`
	MissingSlots []string `json:"missingSlots,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Response is what the engine says back.
type Response struct {
	Text           string       `json:"text"`
	Type           ResponseType `json:"type"`
	Intent         intent.Name  `json:"intent,omitempty"`
	Confidence     float64      `json:"confidence"`
	RequiresAction bool         `json:"requiresAction,omitempty"`
	Suggestions    []string     `json:"suggestions,omitempty"`
	Metadata       *Metadata    `json:"metadata,omitempty"`
}

// Meta returns the metadata, allocating it on first use.
func (r *Response) Meta() *Metadata {
	if r.Metadata == nil {
		r.Metadata = &Metadata{}
	}
	return r.Metadata
}
