// Package tools provides the pluggable tool layer the dialog engine uses to
// enrich answers: a registry with parameter validation, per-tool timeouts and
// failure isolation, plus tool-id keyed formatters for tool output.
package tools

import (
	"context"
	"errors"
	"time"
)

// ID identifies a registered tool.
type ID string

// Category groups tools by what they do.
type Category string

const (
	CategoryDatabaseQuery        Category = "DATABASE_QUERY"
	CategoryCalculation          Category = "CALCULATION"
	CategoryInformationRetrieval Category = "INFORMATION_RETRIEVAL"
	CategoryContextualSearch     Category = "CONTEXTUAL_SEARCH"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryDatabaseQuery,
		CategoryCalculation,
		CategoryInformationRetrieval,
		CategoryContextualSearch,
	}
}

// ParamType describes the expected type of a parameter value.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamBool   ParamType = "bool"
)

// ParameterSpec declares one tool parameter.
type ParameterSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Params holds parameter values by name.
type Params map[string]any

// String returns the named parameter as a string, or "".
func (p Params) String(name string) string {
	s, _ := p[name].(string)
	return s
}

// Int returns the named parameter as an int. Numeric values of any common
// Go type are accepted.
func (p Params) Int(name string) (int, bool) {
	switch v := p[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	}
	return 0, false
}

// ExecutionContext is what a tool may know about the request it serves.
type ExecutionContext struct {
	SessionID string
	UserID    string
	Intent    string
	Language  string
	Now       time.Time
}

// Data is the output of a successful tool run. The engine never inspects it;
// formatters registered under ToolID render it.
type Data interface {
	ToolID() ID
}

// Tool is a named, stateless operation. Everything a tool needs comes from
// its params and execution context.
type Tool interface {
	// ID returns the unique tool identifier.
	ID() ID

	// Name returns a human-readable name.
	Name() string

	// Category returns the tool category.
	Category() Category

	// Parameters returns the parameter spec.
	Parameters() []ParameterSpec

	// Execute runs the tool. Params have already been validated and
	// defaults applied.
	Execute(ctx context.Context, params Params, ec ExecutionContext) (Data, error)
}

// Result is the outcome of a registry execution. Error is set iff !Success.
type Result struct {
	Tool     ID            `json:"tool"`
	Success  bool          `json:"success"`
	Data     Data          `json:"data,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

var (
	// ErrUnknownTool is returned for an unregistered tool id.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrMissingParams is returned when required parameters are absent.
	ErrMissingParams = errors.New("missing required parameters")
	// ErrTimeout is returned when a tool exceeds its deadline.
	ErrTimeout = errors.New("tool timed out")
)
