package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid engine config")

// Config holds the runtime engine settings.
type Config struct {
	DefaultLanguage     string        `json:"defaultLanguage"`
	ConfidenceThreshold float64       `json:"confidenceThreshold"`
	HistoryLimit        int           `json:"maxHistoryLength"`
	MultiTurn           bool          `json:"enableMultiTurn"`
	ToolUse             bool          `json:"enableToolUse"`
	Fallback            bool          `json:"enableFallback"`
	ToolTimeout         time.Duration `json:"toolTimeout"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLanguage:     "pt-BR",
		ConfidenceThreshold: 0.3,
		HistoryLimit:        50,
		MultiTurn:           true,
		ToolUse:             true,
		Fallback:            true,
		ToolTimeout:         2 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DefaultLanguage == "" {
		return fmt.Errorf("%w: default language is empty", ErrInvalidConfig)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %.2f outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("%w: history limit must be positive, got %d", ErrInvalidConfig, c.HistoryLimit)
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("%w: tool timeout must be positive, got %s", ErrInvalidConfig, c.ToolTimeout)
	}
	return nil
}

// ConfigPatch is a partial update. Nil fields are left unchanged.
type ConfigPatch struct {
	DefaultLanguage     *string        `json:"defaultLanguage,omitempty"`
	ConfidenceThreshold *float64       `json:"confidenceThreshold,omitempty"`
	HistoryLimit        *int           `json:"maxHistoryLength,omitempty"`
	MultiTurn           *bool          `json:"enableMultiTurn,omitempty"`
	ToolUse             *bool          `json:"enableToolUse,omitempty"`
	Fallback            *bool          `json:"enableFallback,omitempty"`
	ToolTimeout         *time.Duration `json:"toolTimeout,omitempty"`
}

// Apply returns c with the patch applied.
func (p ConfigPatch) Apply(c Config) Config {
	if p.DefaultLanguage != nil {
		c.DefaultLanguage = *p.DefaultLanguage
	}
	if p.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = *p.ConfidenceThreshold
	}
	if p.HistoryLimit != nil {
		c.HistoryLimit = *p.HistoryLimit
	}
	if p.MultiTurn != nil {
		c.MultiTurn = *p.MultiTurn
	}
	if p.ToolUse != nil {
		c.ToolUse = *p.ToolUse
	}
	if p.Fallback != nil {
		c.Fallback = *p.Fallback
	}
	if p.ToolTimeout != nil {
		c.ToolTimeout = *p.ToolTimeout
	}
	return c
}
