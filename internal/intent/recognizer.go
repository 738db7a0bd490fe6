package intent

import (
	"sync"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/textnorm"
)

const (
	// DefaultContinuationConfidence is reported when the current intent is
	// continued because the message matched nothing.
	DefaultContinuationConfidence = 0.6

	singleIntentBoost  = 0.25
	multiMatchBoost    = 0.1
	closeCompetition   = 0.3
	competitionPenalty = 0.8
)

// Recognizer scores text against registered intent definitions.
type Recognizer struct {
	mu          sync.RWMutex
	defs        []Definition
	continueMin float64
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithContinuationConfidence sets the confidence used for context continuation.
func WithContinuationConfidence(c float64) Option {
	return func(r *Recognizer) {
		r.continueMin = c
	}
}

// NewRecognizer creates a recognizer with the definitions in priority order.
func NewRecognizer(defs []Definition, opts ...Option) *Recognizer {
	r := &Recognizer{
		continueMin: DefaultContinuationConfidence,
	}
	for _, d := range defs {
		r.Register(d)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a definition. If the intent already exists its rules are
// appended to the existing definition, keeping its original priority.
func (r *Recognizer) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.defs {
		if r.defs[i].Intent == def.Intent {
			rules := make([]Rule, 0, len(r.defs[i].Rules)+len(def.Rules))
			rules = append(rules, r.defs[i].Rules...)
			r.defs[i].Rules = append(rules, def.Rules...)
			return
		}
	}
	r.defs = append(r.defs, def)
}

// Intents returns the registered intent names in priority order.
func (r *Recognizer) Intents() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Name, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Intent
	}
	return names
}

// Recognize returns the best-matching intent for text. The result only
// depends on text, ctx and the registered definitions.
func (r *Recognizer) Recognize(text string, ctx *Context) Result {
	r.mu.RLock()
	defs := r.defs
	r.mu.RUnlock()

	folded := textnorm.String(text)

	scores := make([]float64, len(defs))
	counts := make([]int, len(defs))
	var matches []string

	for i, d := range defs {
		for _, rule := range d.Rules {
			if rule.Regex.MatchString(folded) {
				scores[i] += rule.Weight
				counts[i]++
				matches = append(matches, rule.Regex.String())
			}
		}
	}

	best := -1
	var bestScore, totalScore float64
	matched := 0
	for i, score := range scores {
		if score <= 0 {
			continue
		}
		matched++
		totalScore += score
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best < 0 {
		if ctx != nil && ctx.AwaitingInformation && ctx.CurrentIntent != "" {
			return Result{Intent: ctx.CurrentIntent, Confidence: r.continueMin, Path: PathContext}
		}
		return Result{Intent: Unknown, Confidence: 0, Path: PathNone}
	}

	confidence := bestScore / totalScore

	if matched == 1 {
		confidence = min(confidence+singleIntentBoost, 1.0)
	}
	if counts[best] >= 2 {
		confidence = min(confidence+multiMatchBoost, 1.0)
	}
	if matched > 1 {
		second := secondBest(scores, best)
		if second > 0 && (bestScore-second)/bestScore < closeCompetition {
			confidence *= competitionPenalty
		}
	}

	// A lone weak signal cannot produce a confident classification.
	if bestScore < 1.0 {
		confidence *= bestScore
	}

	return Result{
		Intent:     defs[best].Intent,
		Confidence: confidence,
		Path:       PathPattern,
		Matches:    matches,
	}
}

// secondBest returns the second highest score.
func secondBest(scores []float64, best int) float64 {
	var second float64
	for i, score := range scores {
		if i != best && score > second {
			second = score
		}
	}
	return second
}
