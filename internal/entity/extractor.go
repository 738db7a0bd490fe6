package entity

import (
	"regexp"
	"sync"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/textnorm"
)

// DefaultConfidence is used for patterns that do not set one.
const DefaultConfidence = 0.8

// Match is what a normalizer sees for one regex hit.
type Match struct {
	// Raw is the matched substring of the original text.
	Raw string
	// Folded is the matched substring of the folded text.
	Folded string
	// Groups holds the folded submatches; Groups[0] == Folded.
	// Unmatched optional groups are empty strings.
	Groups []string
}

// Group returns submatch i or "" when it does not exist.
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

// Normalizer converts a match into a typed value. Returning nil discards the match.
type Normalizer func(Match) Value

// Validator accepts or rejects a normalized value.
type Validator func(Value) bool

// Pattern describes how to find one entity type. Rules run against the
// folded text (lower case, no diacritics), so they should be written that way.
type Pattern struct {
	Type       Type
	Rules      []*regexp.Regexp
	Confidence float64
	Normalize  Normalizer
	Validate   Validator

	// Subordinate drops a match that lies inside the span of an entity of
	// another type found in the same text, so "30" in "11:30" is not also
	// a NUMBER.
	Subordinate bool
}

// Extractor runs a table of patterns over text. It is safe for concurrent use;
// Extract never mutates the extractor.
type Extractor struct {
	mu       sync.RWMutex
	patterns []Pattern
}

// NewExtractor creates an extractor with the given patterns, in order.
func NewExtractor(patterns ...Pattern) *Extractor {
	e := &Extractor{}
	for _, p := range patterns {
		e.Register(p)
	}
	return e
}

// Register appends a pattern. Existing patterns are untouched.
func (e *Extractor) Register(p Pattern) {
	if p.Confidence <= 0 {
		p.Confidence = DefaultConfidence
	}
	e.mu.Lock()
	e.patterns = append(e.patterns, p)
	e.mu.Unlock()
}

// Patterns returns the number of registered patterns.
func (e *Extractor) Patterns() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.patterns)
}

// Extract finds every entity in text. Entities are returned in the order
// they were found (pattern order, then rule order, then position) with
// duplicates of the same (type, start, end) removed. No match is a valid,
// empty result.
func (e *Extractor) Extract(text string) Result {
	e.mu.RLock()
	patterns := e.patterns
	e.mu.RUnlock()

	result := Result{RawText: text, Entities: []Entity{}}
	if text == "" {
		return result
	}

	folded := textnorm.Fold(text)
	seen := make(map[spanKey]struct{})
	subordinate := make(map[Type]bool)

	for _, p := range patterns {
		if p.Subordinate {
			subordinate[p.Type] = true
		}
		for _, rule := range p.Rules {
			for _, loc := range rule.FindAllStringSubmatchIndex(folded.Folded(), -1) {
				ent, ok := buildEntity(p, folded, loc)
				if !ok {
					continue
				}
				key := spanKey{ent.Type, ent.StartPos, ent.EndPos}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				result.Entities = append(result.Entities, ent)
			}
		}
	}

	if len(subordinate) > 0 {
		result.Entities = dropContained(result.Entities, subordinate)
	}
	return result
}

// dropContained removes entities of a subordinate type whose span lies
// within an entity of a different, non-subordinate type.
func dropContained(entities []Entity, subordinate map[Type]bool) []Entity {
	kept := entities[:0:0]
	for _, e := range entities {
		if subordinate[e.Type] && contained(e, entities, subordinate) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func contained(e Entity, entities []Entity, subordinate map[Type]bool) bool {
	for _, o := range entities {
		if o.Type == e.Type || subordinate[o.Type] {
			continue
		}
		if o.StartPos <= e.StartPos && e.EndPos <= o.EndPos {
			return true
		}
	}
	return false
}

type spanKey struct {
	t          Type
	start, end int
}

func buildEntity(p Pattern, folded *textnorm.Text, loc []int) (Entity, bool) {
	start, end := folded.Span(loc[0], loc[1])
	m := Match{
		Raw:    folded.Slice(start, end),
		Folded: folded.Folded()[loc[0]:loc[1]],
		Groups: make([]string, len(loc)/2),
	}
	for g := 0; g < len(loc)/2; g++ {
		if loc[2*g] >= 0 {
			m.Groups[g] = folded.Folded()[loc[2*g]:loc[2*g+1]]
		}
	}

	var value Value
	if p.Normalize != nil {
		value = p.Normalize(m)
		if value == nil {
			return Entity{}, false
		}
	} else {
		value = TextValue{Text: m.Raw}
	}

	if p.Validate != nil && !p.Validate(value) {
		return Entity{}, false
	}

	return Entity{
		Type:       p.Type,
		RawValue:   m.Raw,
		Value:      value,
		Confidence: p.Confidence,
		StartPos:   start,
		EndPos:     end,
	}, true
}
