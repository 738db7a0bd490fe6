// Package intent implements keyword/pattern scoring intent recognition.
// It is a best-effort classifier: callers decide what to do with low
// confidence results.
package intent

import "regexp"

// Name identifies an intent.
type Name string

// Unknown is returned when no pattern matches and the context offers no
// intent to continue.
const Unknown Name = "DESCONHECIDO"

// String returns the string representation of a Name.
func (n Name) String() string {
	return string(n)
}

// Path indicates how the intent was decided.
type Path string

const (
	// PathPattern means at least one pattern matched.
	PathPattern Path = "pattern"
	// PathContext means nothing matched and the dialog's current intent was continued.
	PathContext Path = "context"
	// PathNone means nothing matched.
	PathNone Path = "none"
)

// Rule is one weighted pattern. Rules run on folded text (lower case,
// no diacritics).
type Rule struct {
	Regex  *regexp.Regexp
	Weight float64 // Higher weight = stronger signal
}

// Definition is the ordered set of rules for one intent. Registration order
// is the tie-break priority: on equal scores the earlier definition wins.
type Definition struct {
	Intent Name
	Rules  []Rule
}

// Context carries the dialog state the recognizer may use.
type Context struct {
	// CurrentIntent is the intent the dialog is working on, if any.
	CurrentIntent Name

	// AwaitingInformation is true while the dialog is collecting missing slots.
	AwaitingInformation bool
}

// Result is the outcome of a recognition.
type Result struct {
	Intent     Name     `json:"intent"`
	Confidence float64  `json:"confidence"`
	Path       Path     `json:"path"`
	Matches    []string `json:"matches,omitempty"`
}
