// Package fallback provides the simple keyword responder used when the
// recognized intent is not trustworthy.
package fallback

import (
	"regexp"
	"strings"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/textnorm"
)

// Responder answers without context.
type Responder interface {
	Respond(text string) Reply
}

// Reply is a fallback answer.
type Reply struct {
	Text        string
	Suggestions []string
}

// Rule answers Reply when any keyword occurs as a whole word.
type Rule struct {
	Keywords []string
	Reply    Reply
}

// Keywords is a Responder driven by an ordered rule list. The first matching
// rule wins.
type Keywords struct {
	rules    []compiledRule
	fallback Reply
}

type compiledRule struct {
	re    *regexp.Regexp
	reply Reply
}

// NewKeywords compiles the rules. def is returned when nothing matches.
func NewKeywords(def Reply, rules ...Rule) *Keywords {
	k := &Keywords{fallback: def}
	for _, r := range rules {
		words := make([]string, 0, len(r.Keywords))
		for _, w := range r.Keywords {
			if w = textnorm.String(strings.TrimSpace(w)); w != "" {
				words = append(words, regexp.QuoteMeta(w))
			}
		}
		if len(words) == 0 {
			continue
		}
		k.rules = append(k.rules, compiledRule{
			re:    regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`),
			reply: r.Reply,
		})
	}
	return k
}

// Respond returns the reply of the first matching rule.
func (k *Keywords) Respond(text string) Reply {
	folded := textnorm.String(text)
	for _, r := range k.rules {
		if r.re.MatchString(folded) {
			return clone(r.reply)
		}
	}
	return clone(k.fallback)
}

func clone(r Reply) Reply {
	r.Suggestions = append([]string(nil), r.Suggestions...)
	return r
}
