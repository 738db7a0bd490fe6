// Package textnorm folds user text for pattern matching (lower case, no
// diacritics) while keeping a rune-for-rune mapping back to the original, so
// match offsets can be reported as character positions in the source text.
package textnorm

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text is a folded view of a source string.
type Text struct {
	source []rune
	folded string

	// byteToRune maps every byte offset of folded (plus the end offset)
	// to the index of the rune that starts at or contains it.
	byteToRune []int
}

// Fold builds the folded view of s. Each source rune folds to exactly one rune.
func Fold(s string) *Text {
	src := []rune(s)
	stripper := newStripper()

	buf := make([]byte, 0, len(s))
	byteToRune := make([]int, 0, len(s)+1)

	var enc [utf8.UTFMax]byte
	for i, r := range src {
		f := foldRune(stripper, r)
		n := utf8.EncodeRune(enc[:], f)
		buf = append(buf, enc[:n]...)
		for j := 0; j < n; j++ {
			byteToRune = append(byteToRune, i)
		}
	}
	byteToRune = append(byteToRune, len(src))

	return &Text{
		source:     src,
		folded:     string(buf),
		byteToRune: byteToRune,
	}
}

// String returns only the folded form of s.
func String(s string) string {
	return Fold(s).Folded()
}

// Folded returns the folded text that patterns run against.
func (t *Text) Folded() string {
	return t.folded
}

// Source returns the original text.
func (t *Text) Source() string {
	return string(t.source)
}

// Len returns the length of the source in runes.
func (t *Text) Len() int {
	return len(t.source)
}

// Span converts a byte range of the folded text into a rune range of the source.
func (t *Text) Span(byteStart, byteEnd int) (start, end int) {
	if byteStart < 0 {
		byteStart = 0
	}
	if byteEnd > len(t.folded) {
		byteEnd = len(t.folded)
	}
	return t.byteToRune[byteStart], t.byteToRune[byteEnd]
}

// Slice returns the source substring for a rune range.
func (t *Text) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(t.source) {
		end = len(t.source)
	}
	if start >= end {
		return ""
	}
	return string(t.source[start:end])
}

func newStripper() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// foldRune lower-cases r and strips its diacritics when the result is still
// a single rune. Runes that decompose into something longer are only lower-cased.
func foldRune(stripper transform.Transformer, r rune) rune {
	if r < utf8.RuneSelf {
		return unicode.ToLower(r)
	}
	out, _, err := transform.String(stripper, string(r))
	if err != nil || utf8.RuneCountInString(out) != 1 {
		return unicode.ToLower(r)
	}
	base, _ := utf8.DecodeRuneInString(out)
	return unicode.ToLower(base)
}
