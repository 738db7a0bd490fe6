package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Almoço", "almoco"},
		{"CAFÉ DA MANHÃ", "cafe da manha"},
		{"Qual o preço?", "qual o preco?"},
		{"sábado às 11h30", "sabado as 11h30"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, String(tt.input))
		})
	}
}

func TestText_SpanMapsBackToSource(t *testing.T) {
	src := "Almoço às 11h30 no campus"
	txt := Fold(src)

	idx := strings.Index(txt.Folded(), "11h30")
	start, end := txt.Span(idx, idx+len("11h30"))

	assert.Equal(t, 10, start)
	assert.Equal(t, 15, end)
	assert.Equal(t, "11h30", txt.Slice(start, end))

	idx = strings.Index(txt.Folded(), "almoco")
	start, end = txt.Span(idx, idx+len("almoco"))
	assert.Equal(t, "Almoço", txt.Slice(start, end))
}

func TestText_RuneCountPreserved(t *testing.T) {
	src := "Ação, pão e feijão"
	txt := Fold(src)
	assert.Equal(t, len([]rune(src)), len([]rune(txt.Folded())))
	assert.Equal(t, src, txt.Source())
	assert.Equal(t, len([]rune(src)), txt.Len())
}

func TestText_SliceBounds(t *testing.T) {
	txt := Fold("abc")
	assert.Equal(t, "", txt.Slice(2, 1))
	assert.Equal(t, "abc", txt.Slice(-3, 10))
}
