package intent

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(expr string, weight float64) Rule {
	return Rule{Regex: regexp.MustCompile(expr), Weight: weight}
}

func testRecognizer() *Recognizer {
	return NewRecognizer([]Definition{
		{Intent: "SAUDACAO", Rules: []Rule{rule(`\b(ola|oi|bom dia)\b`, 1.0)}},
		{Intent: "PRECO", Rules: []Rule{
			rule(`\b(preco|valor|custa)\b`, 1.0),
			rule(`\bquanto\b`, 0.5),
		}},
		{Intent: "HORARIO", Rules: []Rule{
			rule(`\b(horario|abre|fecha)\b`, 1.0),
			rule(`\bque horas\b`, 1.0),
		}},
	})
}

func TestRecognize(t *testing.T) {
	r := testRecognizer()

	tests := []struct {
		name    string
		text    string
		intent  Name
		minConf float64
		maxConf float64
	}{
		{"single strong match", "Qual o preço?", "PRECO", 1.0, 1.0},
		{"accents and case folded", "OLÁ", "SAUDACAO", 1.0, 1.0},
		{"two rules same intent", "que horas abre?", "HORARIO", 1.0, 1.0},
		{"weak lone signal", "quanto?", "PRECO", 0.3, 0.7},
		{"competing intents", "oi, qual o preço?", "SAUDACAO", 0.3, 0.5},
		{"no match", "xyz", Unknown, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Recognize(tt.text, nil)
			assert.Equal(t, tt.intent, res.Intent)
			assert.GreaterOrEqual(t, res.Confidence, tt.minConf)
			assert.LessOrEqual(t, res.Confidence, tt.maxConf)
		})
	}
}

func TestRecognize_TieFirstRegisteredWins(t *testing.T) {
	r := NewRecognizer([]Definition{
		{Intent: "A", Rules: []Rule{rule(`\bticket\b`, 1.0)}},
		{Intent: "B", Rules: []Rule{rule(`\bticket\b`, 1.0)}},
	})

	res := r.Recognize("ticket", nil)
	assert.Equal(t, Name("A"), res.Intent)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9, "even split with competition penalty")
}

func TestRecognize_Deterministic(t *testing.T) {
	r := testRecognizer()
	ctx := &Context{CurrentIntent: "HORARIO"}

	first := r.Recognize("oi, quanto custa o almoço?", ctx)
	second := r.Recognize("oi, quanto custa o almoço?", ctx)
	assert.Equal(t, first, second)
}

func TestRecognize_ContextContinuation(t *testing.T) {
	r := testRecognizer()

	res := r.Recognize("no campus norte", &Context{CurrentIntent: "HORARIO", AwaitingInformation: true})
	assert.Equal(t, Name("HORARIO"), res.Intent)
	assert.Equal(t, DefaultContinuationConfidence, res.Confidence)
	assert.Equal(t, PathContext, res.Path)

	res = r.Recognize("no campus norte", &Context{CurrentIntent: "HORARIO"})
	assert.Equal(t, Unknown, res.Intent, "no continuation unless information is awaited")

	res = r.Recognize("qual o preço", &Context{CurrentIntent: "HORARIO", AwaitingInformation: true})
	assert.Equal(t, Name("PRECO"), res.Intent, "a match always wins over continuation")
}

func TestRegister_MergesRulesKeepingPriority(t *testing.T) {
	r := testRecognizer()
	r.Register(Definition{Intent: "SAUDACAO", Rules: []Rule{rule(`\be ai\b`, 1.0)}})
	r.Register(Definition{Intent: "AJUDA", Rules: []Rule{rule(`\bajuda\b`, 1.0)}})

	require.Equal(t, []Name{"SAUDACAO", "PRECO", "HORARIO", "AJUDA"}, r.Intents())
	assert.Equal(t, Name("SAUDACAO"), r.Recognize("e aí", nil).Intent)
}
