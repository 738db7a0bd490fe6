package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
)

func testManager() *Manager {
	return NewManager(Policy{
		Questions: map[string]string{"campus": "Qual campus?"},
		Suggestions: map[intent.Name][]string{
			"LOCALIZACAO": {"Campus Norte", "Campus Saúde"},
		},
		Answers: map[intent.Name]AnswerFunc{
			"LOCALIZACAO": func(c session.Context) string {
				return "O RU fica no campus " + c.Slots["campus"].Value.String() + "."
			},
		},
		DefaultAnswer: func(session.Context) string { return "Não entendi." },
	}, session.Requirements{
		"LOCALIZACAO": {{entity.TypeCampus}},
		"CARDAPIO":    {{entity.TypeDate, entity.TypeWeekday}},
	}, nil)
}

func TestRespond_Clarification(t *testing.T) {
	m := testManager()
	c := session.Context{Slots: map[string]session.Slot{}}

	res := m.Respond("LOCALIZACAO", c, 0.9)
	assert.Equal(t, TypeClarification, res.Type)
	assert.True(t, res.RequiresAction)
	assert.Equal(t, "Qual campus?", res.Text)
	assert.Equal(t, []string{"Campus Norte", "Campus Saúde"}, res.Suggestions)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, []string{"campus"}, res.Metadata.MissingSlots)
	assert.Equal(t, 0.9, res.Confidence)
}

func TestRespond_GenericQuestion(t *testing.T) {
	m := testManager()
	res := m.Respond("CARDAPIO", session.Context{}, 0.8)
	assert.Equal(t, TypeClarification, res.Type)
	assert.Equal(t, "Pode me informar data?", res.Text)
}

func TestRespond_Answer(t *testing.T) {
	m := testManager()
	c := session.Context{Slots: map[string]session.Slot{
		"campus": {Name: "campus", Type: entity.TypeCampus, Value: entity.CampusValue{ID: "norte"}, Filled: true},
	}}

	res := m.Respond("LOCALIZACAO", c, 0.7)
	assert.Equal(t, TypeAnswer, res.Type)
	assert.False(t, res.RequiresAction)
	assert.Equal(t, "O RU fica no campus norte.", res.Text)
	assert.Nil(t, res.Metadata)

	res = m.Respond("SAUDACAO", c, 0.7)
	assert.Equal(t, "Não entendi.", res.Text)
}

func TestRespond_DoesNotMutateSnapshot(t *testing.T) {
	m := testManager()
	c := session.Context{Slots: map[string]session.Slot{}}

	res := m.Respond("LOCALIZACAO", c, 0.9)
	res.Suggestions[0] = "changed"
	assert.Empty(t, c.Slots)
	assert.Equal(t, []string{"Campus Norte", "Campus Saúde"}, m.Suggestions("LOCALIZACAO"))
}
