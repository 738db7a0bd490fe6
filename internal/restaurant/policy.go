package restaurant

import (
	"fmt"
	"strings"
	"time"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/fallback"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
)

var paymentNames = map[string]string{
	"pix":      "PIX",
	"credito":  "cartão de crédito",
	"debito":   "cartão de débito",
	"dinheiro": "dinheiro",
	"cartao":   "cartão",
	"boleto":   "boleto",
}

// Policy builds the dialog policy. now resolves relative dates such as
// "amanhã" at answer time.
func (c *Catalog) Policy(now func() time.Time) dialog.Policy {
	campusNames := make([]string, len(c.Campuses))
	for i, campus := range c.Campuses {
		campusNames[i] = campus.Name
	}

	return dialog.Policy{
		Questions: map[string]string{
			"campus": fmt.Sprintf("Em qual campus? Temos %s.", joinPT(campusNames)),
			"data":   "Para qual dia você quer ver o cardápio?",
		},
		Suggestions: map[intent.Name][]string{
			IntentGreeting: {"Horários", "Preços", "Cardápio de hoje", "Onde fica o RU?"},
			IntentHelp:     {"Horários", "Preços", "Cardápio de hoje", "Onde fica o RU?"},
			IntentHours:    {"Horário do almoço", "Cardápio de hoje"},
			IntentPrice:    {"Preço do jantar", "Formas de pagamento"},
			IntentMenu:     {"Cardápio de hoje", "Cardápio de amanhã", "Cardápio de segunda-feira"},
			IntentLocation: campusNames,
			IntentPayment:  {"Como comprar tickets?", "Preços"},
			IntentTicket:   {"Formas de pagamento", "Preços"},
			intent.Unknown: {"Horários", "Preços", "Cardápio de hoje"},
		},
		Answers: map[intent.Name]dialog.AnswerFunc{
			IntentGreeting: fixed("Olá! Sou o assistente do Restaurante Universitário. Posso informar horários, preços, cardápio e localização."),
			IntentHelp:     fixed("Posso ajudar com horários de funcionamento, preços das refeições, cardápio do dia, localização dos restaurantes e formas de pagamento."),
			IntentThanks:   fixed("Por nada! Bom apetite."),
			IntentGoodbye:  fixed("Até logo! Bom apetite."),
			IntentTicket:   fixed("Os tickets podem ser comprados no guichê do RU ou pelo aplicativo, com recarga por PIX ou cartão."),
			IntentHours:    c.answerHours,
			IntentPrice:    c.answerPrice,
			IntentMenu:     func(s session.Context) string { return c.answerMenu(s, now()) },
			IntentLocation: c.answerLocation,
			IntentPayment:  c.answerPayment,
		},
		DefaultAnswer: fixed("Desculpe, não entendi. Você pode perguntar sobre horários, preços, cardápio ou localização do RU."),
	}
}

func fixed(text string) dialog.AnswerFunc {
	return func(session.Context) string { return text }
}

func slotMeal(s session.Context) (entity.Meal, bool) {
	slot, ok := s.Slot("refeicao")
	if !ok {
		return "", false
	}
	v, ok := slot.Value.(entity.MealValue)
	return v.Meal, ok
}

func (c *Catalog) answerHours(s session.Context) string {
	if id, ok := slotMeal(s); ok {
		if m, ok := c.Meal(id); ok {
			return fmt.Sprintf("O %s é servido das %s às %s, %s.", m.Name, m.Opens, m.Closes, servedDays(m))
		}
	}
	lines := []string{"Horários do RU:"}
	for _, m := range c.Meals {
		lines = append(lines, fmt.Sprintf("- %s: %s às %s (%s)", capitalize(m.Name), m.Opens, m.Closes, servedDays(m)))
	}
	return strings.Join(lines, "\n")
}

func servedDays(m MealHours) string {
	days := make([]time.Weekday, len(m.Days))
	for i, d := range m.Days {
		days[i] = time.Weekday(d)
	}
	if len(days) == 0 {
		return "sem atendimento"
	}
	first, last := days[0], days[len(days)-1]
	if len(days) > 2 && int(last-first) == len(days)-1 {
		return fmt.Sprintf("de %s a %s", weekdayName(first), weekdayName(last))
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = weekdayName(d)
	}
	return joinPT(names)
}

func (c *Catalog) answerPrice(s session.Context) string {
	if id, ok := slotMeal(s); ok {
		var parts []string
		for _, cat := range c.Categories() {
			if p, ok := c.Price(cat, id); ok {
				parts = append(parts, fmt.Sprintf("%s %s", cat, brl(p)))
			}
		}
		if len(parts) > 0 {
			return fmt.Sprintf("Preço do %s: %s.", c.mealName(id), joinPT(parts))
		}
	}

	var parts []string
	for _, m := range c.Meals {
		if p, ok := c.Price(c.DefaultCategory, m.ID); ok {
			parts = append(parts, fmt.Sprintf("%s %s", m.Name, brl(p)))
		}
	}
	return fmt.Sprintf("Preços para %s: %s.", c.DefaultCategory, joinPT(parts))
}

// menuDay resolves the day the user asked about. A weekday wins over a date.
func menuDay(s session.Context, now time.Time) (time.Weekday, bool) {
	if slot, ok := s.Slot("dia_semana"); ok {
		if v, ok := slot.Value.(entity.WeekdayValue); ok {
			return v.Day, true
		}
	}
	if slot, ok := s.Slot("data"); ok {
		if v, ok := slot.Value.(entity.DateValue); ok {
			return v.Resolve(now).Weekday(), true
		}
	}
	return 0, false
}

func (c *Catalog) answerMenu(s session.Context, now time.Time) string {
	day, ok := menuDay(s, now)
	if !ok {
		return "Qual dia você quer consultar?"
	}
	return fmt.Sprintf("Este é o cardápio do RU %s.", onWeekday(day))
}

func (c *Catalog) answerLocation(s session.Context) string {
	slot, ok := s.Slot("campus")
	if !ok {
		return "Em qual campus você está?"
	}
	campus, ok := c.Campus(slot.Value.String())
	if !ok {
		return "Não conheço esse campus."
	}
	return fmt.Sprintf("O RU do %s fica em %s.", campus.Name, campus.Address)
}

func (c *Catalog) answerPayment(s session.Context) string {
	accepted := make([]string, len(c.PaymentMethods))
	for i, m := range c.PaymentMethods {
		accepted[i] = paymentName(m)
	}
	list := joinPT(accepted)

	if slot, ok := s.Slot("forma_pagamento"); ok {
		method := slot.Value.String()
		for _, m := range c.PaymentMethods {
			if m == method || (method == "cartao" && (m == "credito" || m == "debito")) {
				return fmt.Sprintf("Sim, o RU aceita %s. Formas aceitas: %s.", paymentName(method), list)
			}
		}
		return fmt.Sprintf("O RU não aceita %s. Formas aceitas: %s.", paymentName(method), list)
	}
	return fmt.Sprintf("Formas de pagamento aceitas: %s.", list)
}

func paymentName(m string) string {
	if n, ok := paymentNames[m]; ok {
		return n
	}
	return m
}

// Fallback returns the keyword responder for low-confidence messages.
func Fallback() *fallback.Keywords {
	return fallback.NewKeywords(
		fallback.Reply{
			Text:        `Desculpe, não consegui entender. Tente perguntar, por exemplo: "Qual o cardápio de hoje?"`,
			Suggestions: []string{"Cardápio de hoje", "Horários", "Preços"},
		},
		fallback.Rule{
			Keywords: []string{"comer", "fome", "refeição", "refeições", "comida", "almoço", "jantar"},
			Reply: fallback.Reply{
				Text:        "Parece que você quer saber sobre as refeições. Pergunte pelo cardápio do dia ou pelos horários.",
				Suggestions: []string{"Cardápio de hoje", "Horário do almoço"},
			},
		},
		fallback.Rule{
			Keywords: []string{"dinheiro", "pagar", "real", "reais"},
			Reply: fallback.Reply{
				Text:        "Quer saber quanto custam as refeições ou como pagar?",
				Suggestions: []string{"Preços", "Formas de pagamento"},
			},
		},
		fallback.Rule{
			Keywords: []string{"ru", "restaurante", "bandejão"},
			Reply: fallback.Reply{
				Text:        "Sou o assistente do RU. Pergunte sobre horários, preços, cardápio ou localização.",
				Suggestions: []string{"Horários", "Onde fica o RU?"},
			},
		},
	)
}

// SafeSuggestions are offered with error responses.
func SafeSuggestions() []string {
	return []string{"Horários", "Preços", "Ajuda"}
}
