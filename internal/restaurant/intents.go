package restaurant

import (
	"regexp"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// Intents of the restaurant assistant.
const (
	IntentGreeting intent.Name = "SAUDACAO"
	IntentHours    intent.Name = "HORARIO"
	IntentPrice    intent.Name = "PRECO"
	IntentMenu     intent.Name = "CARDAPIO"
	IntentLocation intent.Name = "LOCALIZACAO"
	IntentPayment  intent.Name = "PAGAMENTO"
	IntentTicket   intent.Name = "TICKET"
	IntentHelp     intent.Name = "AJUDA"
	IntentThanks   intent.Name = "AGRADECIMENTO"
	IntentGoodbye  intent.Name = "DESPEDIDA"
)

func rule(expr string, weight float64) intent.Rule {
	return intent.Rule{Regex: regexp.MustCompile(expr), Weight: weight}
}

// IntentDefinitions returns the intent patterns in priority order. On equal
// scores domain questions win over small talk.
func IntentDefinitions() []intent.Definition {
	return []intent.Definition{
		{Intent: IntentPrice, Rules: []intent.Rule{
			rule(`\b(preco|precos|valor|valores|custa|custam|custo)\b`, 1.0),
			rule(`\bquanto\b`, 0.5),
			rule(`\b(caro|barato|gratis)\b`, 0.5),
		}},
		{Intent: IntentMenu, Rules: []intent.Rule{
			rule(`\b(cardapio|menu)\b`, 1.0),
			rule(`\bo que (tem|vai ter|teremos)\b`, 0.7),
			rule(`\b(prato|pratos|servido|servem|comida)\b`, 0.5),
		}},
		{Intent: IntentHours, Rules: []intent.Rule{
			rule(`\b(horario|horarios|funcionamento)\b`, 1.0),
			rule(`\bque horas\b`, 1.0),
			rule(`\b(abre|fecha|abrem|fecham|aberto|fechado|funciona)\b`, 0.8),
		}},
		{Intent: IntentLocation, Rules: []intent.Rule{
			rule(`\b(onde|localizacao|endereco)\b`, 1.0),
			rule(`\b(fica|chegar|chego|perto)\b`, 0.5),
		}},
		{Intent: IntentTicket, Rules: []intent.Rule{
			rule(`\b(ticket|tickets|ficha|fichas|recarga|recarregar|creditos)\b`, 1.0),
			rule(`\b(comprar|compro)\b`, 0.5),
		}},
		{Intent: IntentPayment, Rules: []intent.Rule{
			rule(`\b(pagamento|pagar|pago|aceita|aceitam|forma de pagar)\b`, 1.0),
			rule(`\b(pix|cartao|dinheiro|credito|debito)\b`, 0.5),
		}},
		{Intent: IntentHelp, Rules: []intent.Rule{
			rule(`\b(ajuda|ajudar|socorro)\b`, 1.0),
			rule(`\bo que voce (faz|sabe)\b`, 1.0),
		}},
		{Intent: IntentGreeting, Rules: []intent.Rule{
			rule(`\b(ola|oi|oie|bom dia|boa tarde|boa noite|e ai|hey)\b`, 1.0),
		}},
		{Intent: IntentThanks, Rules: []intent.Rule{
			rule(`\b(obrigad[oa]|valeu|agradeco|brigad[oa])\b`, 1.0),
		}},
		{Intent: IntentGoodbye, Rules: []intent.Rule{
			rule(`\b(tchau|ate logo|ate mais|adeus|falou)\b`, 1.0),
		}},
	}
}

// Requirements returns the entity groups each intent needs before it can be
// answered.
func Requirements() session.Requirements {
	return session.Requirements{
		IntentLocation: {{entity.TypeCampus}},
		IntentMenu:     {{entity.TypeDate, entity.TypeWeekday}},
	}
}

// ToolSuggestions maps intents to the tools that enrich their answers.
func ToolSuggestions() map[intent.Name][]tools.ID {
	return map[intent.Name][]tools.ID{
		IntentPrice:    {ToolMealCost},
		IntentTicket:   {ToolMealCost},
		IntentMenu:     {ToolMenu},
		IntentHours:    {ToolHours},
		IntentLocation: {ToolCampus},
	}
}

// ParamBindings maps tool parameter names to the slots that can fill them,
// in preference order.
func ParamBindings() map[string][]string {
	return map[string][]string{
		"meal":     {"refeicao"},
		"quantity": {"quantidade"},
		"weekday":  {"dia_semana", "data"},
		"campus":   {"campus"},
	}
}
