package restaurant

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// Formatters renders every restaurant tool's output.
func Formatters() tools.Formatters {
	return tools.Formatters{
		ToolMealCost: tools.Typed(formatMealCost),
		ToolMenu:     tools.Typed(formatMenu),
		ToolHours:    tools.Typed(formatHours),
		ToolCampus:   tools.Typed(formatCampus),
	}
}

func formatMealCost(c MealCost) string {
	if c.Quantity == 1 {
		return fmt.Sprintf("Valor do %s (%s): %s", c.MealName, c.Category, brl(c.Total))
	}
	return fmt.Sprintf("Custo: %d x %s (%s) = %s", c.Quantity, c.MealName, c.Category, brl(c.Total))
}

func formatMenu(m DailyMenu) string {
	if m.Closed() {
		return fmt.Sprintf("O RU não serve refeições %s.", onWeekday(m.Weekday))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Cardápio %s:", onWeekday(m.Weekday))
	for _, meal := range m.Meals {
		fmt.Fprintf(&b, "\n- %s: %s", capitalize(meal.Name), joinPT(meal.Dishes))
	}
	if len(m.Vegetarian) > 0 {
		fmt.Fprintf(&b, "\nOpção vegetariana: %s", joinPT(m.Vegetarian))
	}
	return b.String()
}

func formatHours(s HoursStatus) string {
	var parts []string
	if s.Open != nil {
		parts = append(parts, fmt.Sprintf("Agora o RU está servindo o %s, até %s.", s.Open.Name, s.Open.Closes))
	} else {
		parts = append(parts, "Neste momento o RU está fechado.")
	}
	if s.Next != nil {
		when := "hoje"
		switch s.DaysAhead {
		case 0:
		case 1:
			when = "amanhã"
		default:
			when = onWeekday(s.At.AddDate(0, 0, s.DaysAhead).Weekday())
		}
		parts = append(parts, fmt.Sprintf("Próxima refeição: %s %s às %s.", s.Next.Name, when, s.Next.Opens))
	}
	return strings.Join(parts, " ")
}

func formatCampus(c CampusInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prédio: %s.", c.Campus.Building)
	if c.Campus.Seats > 0 {
		fmt.Fprintf(&b, " Capacidade: %d lugares.", c.Campus.Seats)
	}
	if c.Campus.Accessible {
		b.WriteString(" Acessível para cadeirantes.")
	}
	return b.String()
}

// brl formats an amount as "R$ 14,90".
func brl(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.StringFixed(2), ".", ",", 1)
}

var weekdayNames = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

func weekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// onWeekday returns "na sexta-feira" or "no sábado".
func onWeekday(d time.Weekday) string {
	if d == time.Sunday || d == time.Saturday {
		return "no " + weekdayName(d)
	}
	return "na " + weekdayName(d)
}

// joinPT joins items as "a, b e c".
func joinPT(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
