package entity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/textnorm"
)

// CampusAliases maps a spoken alias (any case/accents) to a canonical campus ID.
type CampusAliases map[string]string

// DefaultPatterns returns the built-in Portuguese pattern table. Campus
// recognition is driven by the given aliases; with none, CAMPUS is not extracted.
func DefaultPatterns(campuses CampusAliases) []Pattern {
	patterns := []Pattern{
		TimePattern(),
		DatePattern(),
		WeekdayPattern(),
		MealPattern(),
		PricePattern(),
	}
	if len(campuses) > 0 {
		patterns = append(patterns, CampusPattern(campuses))
	}
	return append(patterns,
		FoodTypePattern(),
		DietaryRestrictionPattern(),
		PaymentMethodPattern(),
		NumberPattern(),
		PeriodPattern(),
	)
}

// TimePattern matches "11h30", "12:00", "18h", "meio-dia".
func TimePattern() Pattern {
	return Pattern{
		Type: TypeTime,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\b([01]?\d|2[0-3])\s?(?:h|:)\s?([0-5]\d)?(?:min)?\b`),
			regexp.MustCompile(`\b(meio[- ]dia|meia[- ]noite)\b`),
		},
		Confidence: 0.9,
		Normalize: func(m Match) Value {
			switch {
			case strings.HasPrefix(m.Folded, "meio"):
				return TimeValue{Hours: 12}
			case strings.HasPrefix(m.Folded, "meia"):
				return TimeValue{Hours: 0}
			}
			h, err := strconv.Atoi(m.Group(1))
			if err != nil {
				return nil
			}
			var min int
			if g := m.Group(2); g != "" {
				min, _ = strconv.Atoi(g)
			}
			return TimeValue{Hours: h, Minutes: min}
		},
		Validate: func(v Value) bool {
			t, ok := v.(TimeValue)
			return ok && t.Hours >= 0 && t.Hours < 24 && t.Minutes >= 0 && t.Minutes < 60
		},
	}
}

var relativeDays = map[string]int{
	"ontem":            -1,
	"hoje":             0,
	"amanha":           1,
	"depois de amanha": 2,
}

// DatePattern matches "15/03", "15/03/2025" and relative days ("hoje", "amanhã").
func DatePattern() Pattern {
	return Pattern{
		Type: TypeDate,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`),
			regexp.MustCompile(`\b(depois de amanha|amanha|hoje|ontem)\b`),
		},
		Confidence: 0.9,
		Normalize: func(m Match) Value {
			if offset, ok := relativeDays[m.Folded]; ok {
				return DateValue{Relative: true, Offset: offset}
			}
			day, err1 := strconv.Atoi(m.Group(1))
			month, err2 := strconv.Atoi(m.Group(2))
			if err1 != nil || err2 != nil {
				return nil
			}
			var year int
			if g := m.Group(3); g != "" {
				year, _ = strconv.Atoi(g)
				if year < 100 {
					year += 2000
				}
			}
			return DateValue{Day: day, Month: month, Year: year}
		},
		Validate: func(v Value) bool {
			d, ok := v.(DateValue)
			if !ok {
				return false
			}
			if d.Relative {
				return true
			}
			if d.Month < 1 || d.Month > 12 || d.Day < 1 {
				return false
			}
			year := d.Year
			if year == 0 {
				year = 2024 // leap year, so 29/02 is accepted without a year
			}
			return d.Day <= daysIn(time.Month(d.Month), year)
		},
	}
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

// WeekdayPattern matches "segunda", "terça-feira", "sábado".
func WeekdayPattern() Pattern {
	return Pattern{
		Type: TypeWeekday,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\b(segunda|terca|quarta|quinta|sexta|sabado|domingo)(?:[- ]feira)?\b`),
		},
		Confidence: 0.9,
		Normalize: func(m Match) Value {
			day, ok := weekdays[m.Group(1)]
			if !ok {
				return nil
			}
			return WeekdayValue{Day: day}
		},
	}
}

var meals = map[string]Meal{
	"cafe da manha": MealBreakfast,
	"desjejum":      MealBreakfast,
	"almoco":        MealLunch,
	"almocar":       MealLunch,
	"jantar":        MealDinner,
	"janta":         MealDinner,
}

// MealPattern matches the three served meals.
func MealPattern() Pattern {
	return Pattern{
		Type: TypeMeal,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\b(cafe da manha|desjejum|almoco|almocar|jantar|janta)\b`),
		},
		Confidence: 0.9,
		Normalize: func(m Match) Value {
			meal, ok := meals[m.Group(1)]
			if !ok {
				return nil
			}
			return MealValue{Meal: meal}
		},
	}
}

// PricePattern matches "R$ 3,50" and "5 reais".
func PricePattern() Pattern {
	return Pattern{
		Type: TypePrice,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\br\$\s*(\d+(?:[.,]\d{1,2})?)`),
			regexp.MustCompile(`\b(\d+(?:,\d{1,2})?)\s*(?:reais|real)\b`),
		},
		Confidence: 0.85,
		Normalize: func(m Match) Value {
			amount, err := decimal.NewFromString(strings.ReplaceAll(m.Group(1), ",", "."))
			if err != nil {
				return nil
			}
			return PriceValue{Amount: amount}
		},
		Validate: func(v Value) bool {
			p, ok := v.(PriceValue)
			return ok && !p.Amount.IsNegative()
		},
	}
}

// CampusPattern builds a CAMPUS pattern from spoken aliases. Longer aliases
// are tried first so "campus saude" wins over "saude".
func CampusPattern(aliases CampusAliases) Pattern {
	folded := make(map[string]string, len(aliases))
	keys := make([]string, 0, len(aliases))
	for alias, id := range aliases {
		f := textnorm.String(strings.TrimSpace(alias))
		if f == "" {
			continue
		}
		if _, dup := folded[f]; !dup {
			keys = append(keys, f)
		}
		folded[f] = id
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}

	known := make(map[string]bool, len(folded))
	for _, id := range folded {
		known[id] = true
	}

	var rules []*regexp.Regexp
	if len(quoted) > 0 {
		rules = append(rules, regexp.MustCompile(`\b(`+strings.Join(quoted, "|")+`)\b`))
	}

	return Pattern{
		Type:       TypeCampus,
		Rules:      rules,
		Confidence: 0.95,
		Normalize: func(m Match) Value {
			id, ok := folded[m.Group(1)]
			if !ok {
				return nil
			}
			return CampusValue{ID: id}
		},
		Validate: func(v Value) bool {
			c, ok := v.(CampusValue)
			return ok && known[c.ID]
		},
	}
}

// keywordPattern builds a pattern whose first group is mapped through canon.
func keywordPattern(t Type, confidence float64, expr string, canon func(string) string) Pattern {
	return Pattern{
		Type:       t,
		Rules:      []*regexp.Regexp{regexp.MustCompile(expr)},
		Confidence: confidence,
		Normalize: func(m Match) Value {
			text := canon(m.Group(1))
			if text == "" {
				return nil
			}
			return TextValue{Text: text}
		},
	}
}

// FoodTypePattern matches dish categories.
func FoodTypePattern() Pattern {
	return keywordPattern(TypeFoodType, 0.8,
		`\b(vegetarian[oa]s?|vegan[oa]s?|carne|frango|peixe|salada|sobremesa|suco|feijoada|proteina)\b`,
		func(s string) string {
			switch {
			case strings.HasPrefix(s, "vegetarian"):
				return "vegetariano"
			case strings.HasPrefix(s, "vegan"):
				return "vegano"
			}
			return s
		})
}

// DietaryRestrictionPattern matches restrictions and allergies.
func DietaryRestrictionPattern() Pattern {
	return keywordPattern(TypeDietaryRestriction, 0.85,
		`\b(sem gluten|celiac[oa]|sem lactose|intolerante a lactose|diabetic[oa]|alergi(?:a|co|ca) a \w+)\b`,
		func(s string) string {
			switch {
			case s == "sem gluten" || strings.HasPrefix(s, "celiac"):
				return "sem_gluten"
			case strings.Contains(s, "lactose"):
				return "sem_lactose"
			case strings.HasPrefix(s, "diabetic"):
				return "diabetico"
			case strings.HasPrefix(s, "alergi"):
				parts := strings.Fields(s)
				return "alergia:" + parts[len(parts)-1]
			}
			return s
		})
}

// PaymentMethodPattern matches payment methods.
func PaymentMethodPattern() Pattern {
	return keywordPattern(TypePaymentMethod, 0.85,
		`\b(pix|cartao de credito|cartao de debito|cartao|credito|debito|dinheiro|especie|boleto)\b`,
		func(s string) string {
			switch {
			case strings.HasSuffix(s, "credito"):
				return "credito"
			case strings.HasSuffix(s, "debito"):
				return "debito"
			case s == "especie":
				return "dinheiro"
			}
			return s
		})
}

var numberWords = map[string]float64{
	"um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
}

// NumberPattern matches digits ("2", "3,5") and number words up to ten.
// Digits that belong to a price, time or date are not numbers on their own.
func NumberPattern() Pattern {
	return Pattern{
		Type:        TypeNumber,
		Subordinate: true,
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`\b\d+(?:,\d+)?\b`),
			regexp.MustCompile(`\b(um|uma|dois|duas|tres|quatro|cinco|seis|sete|oito|nove|dez)\b`),
		},
		Confidence: 0.6,
		Normalize: func(m Match) Value {
			if n, ok := numberWords[m.Folded]; ok {
				return NumberValue{N: n}
			}
			n, err := strconv.ParseFloat(strings.ReplaceAll(m.Folded, ",", "."), 64)
			if err != nil {
				return nil
			}
			return NumberValue{N: n}
		},
	}
}

// PeriodPattern matches parts of the day.
func PeriodPattern() Pattern {
	return Pattern{
		Type:       TypePeriod,
		Rules:      []*regexp.Regexp{regexp.MustCompile(`\b(manha|tarde|noite)\b`)},
		Confidence: 0.7,
		Normalize: func(m Match) Value {
			return PeriodValue{Period: m.Group(1)}
		},
	}
}
