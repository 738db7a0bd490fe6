// Package entity extracts typed fragments of meaning (times, dates, meals,
// prices, campuses, ...) from user text using data-driven pattern tables.
package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the kind of an extracted entity.
type Type string

const (
	TypeTime               Type = "TIME"
	TypeDate               Type = "DATE"
	TypeWeekday            Type = "WEEKDAY"
	TypeMeal               Type = "MEAL"
	TypePrice              Type = "PRICE"
	TypeCampus             Type = "CAMPUS"
	TypeFoodType           Type = "FOOD_TYPE"
	TypeDietaryRestriction Type = "DIETARY_RESTRICTION"
	TypePaymentMethod      Type = "PAYMENT_METHOD"
	TypeNumber             Type = "NUMBER"
	TypePeriod             Type = "PERIOD"
)

// AllTypes returns every entity type in declaration order.
func AllTypes() []Type {
	return []Type{
		TypeTime,
		TypeDate,
		TypeWeekday,
		TypeMeal,
		TypePrice,
		TypeCampus,
		TypeFoodType,
		TypeDietaryRestriction,
		TypePaymentMethod,
		TypeNumber,
		TypePeriod,
	}
}

// String returns the string representation of a Type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if a Type is one of the known entity types.
func (t Type) IsValid() bool {
	for _, valid := range AllTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Entity is one typed match in a message. Entities are values; they are
// produced fresh for every message and never mutated.
type Entity struct {
	Type       Type    `json:"type"`
	RawValue   string  `json:"raw_value"`
	Value      Value   `json:"normalized_value"`
	Confidence float64 `json:"confidence"`

	// StartPos and EndPos are rune offsets into the source text.
	StartPos int `json:"start_pos"`
	EndPos   int `json:"end_pos"`
}

// Result is the output of a single extraction.
type Result struct {
	Entities []Entity `json:"entities"`
	RawText  string   `json:"raw_text"`
}

// OfType returns the entities of the given type, in order.
func (r Result) OfType(t Type) []Entity {
	var out []Entity
	for _, e := range r.Entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════════
// NORMALIZED VALUES
// ═══════════════════════════════════════════════════════════════════════════════

// Value is the normalized, typed value of an entity. The set of
// implementations is closed to this package.
type Value interface {
	fmt.Stringer
	entityValue()
}

// TimeValue is a clock time.
type TimeValue struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

func (v TimeValue) String() string { return fmt.Sprintf("%02d:%02d", v.Hours, v.Minutes) }
func (TimeValue) entityValue()     {}

// DateValue is either an absolute calendar date or a day offset relative to
// the moment the answer is produced ("hoje", "amanhã"). Year is zero when the
// user did not say it.
type DateValue struct {
	Day      int  `json:"day,omitempty"`
	Month    int  `json:"month,omitempty"`
	Year     int  `json:"year,omitempty"`
	Relative bool `json:"relative,omitempty"`
	Offset   int  `json:"offset,omitempty"`
}

func (v DateValue) String() string {
	if v.Relative {
		return fmt.Sprintf("today%+dd", v.Offset)
	}
	if v.Year == 0 {
		return fmt.Sprintf("%02d/%02d", v.Day, v.Month)
	}
	return fmt.Sprintf("%02d/%02d/%04d", v.Day, v.Month, v.Year)
}
func (DateValue) entityValue() {}

// Resolve turns the value into a concrete date in now's location.
func (v DateValue) Resolve(now time.Time) time.Time {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if v.Relative {
		return today.AddDate(0, 0, v.Offset)
	}
	year := v.Year
	if year == 0 {
		year = y
	}
	return time.Date(year, time.Month(v.Month), v.Day, 0, 0, 0, 0, now.Location())
}

// WeekdayValue is a day of the week.
type WeekdayValue struct {
	Day time.Weekday `json:"day"`
}

func (v WeekdayValue) String() string { return v.Day.String() }
func (WeekdayValue) entityValue()     {}

// Meal is a canonical meal identifier.
type Meal string

const (
	MealBreakfast Meal = "cafe_da_manha"
	MealLunch     Meal = "almoco"
	MealDinner    Meal = "jantar"
)

// MealValue is one of the served meals.
type MealValue struct {
	Meal Meal `json:"meal"`
}

func (v MealValue) String() string { return string(v.Meal) }
func (MealValue) entityValue()     {}

// PriceValue is an amount in BRL.
type PriceValue struct {
	Amount decimal.Decimal `json:"amount"`
}

func (v PriceValue) String() string { return "R$ " + v.Amount.StringFixed(2) }
func (PriceValue) entityValue()     {}

// NumberValue is a plain quantity.
type NumberValue struct {
	N float64 `json:"n"`
}

func (v NumberValue) String() string {
	if v.N == float64(int64(v.N)) {
		return fmt.Sprintf("%d", int64(v.N))
	}
	return fmt.Sprintf("%g", v.N)
}
func (NumberValue) entityValue() {}

// Int returns the quantity truncated to an int.
func (v NumberValue) Int() int { return int(v.N) }

// CampusValue is a canonical campus identifier.
type CampusValue struct {
	ID string `json:"id"`
}

func (v CampusValue) String() string { return v.ID }
func (CampusValue) entityValue()     {}

// PeriodValue is a part of the day (manha, tarde, noite).
type PeriodValue struct {
	Period string `json:"period"`
}

func (v PeriodValue) String() string { return v.Period }
func (PeriodValue) entityValue()     {}

// TextValue is a canonical keyword. It is also the value used when a
// pattern has no normalizer.
type TextValue struct {
	Text string `json:"text"`
}

func (v TextValue) String() string { return v.Text }
func (TextValue) entityValue()     {}
