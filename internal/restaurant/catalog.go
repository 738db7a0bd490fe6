// Package restaurant is the university restaurant domain pack: catalog data,
// intent patterns, tools, formatters and the dialog policy built on them.
package restaurant

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// ErrInvalidCatalog is returned for catalogs that fail validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Money is a BRL amount read from a quoted YAML scalar.
type Money struct {
	decimal.Decimal
}

// UnmarshalYAML parses "2.00" into an exact decimal.
func (m *Money) UnmarshalYAML(node *yaml.Node) error {
	d, err := decimal.NewFromString(strings.ReplaceAll(node.Value, ",", "."))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q: %w", node.Line, node.Value, err)
	}
	m.Decimal = d
	return nil
}

// Campus is one restaurant location.
type Campus struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Aliases    []string `yaml:"aliases"`
	Address    string   `yaml:"address"`
	Building   string   `yaml:"building"`
	Seats      int      `yaml:"seats"`
	Accessible bool     `yaml:"accessible"`
}

// MealHours is when a meal is served.
type MealHours struct {
	ID     entity.Meal `yaml:"id"`
	Name   string      `yaml:"name"`
	Opens  string      `yaml:"opens"`
	Closes string      `yaml:"closes"`
	Days   []int       `yaml:"days"`
}

// ServedOn reports whether the meal is served on day.
func (m MealHours) ServedOn(day time.Weekday) bool {
	for _, d := range m.Days {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

// Menu is the weekly menu.
type Menu struct {
	Vegetarian []string                            `yaml:"vegetarian"`
	Days       map[string]map[entity.Meal][]string `yaml:"days"`
}

// Catalog is the static restaurant data.
type Catalog struct {
	Name            string                           `yaml:"name"`
	Currency        string                           `yaml:"currency"`
	DefaultCategory string                           `yaml:"default_category"`
	Campuses        []Campus                         `yaml:"campuses"`
	Meals           []MealHours                      `yaml:"meals"`
	Prices          map[string]map[entity.Meal]Money `yaml:"prices"`
	PaymentMethods  []string                         `yaml:"payment_methods"`
	Menu            Menu                             `yaml:"menu"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(embeddedCatalog)
}

// LoadCatalog reads a catalog file. An empty path returns the embedded catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog for consistency.
func (c *Catalog) Validate() error {
	if len(c.Campuses) == 0 {
		return fmt.Errorf("%w: no campuses", ErrInvalidCatalog)
	}
	seen := make(map[string]bool)
	for _, campus := range c.Campuses {
		if campus.ID == "" {
			return fmt.Errorf("%w: campus without id", ErrInvalidCatalog)
		}
		if seen[campus.ID] {
			return fmt.Errorf("%w: duplicate campus %q", ErrInvalidCatalog, campus.ID)
		}
		seen[campus.ID] = true
	}
	for _, m := range c.Meals {
		if _, err := clock(m.Opens); err != nil {
			return fmt.Errorf("%w: meal %s: %v", ErrInvalidCatalog, m.ID, err)
		}
		if _, err := clock(m.Closes); err != nil {
			return fmt.Errorf("%w: meal %s: %v", ErrInvalidCatalog, m.ID, err)
		}
	}
	if c.DefaultCategory == "" {
		return fmt.Errorf("%w: default_category is required", ErrInvalidCatalog)
	}
	if _, ok := c.Prices[c.DefaultCategory]; !ok {
		return fmt.Errorf("%w: no prices for default category %q", ErrInvalidCatalog, c.DefaultCategory)
	}
	for day := range c.Menu.Days {
		if _, ok := weekdayKeys[day]; !ok {
			return fmt.Errorf("%w: unknown menu day %q", ErrInvalidCatalog, day)
		}
	}
	return nil
}

// Campus returns a campus by id.
func (c *Catalog) Campus(id string) (Campus, bool) {
	for _, campus := range c.Campuses {
		if campus.ID == id {
			return campus, true
		}
	}
	return Campus{}, false
}

// Meal returns the hours of a meal.
func (c *Catalog) Meal(id entity.Meal) (MealHours, bool) {
	for _, m := range c.Meals {
		if m.ID == id {
			return m, true
		}
	}
	return MealHours{}, false
}

// Price returns the price of a meal for a category.
func (c *Catalog) Price(category string, meal entity.Meal) (decimal.Decimal, bool) {
	p, ok := c.Prices[category][meal]
	return p.Decimal, ok
}

// Categories returns the price categories, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.Prices))
	for k := range c.Prices {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MenuFor returns the dishes of a meal on a weekday.
func (c *Catalog) MenuFor(day time.Weekday, meal entity.Meal) []string {
	return c.Menu.Days[strings.ToLower(day.String())][meal]
}

// CampusAliases returns every spoken name of every campus, including the
// campus name itself.
func (c *Catalog) CampusAliases() entity.CampusAliases {
	aliases := make(entity.CampusAliases)
	for _, campus := range c.Campuses {
		aliases[campus.Name] = campus.ID
		for _, a := range campus.Aliases {
			aliases[a] = campus.ID
		}
	}
	return aliases
}

var weekdayKeys = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// clock parses "HH:MM" into minutes after midnight.
func clock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
