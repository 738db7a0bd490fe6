package restaurant

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// Tool ids.
const (
	ToolMealCost tools.ID = "calculate_meal_cost"
	ToolMenu     tools.ID = "lookup_menu"
	ToolHours    tools.ID = "opening_hours"
	ToolCampus   tools.ID = "campus_info"
)

const maxQuantity = 50

// MealCost is the output of calculate_meal_cost.
type MealCost struct {
	Meal      entity.Meal
	MealName  string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

func (MealCost) ToolID() tools.ID { return ToolMealCost }

// MealMenu is one meal of a daily menu.
type MealMenu struct {
	Meal   entity.Meal
	Name   string
	Dishes []string
}

// DailyMenu is the output of lookup_menu.
type DailyMenu struct {
	Weekday    time.Weekday
	Meals      []MealMenu
	Vegetarian []string
}

func (DailyMenu) ToolID() tools.ID { return ToolMenu }

// Closed reports whether nothing is served that day.
func (d DailyMenu) Closed() bool { return len(d.Meals) == 0 }

// HoursStatus is the output of opening_hours.
type HoursStatus struct {
	At   time.Time
	Open *MealHours
	// Next is the next meal to open and DaysAhead how many days from At.
	Next      *MealHours
	DaysAhead int
}

func (HoursStatus) ToolID() tools.ID { return ToolHours }

// CampusInfo is the output of campus_info.
type CampusInfo struct {
	Campus Campus
}

func (CampusInfo) ToolID() tools.ID { return ToolCampus }

type baseTool struct {
	id       tools.ID
	name     string
	category tools.Category
	params   []tools.ParameterSpec
	catalog  *Catalog
}

func (t *baseTool) ID() tools.ID                      { return t.id }
func (t *baseTool) Name() string                      { return t.name }
func (t *baseTool) Category() tools.Category          { return t.category }
func (t *baseTool) Parameters() []tools.ParameterSpec { return t.params }

// MealCostTool computes the cost of a number of meals for a price category.
type MealCostTool struct{ baseTool }

// NewMealCostTool creates calculate_meal_cost.
func NewMealCostTool(c *Catalog) *MealCostTool {
	return &MealCostTool{baseTool{
		id:       ToolMealCost,
		name:     "Calculate meal cost",
		category: tools.CategoryCalculation,
		catalog:  c,
		params: []tools.ParameterSpec{
			{Name: "meal", Type: tools.ParamString, Default: string(entity.MealLunch), Description: "cafe_da_manha, almoco or jantar"},
			{Name: "quantity", Type: tools.ParamNumber, Default: 1, Description: "number of meals"},
			{Name: "category", Type: tools.ParamString, Default: c.DefaultCategory, Description: "price category"},
		},
	}}
}

// Execute implements tools.Tool.
func (t *MealCostTool) Execute(_ context.Context, p tools.Params, _ tools.ExecutionContext) (tools.Data, error) {
	meal := entity.Meal(p.String("meal"))
	category := p.String("category")

	qty, ok := p.Int("quantity")
	if !ok || qty < 1 || qty > maxQuantity {
		return nil, fmt.Errorf("quantity must be between 1 and %d", maxQuantity)
	}

	unit, ok := t.catalog.Price(category, meal)
	if !ok {
		return nil, fmt.Errorf("no price for %s in category %s", meal, category)
	}

	return MealCost{
		Meal:      meal,
		MealName:  t.catalog.mealName(meal),
		Category:  category,
		Quantity:  qty,
		UnitPrice: unit,
		Total:     unit.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

// MenuTool looks up the menu of a weekday.
type MenuTool struct{ baseTool }

// NewMenuTool creates lookup_menu.
func NewMenuTool(c *Catalog) *MenuTool {
	return &MenuTool{baseTool{
		id:       ToolMenu,
		name:     "Lookup menu",
		category: tools.CategoryDatabaseQuery,
		catalog:  c,
		params: []tools.ParameterSpec{
			{Name: "weekday", Type: tools.ParamString, Required: true, Description: "weekday or date"},
		},
	}}
}

// Execute implements tools.Tool.
func (t *MenuTool) Execute(_ context.Context, p tools.Params, _ tools.ExecutionContext) (tools.Data, error) {
	var day time.Weekday
	switch v := p["weekday"].(type) {
	case time.Weekday:
		day = v
	case time.Time:
		day = v.Weekday()
	case string:
		d, ok := weekdayKeys[v]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", v)
		}
		day = d
	default:
		return nil, fmt.Errorf("unsupported weekday value %T", v)
	}

	menu := DailyMenu{Weekday: day}
	for _, m := range t.catalog.Meals {
		dishes := t.catalog.MenuFor(day, m.ID)
		if len(dishes) == 0 {
			continue
		}
		menu.Meals = append(menu.Meals, MealMenu{Meal: m.ID, Name: m.Name, Dishes: dishes})
	}
	if !menu.Closed() {
		menu.Vegetarian = t.catalog.Menu.Vegetarian
	}
	return menu, nil
}

// HoursTool reports whether the restaurant is serving and what comes next.
type HoursTool struct{ baseTool }

// NewHoursTool creates opening_hours.
func NewHoursTool(c *Catalog) *HoursTool {
	return &HoursTool{baseTool{
		id:       ToolHours,
		name:     "Opening hours",
		category: tools.CategoryInformationRetrieval,
		catalog:  c,
		params: []tools.ParameterSpec{
			{Name: "meal", Type: tools.ParamString, Description: "restrict to one meal"},
		},
	}}
}

// Execute implements tools.Tool.
func (t *HoursTool) Execute(_ context.Context, p tools.Params, ec tools.ExecutionContext) (tools.Data, error) {
	at := ec.Now
	if at.IsZero() {
		at = time.Now()
	}

	meals := t.catalog.Meals
	if id := entity.Meal(p.String("meal")); id != "" {
		m, ok := t.catalog.Meal(id)
		if !ok {
			return nil, fmt.Errorf("unknown meal %q", id)
		}
		meals = []MealHours{m}
	}

	status := HoursStatus{At: at}
	minute := at.Hour()*60 + at.Minute()

	for i := range meals {
		m := meals[i]
		opens, _ := clock(m.Opens)
		closes, _ := clock(m.Closes)
		if m.ServedOn(at.Weekday()) && minute >= opens && minute < closes {
			status.Open = &m
			break
		}
	}

	for ahead := 0; ahead <= 7 && status.Next == nil; ahead++ {
		day := at.AddDate(0, 0, ahead).Weekday()
		var best *MealHours
		bestOpens := 24 * 60
		for i := range meals {
			m := meals[i]
			opens, _ := clock(m.Opens)
			if !m.ServedOn(day) || (ahead == 0 && opens <= minute) {
				continue
			}
			if opens < bestOpens {
				best, bestOpens = &m, opens
			}
		}
		if best != nil {
			status.Next, status.DaysAhead = best, ahead
		}
	}
	return status, nil
}

// CampusTool returns details about a campus restaurant.
type CampusTool struct{ baseTool }

// NewCampusTool creates campus_info.
func NewCampusTool(c *Catalog) *CampusTool {
	return &CampusTool{baseTool{
		id:       ToolCampus,
		name:     "Campus info",
		category: tools.CategoryContextualSearch,
		catalog:  c,
		params: []tools.ParameterSpec{
			{Name: "campus", Type: tools.ParamString, Required: true, Description: "campus id"},
		},
	}}
}

// Execute implements tools.Tool.
func (t *CampusTool) Execute(_ context.Context, p tools.Params, _ tools.ExecutionContext) (tools.Data, error) {
	id := p.String("campus")
	campus, ok := t.catalog.Campus(id)
	if !ok {
		return nil, fmt.Errorf("unknown campus %q", id)
	}
	return CampusInfo{Campus: campus}, nil
}

// Tools returns every restaurant tool.
func Tools(c *Catalog) []tools.Tool {
	return []tools.Tool{
		NewMealCostTool(c),
		NewMenuTool(c),
		NewHoursTool(c),
		NewCampusTool(c),
	}
}

func (c *Catalog) mealName(id entity.Meal) string {
	if m, ok := c.Meal(id); ok && m.Name != "" {
		return m.Name
	}
	return string(id)
}
