package orchestrator

import (
	"time"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/tools"
)

// params fills a tool's parameters from the session's filled slots. The
// first bound slot that is filled wins; unbound parameters are left to the
// registry's defaults.
func (o *Orchestrator) params(tool tools.Tool, snap session.Context, now time.Time) tools.Params {
	p := tools.Params{}
	for _, spec := range tool.Parameters() {
		for _, name := range o.bindings[spec.Name] {
			slot, ok := snap.Slot(name)
			if !ok || !slot.Filled || slot.Value == nil {
				continue
			}
			p[spec.Name] = paramValue(slot.Value, now)
			break
		}
	}
	return p
}

func paramValue(v entity.Value, now time.Time) any {
	switch v := v.(type) {
	case entity.MealValue:
		return string(v.Meal)
	case entity.NumberValue:
		return v.N
	case entity.WeekdayValue:
		return v.Day
	case entity.DateValue:
		return v.Resolve(now)
	case entity.CampusValue:
		return v.ID
	case entity.PriceValue:
		return v.Amount.InexactFloat64()
	default:
		return v.String()
	}
}
