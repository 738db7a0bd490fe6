package session

import (
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/entity"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/intent"
)

// SlotNames maps an entity type to the slot it fills.
type SlotNames map[entity.Type]string

// DefaultSlotNames returns the slot name for every entity type.
func DefaultSlotNames() SlotNames {
	return SlotNames{
		entity.TypeTime:               "horario",
		entity.TypeDate:               "data",
		entity.TypeWeekday:            "dia_semana",
		entity.TypeMeal:               "refeicao",
		entity.TypePrice:              "preco",
		entity.TypeCampus:             "campus",
		entity.TypeFoodType:           "tipo_comida",
		entity.TypeDietaryRestriction: "restricao_alimentar",
		entity.TypePaymentMethod:      "forma_pagamento",
		entity.TypeNumber:             "quantidade",
		entity.TypePeriod:             "periodo",
	}
}

// Requirements lists, per intent, groups of entity types. Each group is
// satisfied when any one of its types has a filled slot.
type Requirements map[intent.Name][][]entity.Type

// Requires reports whether t appears in any requirement group of the intent.
func (r Requirements) Requires(name intent.Name, t entity.Type) bool {
	for _, group := range r[name] {
		for _, gt := range group {
			if gt == t {
				return true
			}
		}
	}
	return false
}

// Missing returns one unfilled slot per unsatisfied group, named after the
// group's first type.
func (r Requirements) Missing(name intent.Name, slots map[string]Slot, names SlotNames) []Slot {
	var missing []Slot
	for _, group := range r[name] {
		if len(group) == 0 || groupFilled(group, slots, names) {
			continue
		}
		missing = append(missing, Slot{
			Name:     names[group[0]],
			Type:     group[0],
			Required: true,
		})
	}
	return missing
}

func groupFilled(group []entity.Type, slots map[string]Slot, names SlotNames) bool {
	for _, t := range group {
		if s, ok := slots[names[t]]; ok && s.Filled {
			return true
		}
	}
	return false
}
