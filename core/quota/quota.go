// Package quota - Included quota resolution
// Quotas are quantities bundled into an entity's base fee. This package turns them
// into formula bindings and derives the unit range a caller may offer.
package quota

import (
	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
)

// EnvKey is the environment name formulas use to reach quotas
const EnvKey = "included_quotas"

// Range is the selectable unit range for an entity
type Range struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// Info describes an entity's primary included quota
type Info struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// Default range bounds
const (
	DefaultPerUnitMax = 100
	PerUnitHeadroom   = 50
	TieredMin         = 1
	TieredMax         = 10
)

// Resolve builds the included_quotas binding: one object per declared key
// carrying its value and unit. Entities without quotas get an empty object,
// so a formula touching a key reports that key as unknown.
func Resolve(e *catalog.Entity) formula.Value {
	fields := make(map[string]formula.Value)
	if e == nil {
		return formula.Object(fields)
	}

	for _, q := range e.IncludedQuotas {
		unit := q.Unit
		if unit == "" {
			unit = e.Unit
		}
		fields[q.Key] = formula.Object(map[string]formula.Value{
			"value": formula.NumberFromInt(int64(q.Value)),
			"unit":  formula.String(unit),
		})
	}
	return formula.Object(fields)
}

// Primary returns the first declared quota
func Primary(e *catalog.Entity) (catalog.Quota, bool) {
	if e == nil {
		return catalog.Quota{}, false
	}
	return e.IncludedQuotas.Primary()
}

// SliderRange derives the unit range for an entity from its pricing model.
// Unknown or empty models are treated as per_unit.
func SliderRange(e *catalog.Entity) Range {
	var model catalog.PricingModel
	if e != nil {
		model = e.PricingModel
	}

	switch model {
	case catalog.Flat:
		return Range{Min: 0, Max: 1, Step: 1}
	case catalog.Tiered:
		return Range{Min: TieredMin, Max: TieredMax, Step: 1}
	}

	max := DefaultPerUnitMax
	if q, ok := Primary(e); ok && q.Value+PerUnitHeadroom > max {
		max = q.Value + PerUnitHeadroom
	}
	return Range{Min: 0, Max: max, Step: 1}
}

// IncludedQuotaInfo returns the primary quota; its unit falls back to the entity's unit
func IncludedQuotaInfo(e *catalog.Entity) (Info, bool) {
	q, ok := Primary(e)
	if !ok {
		return Info{}, false
	}
	unit := q.Unit
	if unit == "" {
		unit = e.Unit
	}
	return Info{Value: q.Value, Unit: unit}, true
}

// IsAtIncludedQuota reports whether value is covered by the primary quota
func IsAtIncludedQuota(e *catalog.Entity, value int) bool {
	q, ok := Primary(e)
	return ok && value <= q.Value
}

// Clamp forces units into the entity's slider range
func Clamp(e *catalog.Entity, units int) int {
	r := SliderRange(e)
	if units < r.Min {
		return r.Min
	}
	if units > r.Max {
		return r.Max
	}
	return units
}

// Contains reports whether units lies inside the range
func (r Range) Contains(units int) bool {
	return units >= r.Min && units <= r.Max
}
