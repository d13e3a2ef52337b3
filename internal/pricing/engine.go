package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Applies reports whether the rule is in force at q.At and bound to the queried context.
// A rule without scopes is global.
func Applies(r Rule, q Query) bool {
	if !r.Active || q.At.Before(r.StartsAt) || q.At.After(r.EndsAt) {
		return false
	}
	if r.WeekdayMask != 0 && r.WeekdayMask&(1<<uint(q.At.Weekday())) == 0 {
		return false
	}
	if len(r.Scopes) == 0 {
		return true
	}
	for _, s := range r.Scopes {
		switch s.Type {
		case ScopeProduct:
			if s.EntityID == q.ProductID {
				return true
			}
		case ScopeEquipment:
			if q.EquipmentID != nil && s.EntityID == *q.EquipmentID {
				return true
			}
		case ScopePointOfSale:
			if q.PointOfSaleID != nil && s.EntityID == *q.PointOfSaleID {
				return true
			}
		}
	}
	return false
}

// Apply runs the applicable rules over base in priority order (high first, then ascending id).
// A fixed price replaces the running price; a multiplier compounds into the cumulative
// multiplier, which is always applied to the original base.
func Apply(base decimal.Decimal, rules []Rule) *Calculation {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Priority.rank(), ordered[j].Priority.rank()
		if ri != rj {
			return ri > rj
		}
		return ordered[i].ID < ordered[j].ID
	})

	base = base.Round(2)
	final := base
	multiplier := decimal.NewFromInt(1)
	names := make([]string, 0, len(ordered))

	for _, r := range ordered {
		if r.Price.Valid {
			final = r.Price.Decimal
		} else if r.Multiplier.Valid {
			multiplier = multiplier.Mul(r.Multiplier.Decimal)
			final = base.Mul(multiplier)
		}
		names = append(names, r.Name)
	}

	calc := &Calculation{
		BasePrice:            base,
		FinalPrice:           final.Round(2),
		AppliedRuleNames:     names,
		CumulativeMultiplier: multiplier,
	}
	if calc.FinalPrice.LessThan(base) {
		discount := base.Sub(calc.FinalPrice)
		calc.Discount = &discount
	}
	return calc
}

// Resolve filters rules for q and applies them to base.
func Resolve(base decimal.Decimal, rules []Rule, q Query) *Calculation {
	applicable := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if Applies(r, q) {
			applicable = append(applicable, r)
		}
	}
	return Apply(base, applicable)
}
