package loyalty

import "github.com/shopspring/decimal"

// CalculatePoints returns the points earned for amount and the rule that produced them.
// Among rules whose minimum the amount reaches, the highest ratio wins; ties go to the
// first rule in the slice. No qualifying rule yields 0 and a nil rule.
func CalculatePoints(amount decimal.Decimal, rules []Rule) (int64, *Rule) {
	var best *Rule
	for i := range rules {
		r := &rules[i]
		if amount.LessThan(r.MinAmount) {
			continue
		}
		if best == nil || r.PointsPerUnit.GreaterThan(best.PointsPerUnit) {
			best = r
		}
	}
	if best == nil {
		return 0, nil
	}

	points := amount.Mul(best.PointsPerUnit).Floor().IntPart()
	if points < 0 {
		points = 0
	}
	return points, best
}
