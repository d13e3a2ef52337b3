package dispense

import "github.com/shopspring/decimal"

var mlPerLitre = decimal.NewFromInt(1000)

// amountFor prices ml millilitres at a per-litre price, rounded half-up to cents.
func amountFor(ml int, pricePerLitre decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(ml)).Mul(pricePerLitre).Div(mlPerLitre).Round(2)
}

func pricePerML(pricePerLitre decimal.Decimal) decimal.Decimal {
	return pricePerLitre.Div(mlPerLitre).Round(4)
}

// authorizedML caps requested by what balance buys at the price. The rounded
// amount of the result never exceeds balance. A non-positive price buys anything.
func authorizedML(requested int, balance, pricePerLitre decimal.Decimal) int {
	if pricePerLitre.Sign() <= 0 {
		return requested
	}
	if balance.Sign() <= 0 {
		return 0
	}

	affordable := balance.Mul(mlPerLitre).Div(pricePerLitre).Floor()
	if affordable.LessThan(decimal.NewFromInt(int64(requested))) {
		requested = int(affordable.IntPart())
	}
	for requested > 0 && amountFor(requested, pricePerLitre).GreaterThan(balance) {
		requested--
	}
	return requested
}
