// Package money holds the rounding rules shared by quotation pricing and impact simulation.
package money

import "github.com/shopspring/decimal"

var half = decimal.RequireFromString("0.5")

// RoundHalfUp rounds d to places decimal digits, ties toward positive infinity.
// Rounding an already-rounded value returns it unchanged.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// RoundDelta rounds a signed difference to places, ties away from zero, so that a price
// rise and the matching fall summarize to the same magnitude.
func RoundDelta(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// RoundMinor rounds an amount to the currency minor unit (e.g. 2 for cents).
func RoundMinor(amount decimal.Decimal, minorUnits int32) decimal.Decimal {
	return RoundHalfUp(amount, minorUnits)
}

// Stats is a min/max/mean summary over a set of deltas.
type Stats struct {
	Min  decimal.Decimal `json:"min"`
	Max  decimal.Decimal `json:"max"`
	Mean decimal.Decimal `json:"mean"`
}

// Summarize returns Stats for values; the mean goes through RoundDelta. Empty input yields zeros.
func Summarize(values []decimal.Decimal, places int32) Stats {
	if len(values) == 0 {
		return Stats{Min: decimal.Zero, Max: decimal.Zero, Mean: decimal.Zero}
	}
	minV, maxV, sum := values[0], values[0], decimal.Zero
	for _, v := range values {
		if v.LessThan(minV) {
			minV = v
		}
		if v.GreaterThan(maxV) {
			maxV = v
		}
		sum = sum.Add(v)
	}
	mean := RoundDelta(sum.Div(decimal.NewFromInt(int64(len(values)))), places)
	return Stats{Min: minV, Max: maxV, Mean: mean}
}
