package tp_sl

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// stopFor returns price * (1 - pct/100) rounded to two places.
func stopFor(price decimal.Decimal, pct float64) decimal.Decimal {
	if pct < 0 {
		pct = 0
	}
	factor := hundred.Sub(decimal.NewFromFloat(pct)).Div(hundred)
	stop := price.Mul(factor).Round(2)
	if stop.IsNegative() {
		return decimal.Zero
	}
	return stop
}

// InitialStop is the stop placed right after an entry fill.
func InitialStop(entry decimal.Decimal, pct float64) decimal.Decimal {
	return stopFor(entry, pct)
}

// NextTrailingStop applies the long-only trailing stop.
//
// - candidate = price * (1 - pct/100)
// - update: stop = max(current, candidate)
//
// The stop never moves down; raised reports whether it moved.
func NextTrailingStop(current, price decimal.Decimal, pct float64) (next decimal.Decimal, raised bool) {
	if !price.IsPositive() {
		return current, false
	}
	candidate := stopFor(price, pct)
	if candidate.GreaterThan(current) {
		return candidate, true
	}
	return current, false
}

// StopHit reports whether price has fallen to or below a set stop.
func StopHit(price, stop decimal.Decimal) bool {
	return stop.IsPositive() && price.LessThanOrEqual(stop)
}
