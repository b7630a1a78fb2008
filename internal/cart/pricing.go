package cart

import "github.com/shopspring/decimal"

const (
	// TierThreshold is the number of distinct snapshots that unlocks the tier discount.
	TierThreshold = 3
	// TierPercentOff is taken off the whole subtotal, once, at checkout time.
	TierPercentOff = 20
)

var hundred = decimal.NewFromInt(100)

// percentOff returns floor(amount * (100 - percent) / 100), never below zero.
func percentOff(amount, percent int64) int64 {
	if percent <= 0 {
		return max(amount, 0)
	}
	v := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(100 - percent)).
		Div(hundred).
		Floor().
		IntPart()
	return max(v, 0)
}

// tierTotal applies the cart-level tier discount to subtotal and truncates the result.
func tierTotal(subtotal int64, unique int) int64 {
	if unique < TierThreshold {
		return max(subtotal, 0)
	}
	v := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromInt(100 - TierPercentOff)).
		Div(hundred).
		Truncate(0).
		IntPart()
	return max(v, 0)
}
