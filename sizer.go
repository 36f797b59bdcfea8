package spot

import (
	"github.com/shopspring/decimal"
)

// SizingRejection tells why an order could not be sized. Rejections are
// expected outcomes, not errors.
type SizingRejection int

const (
	NotRejected SizingRejection = iota
	AlreadyHolding
	BelowMinNotional
	BelowMinQuantity
	InvalidPrice
)

func (sr SizingRejection) String() string {
	switch sr {
	case NotRejected:
		return "NOT_REJECTED"
	case AlreadyHolding:
		return "ALREADY_HOLDING"
	case BelowMinNotional:
		return "BELOW_MIN_NOTIONAL"
	case BelowMinQuantity:
		return "BELOW_MIN_QUANTITY"
	case InvalidPrice:
		return "INVALID_PRICE"
	default:
		panic("unknown sizing rejection")
	}
}

// PrecheckOrder applies the checks which do not need a market price.
func PrecheckOrder(
	maxFund decimal.Decimal,
	openQuantity decimal.Decimal,
	rules ExchangeRules,
) SizingRejection {
	if openQuantity.IsPositive() {
		return AlreadyHolding
	}

	if maxFund.LessThan(rules.MinNotional) {
		return BelowMinNotional
	}

	return NotRejected
}

// SizeOrder computes the largest quantity affordable with maxFund at the
// given price that lies on the step grid of the rules, clamped to the
// maximal quantity.
func SizeOrder(
	maxFund decimal.Decimal,
	openQuantity decimal.Decimal,
	price decimal.Decimal,
	rules ExchangeRules,
) (decimal.Decimal, SizingRejection) {
	if rejection := PrecheckOrder(maxFund, openQuantity, rules); rejection != NotRejected {
		return decimal.Zero, rejection
	}

	if !price.IsPositive() {
		return decimal.Zero, InvalidPrice
	}

	quantity := maxFund.Div(price)

	if quantity.LessThan(rules.MinQuantity) {
		return decimal.Zero, BelowMinQuantity
	}

	if rules.StepSize.IsPositive() {
		quantity = quantity.Sub(quantity.Mod(rules.StepSize))
	}

	if rules.MaxQuantity.IsPositive() && quantity.GreaterThan(rules.MaxQuantity) {
		quantity = rules.MaxQuantity
	}

	if !quantity.IsPositive() {
		return decimal.Zero, BelowMinQuantity
	}

	return quantity, NotRejected
}
