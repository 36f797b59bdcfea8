package spot

import (
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

type Activity int

const (
	BUY Activity = iota
	SELL
)

func ParseActivity(value string) (Activity, error) {
	switch value {
	case "BUY":
		return BUY, nil
	case "SELL":
		return SELL, nil
	}

	return -1, fmt.Errorf("%w: [%v]", ErrUnknownActivity, value)
}

func (a Activity) String() string {
	switch a {
	case BUY:
		return "BUY"
	case SELL:
		return "SELL"
	default:
		panic("unknown activity")
	}
}

// Transaction is a single exchange fill. Once appended to a position
// it must not be modified.
type Transaction struct {
	Time             int64
	Activity         Activity
	Symbol           Asset
	TradeSymbol      PairSymbol
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	Commission       decimal.Decimal
	CommissionAsset  Asset
	CommissionAsCash decimal.Decimal
	RoundID          string
	OrderID          string
	TradeID          string
	ClosedTradeIDs   []string
}

func (t Transaction) Timestamp() time.Time {
	return time.UnixMilli(t.Time)
}

// Notional returns quantity multiplied by price.
func (t Transaction) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

func (t Transaction) String() string {
	var b strings.Builder

	fmt.Fprintf(
		&b,
		"%v %v %v @ %v (%v)",
		t.Activity,
		t.Quantity,
		t.TradeSymbol,
		t.Price,
		t.Timestamp().UTC().Format(time.RFC3339),
	)

	if !t.Commission.IsZero() {
		fmt.Fprintf(&b, ", commission: %v %v", t.Commission, t.CommissionAsset)
	}

	if len(t.ClosedTradeIDs) > 0 {
		fmt.Fprintf(&b, ", closes: %v", strings.Join(t.ClosedTradeIDs, ","))
	}

	return b.String()
}
