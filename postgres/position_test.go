package postgres

import (
	"github.com/jackc/pgtype"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"reflect"
	"testing"
)

func TestTransactionRow_WrapUnwrap(t *testing.T) {
	expected := spot.Transaction{
		Time:             1700000000123,
		Activity:         spot.SELL,
		Symbol:           "ADA",
		TradeSymbol:      "ADAUSDT",
		Quantity:         decimal.RequireFromString("19.99997"),
		Price:            decimal.RequireFromString("0.35"),
		Commission:       decimal.RequireFromString("0.0069999895"),
		CommissionAsset:  "USDT",
		CommissionAsCash: decimal.RequireFromString("0.0069999895"),
		RoundID:          "round-7",
		OrderID:          "333",
		TradeID:          "444",
		ClosedTradeIDs:   []string{"222", "223"},
	}

	row, err := new(transactionRow).wrap("ADA", 3, expected)
	if err != nil {
		t.Fatal(err)
	}

	if row.Sequence != 3 {
		t.Errorf("unexpected sequence: [%v]", row.Sequence)
	}

	actual, err := row.unwrap()
	if err != nil {
		t.Fatal(err)
	}

	for _, pair := range [][2]decimal.Decimal{
		{expected.Quantity, actual.Quantity},
		{expected.Price, actual.Price},
		{expected.Commission, actual.Commission},
		{expected.CommissionAsCash, actual.CommissionAsCash},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf(
				"unexpected decimal\n"+
					"expected: [%v]\n"+
					"actual:   [%v]",
				pair[0],
				pair[1],
			)
		}
	}

	if !reflect.DeepEqual(expected.ClosedTradeIDs, actual.ClosedTradeIDs) {
		t.Errorf(
			"unexpected closed trade ids\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expected.ClosedTradeIDs,
			actual.ClosedTradeIDs,
		)
	}

	if actual.Activity != expected.Activity ||
		actual.Time != expected.Time ||
		actual.TradeID != expected.TradeID ||
		actual.Symbol != expected.Symbol {
		t.Errorf("unexpected transaction: [%v]", actual)
	}
}

func TestPositionRow_WrapUnwrap(t *testing.T) {
	expected := spot.NewPosition("ADA")
	expected.OpenQuantity = decimal.RequireFromString("19.99997")
	expected.OpenCost = decimal.RequireFromString("6.6686586686586687")
	expected.RealizedGain = decimal.RequireFromString("-0.0001")
	expected.TotalCommissionPaid = decimal.RequireFromString("0.013502993")

	row, err := new(positionRow).wrap(expected)
	if err != nil {
		t.Fatal(err)
	}

	actual, err := row.unwrap()
	if err != nil {
		t.Fatal(err)
	}

	if actual.Asset != expected.Asset {
		t.Errorf("unexpected asset: [%v]", actual.Asset)
	}

	for _, pair := range [][2]decimal.Decimal{
		{expected.OpenQuantity, actual.OpenQuantity},
		{expected.OpenCost, actual.OpenCost},
		{expected.RealizedGain, actual.RealizedGain},
		{expected.TotalCommissionPaid, actual.TotalCommissionPaid},
	} {
		if !pair[0].Equal(pair[1]) {
			t.Errorf(
				"unexpected decimal\n"+
					"expected: [%v]\n"+
					"actual:   [%v]",
				pair[0],
				pair[1],
			)
		}
	}
}

func TestNumericToDecimal_Undefined(t *testing.T) {
	for name, value := range map[string]pgtype.Numeric{
		"null": {Status: pgtype.Null},
		"nan":  {Status: pgtype.Present, NaN: true},
	} {
		if _, err := numericToDecimal(value); err == nil {
			t.Errorf("expected error for [%v] numeric", name)
		}
	}
}
