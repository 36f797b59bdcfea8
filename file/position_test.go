package file

import (
	"encoding/json"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testPosition(t *testing.T) *spot.Position {
	t.Helper()

	position := spot.NewPosition("ADA")

	transactions := []spot.Transaction{
		{
			Time:             1700000000123,
			Activity:         spot.BUY,
			Symbol:           "ADA",
			TradeSymbol:      "ADAUSDT",
			Quantity:         decimal.RequireFromString("30.03"),
			Price:            decimal.RequireFromString("0.3331"),
			Commission:       decimal.RequireFromString("0.03003"),
			CommissionAsset:  "ADA",
			CommissionAsCash: decimal.RequireFromString("0.010002993"),
			RoundID:          "round-1",
			OrderID:          "111",
			TradeID:          "222",
		},
		{
			Time:             1700000600456,
			Activity:         spot.SELL,
			Symbol:           "ADA",
			TradeSymbol:      "ADAUSDT",
			Quantity:         decimal.RequireFromString("10"),
			Price:            decimal.RequireFromString("0.35"),
			Commission:       decimal.RequireFromString("0.0035"),
			CommissionAsset:  "USDT",
			CommissionAsCash: decimal.RequireFromString("0.0035"),
			RoundID:          "round-7",
			OrderID:          "333",
			TradeID:          "444",
			ClosedTradeIDs:   []string{"222"},
		},
	}

	for _, tx := range transactions {
		if err := position.AddTransaction(tx); err != nil {
			t.Fatal(err)
		}
	}

	return position
}

func assertDecimalEqual(t *testing.T, name string, expected, actual decimal.Decimal) {
	t.Helper()

	if !expected.Equal(actual) {
		t.Errorf(
			"unexpected %v\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			name,
			expected,
			actual,
		)
	}
}

func TestPositionRepository_RoundTrip(t *testing.T) {
	repository, err := NewPositionRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	expected := testPosition(t)

	if err := repository.SavePosition(expected); err != nil {
		t.Fatal(err)
	}

	actual, err := repository.Position("ADA")
	if err != nil {
		t.Fatal(err)
	}

	if actual == nil {
		t.Fatal("position not found")
	}

	assertDecimalEqual(t, "open quantity", expected.OpenQuantity, actual.OpenQuantity)
	assertDecimalEqual(t, "open cost", expected.OpenCost, actual.OpenCost)
	assertDecimalEqual(t, "realized gain", expected.RealizedGain, actual.RealizedGain)
	assertDecimalEqual(
		t,
		"total commission",
		expected.TotalCommissionPaid,
		actual.TotalCommissionPaid,
	)

	if len(actual.Transactions) != len(expected.Transactions) {
		t.Fatalf(
			"unexpected transactions count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			len(expected.Transactions),
			len(actual.Transactions),
		)
	}

	for i := range expected.Transactions {
		e, a := expected.Transactions[i], actual.Transactions[i]

		assertDecimalEqual(t, "quantity", e.Quantity, a.Quantity)
		assertDecimalEqual(t, "price", e.Price, a.Price)
		assertDecimalEqual(t, "commission", e.Commission, a.Commission)
		assertDecimalEqual(t, "commission as cash", e.CommissionAsCash, a.CommissionAsCash)

		e.Quantity, a.Quantity = decimal.Zero, decimal.Zero
		e.Price, a.Price = decimal.Zero, decimal.Zero
		e.Commission, a.Commission = decimal.Zero, decimal.Zero
		e.CommissionAsCash, a.CommissionAsCash = decimal.Zero, decimal.Zero

		if !reflect.DeepEqual(e, a) {
			t.Errorf(
				"unexpected transaction [%v]\n"+
					"expected: [%+v]\n"+
					"actual:   [%+v]",
				i,
				e,
				a,
			)
		}
	}
}

func TestPositionRepository_RecordFormat(t *testing.T) {
	directory := t.TempDir()

	repository, err := NewPositionRepository(directory)
	if err != nil {
		t.Fatal(err)
	}

	if err := repository.SavePosition(testPosition(t)); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(directory, "ADA.json"))
	if err != nil {
		t.Fatal(err)
	}

	var record map[string]interface{}
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{
		"open_quantity",
		"open_cost",
		"realized_gain",
		"total_commission_as_usdt",
		"transactions",
	} {
		if _, ok := record[key]; !ok {
			t.Errorf("missing key [%v] in record", key)
		}
	}

	if record["open_quantity"] != "19.99997" {
		t.Errorf(
			"unexpected open quantity\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			"19.99997",
			record["open_quantity"],
		)
	}

	tx := record["transactions"].([]interface{})[0].(map[string]interface{})
	if tx["time"] != "1700000000123" || tx["activity"] != "BUY" {
		t.Errorf("unexpected transaction record: [%v]", tx)
	}
}

func TestPositionRepository_MissingRecord(t *testing.T) {
	repository, err := NewPositionRepository(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	position, err := repository.Position("DOT")
	if err != nil {
		t.Fatal(err)
	}

	if position != nil {
		t.Errorf("unexpected position: [%v]", position)
	}
}

func TestPositionRepository_CorruptedRecord(t *testing.T) {
	directory := t.TempDir()

	repository, err := NewPositionRepository(directory)
	if err != nil {
		t.Fatal(err)
	}

	err = os.WriteFile(filepath.Join(directory, "ADA.json"), []byte("{"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := repository.Position("ADA"); err == nil {
		t.Errorf("expected decoding error")
	}
}
