package spot

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	ledger, err := LoadLedger(testLogger{}, newPositionRepositoryMock(), "USDT", nil)
	if err != nil {
		t.Fatal(err)
	}
	ledger.retry = noBackoff

	return ledger
}

func watched(base Asset) *WatchedSymbol {
	return &WatchedSymbol{
		Pair:  Pair{Base: base, Quote: "USDT"},
		Rules: testRules,
	}
}

func TestOrderExecutor_OpenPosition(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("3.33")
	exchange.commission = d("0.1")

	ledger := newTestLedger(t)
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("100"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Ok || len(result.Transactions) != 1 {
		t.Fatalf("unexpected result: [%+v]", result)
	}

	tx := result.Transactions[0]

	assertDecimal(t, "quantity", "30.03", tx.Quantity)
	assertDecimal(t, "commission as cash", "0.1", tx.CommissionAsCash)

	if tx.RoundID != "round-1" || tx.TradeID != "trade-1" || tx.Symbol != "ADA" {
		t.Errorf("unexpected transaction: [%v]", tx)
	}

	assertDecimal(t, "open quantity", "30.03", ledger.Position("ADA").OpenQuantity)
	// 30.03 * 3.33 + 0.1
	assertDecimal(t, "cash flow", "-100.0999", result.CashFlow("USDT"))
}

func TestOrderExecutor_OpenPosition_AlreadyHolding(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("2")

	ledger := newTestLedger(t)
	if err := ledger.Position("ADA").AddTransaction(buy("1", "2")); err != nil {
		t.Fatal(err)
	}

	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("100"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err != nil {
		t.Fatal(err)
	}

	if result.Rejection != AlreadyHolding {
		t.Errorf(
			"unexpected rejection\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			AlreadyHolding,
			result.Rejection,
		)
	}

	if exchange.priceCalls["ADA"] != 0 || exchange.ordersCount() != 0 {
		t.Errorf("exchange should not be called")
	}
}

func TestOrderExecutor_OpenPosition_BelowMinNotional(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("3.33")

	ledger := newTestLedger(t)
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("5"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err != nil {
		t.Fatal(err)
	}

	if result.Rejection != BelowMinNotional || result.Ok {
		t.Errorf("unexpected result: [%+v]", result)
	}

	if exchange.ordersCount() != 0 {
		t.Errorf("order should not be submitted")
	}

	if ledger.Position("ADA").TransactionsCount() != 0 {
		t.Errorf("ledger should not be mutated")
	}
}

func TestOrderExecutor_CloseAllPosition(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("3")
	// The exchange holds more than the ledger knows about.
	exchange.balances["ADA"] = &Balance{Free: d("25"), Locked: d("0")}

	ledger := newTestLedger(t)
	position := ledger.Position("ADA")

	opening := buy("10", "2")
	opening.TradeID = "opening"
	if err := position.AddTransaction(opening); err != nil {
		t.Fatal(err)
	}

	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.CloseAllPosition(
		context.Background(),
		watched("ADA"),
		position,
		"round-2",
	)
	if err != nil {
		t.Fatal(err)
	}

	assertDecimal(t, "sold quantity", "10", exchange.orders[0].Quantity)
	assertDecimal(t, "open quantity", "0", position.OpenQuantity)
	assertDecimal(t, "open cost", "0", position.OpenCost)
	assertDecimal(t, "realized gain", "10", position.RealizedGain)
	assertDecimal(t, "cash flow", "30", result.CashFlow("USDT"))

	closed := result.Transactions[0].ClosedTradeIDs
	if len(closed) != 1 || closed[0] != "opening" {
		t.Errorf("unexpected closed trade ids: [%v]", closed)
	}
}

func TestOrderExecutor_CloseAllPosition_NothingToSell(t *testing.T) {
	exchange := newExchangeMock("USDT")
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	_, err := executor.CloseAllPosition(
		context.Background(),
		watched("ADA"),
		NewPosition("ADA"),
		"round-1",
	)

	if !errors.Is(err, ErrNothingToSell) {
		t.Errorf(
			"unexpected error\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			ErrNothingToSell,
			err,
		)
	}

	if exchange.ordersCount() != 0 {
		t.Errorf("order should not be submitted")
	}
}

func TestOrderExecutor_SubmissionFailure(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("2")
	exchange.submitErr = fmt.Errorf("connection reset")

	ledger := newTestLedger(t)
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("20"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err == nil {
		t.Fatal("expected submission error")
	}

	if result.Ok || len(result.Transactions) != 0 {
		t.Errorf("unexpected result: [%+v]", result)
	}

	if ledger.Position("ADA").TransactionsCount() != 0 {
		t.Errorf("ledger should not be mutated")
	}
}

func TestOrderExecutor_PersistenceFailureKeepsAllFills(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("2")
	exchange.fills = 2

	ledger := newTestLedger(t)
	repository := ledger.repository.(*positionRepositoryMock)
	repository.failures = 2 * persistAttempts

	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("20"),
		ledger.Position("ADA"),
		"round-1",
	)

	if !errors.Is(err, ErrPersistence) {
		t.Errorf(
			"unexpected error\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			ErrPersistence,
			err,
		)
	}

	if len(result.Transactions) != 2 {
		t.Fatalf(
			"unexpected transactions count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			2,
			len(result.Transactions),
		)
	}

	if !result.Ok {
		t.Errorf("result should report the executed fills")
	}

	if result.Transactions[0].TradeID != "trade-1" ||
		result.Transactions[1].TradeID != "trade-2" {
		t.Errorf("unexpected transactions: [%v]", result.Transactions)
	}

	position := ledger.Position("ADA")
	assertDecimal(t, "open quantity", "10", position.OpenQuantity)

	if position.TransactionsCount() != 2 {
		t.Errorf(
			"unexpected ledger transactions count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			2,
			position.TransactionsCount(),
		)
	}

	assertDecimal(t, "cash flow", "-20", result.CashFlow("USDT"))
}

func TestOrderExecutor_CommissionInOtherAsset(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("2")
	exchange.prices["BNB"] = d("300")
	exchange.commission = d("0.001")
	exchange.commissionAsset = "BNB"
	exchange.status = "PARTIALLY_FILLED"

	ledger := newTestLedger(t)
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("20"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Ok {
		t.Fatalf("fills of a partially filled order should be applied")
	}

	assertDecimal(t, "commission as cash", "0.3", result.Transactions[0].CommissionAsCash)

	if exchange.priceCalls["BNB"] != 1 {
		t.Errorf("unexpected commission price lookups: [%v]", exchange.priceCalls["BNB"])
	}

	// Commission paid in BNB does not touch the cash balance.
	assertDecimal(t, "cash flow", "-20", result.CashFlow("USDT"))
}

func TestOrderExecutor_CommissionPriceUnavailable(t *testing.T) {
	exchange := newExchangeMock("USDT")
	exchange.prices["ADA"] = d("2")
	exchange.commission = d("0.001")
	exchange.commissionAsset = "BNB"

	ledger := newTestLedger(t)
	executor := NewOrderExecutor(testLogger{}, exchange, "USDT")

	result, err := executor.OpenPosition(
		context.Background(),
		watched("ADA"),
		d("20"),
		ledger.Position("ADA"),
		"round-1",
	)
	if err != nil {
		t.Fatal(err)
	}

	assertDecimal(t, "commission as cash", "0", result.Transactions[0].CommissionAsCash)
}
