package spot

import (
	"context"
	"fmt"
	"github.com/shopspring/decimal"
)

type ExchangeService interface {
	ExchangeMarketService
	ExchangeAccountService
	ExchangeOrderService

	Name() string
}

type ExchangeMarketService interface {
	LatestPrice(ctx context.Context, pair Pair) (decimal.Decimal, error)

	// Candles returns at most filter.Count most recent candles, oldest
	// first. Fewer candles than requested mean insufficient data.
	Candles(ctx context.Context, filter CandleFilter) ([]*Candle, error)

	TradableSymbols(ctx context.Context, filter SymbolFilter) ([]*WatchedSymbol, error)
}

type ExchangeAccountService interface {
	AccountBalances(ctx context.Context) (Balances, error)
}

type ExchangeOrderService interface {
	SubmitMarketOrder(ctx context.Context, order *MarketOrder) (*OrderResponse, error)
}

type MarketOrder struct {
	Pair     Pair
	Side     Activity
	Quantity decimal.Decimal
}

func (mo *MarketOrder) String() string {
	return fmt.Sprintf("%v %v %v", mo.Side, mo.Quantity, mo.Pair)
}

const OrderStatusFilled = "FILLED"

type OrderResponse struct {
	Symbol       PairSymbol
	OrderID      string
	Status       string
	Side         Activity
	TransactTime int64
	Fills        []*OrderFill
}

func (or *OrderResponse) IsFilled() bool {
	return or.Status == OrderStatusFilled
}

func (or *OrderResponse) String() string {
	return fmt.Sprintf(
		"order %v %v %v, status: %v, fills: %v",
		or.OrderID,
		or.Side,
		or.Symbol,
		or.Status,
		len(or.Fills),
	)
}

type OrderFill struct {
	TradeID         string
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	Commission      decimal.Decimal
	CommissionAsset Asset
}
