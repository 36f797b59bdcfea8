package paper

import (
	"context"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/lukasz-zimnoch/dexly/spot/inmem"
	"github.com/shopspring/decimal"
	"strconv"
	"sync"
	"time"
)

const (
	exchangeName = "paper"
	// refreshCandles is the number of newest candles fetched once the
	// cache holds a full window.
	refreshCandles    = 2
	defaultWindowSize = 1000
)

type Config struct {
	CashCurrency   spot.Asset
	InitialCash    decimal.Decimal
	CommissionRate decimal.Decimal
	WindowSize     int
}

// ExchangeService simulates order execution against real market data.
// Market orders fill immediately at the latest price. Buys pay
// commission in the received asset and sells pay it in the cash
// currency.
type ExchangeService struct {
	market  spot.ExchangeMarketService
	candles *inmem.CandleRepository
	config  *Config
	now     func() time.Time

	mutex       sync.Mutex
	balances    spot.Balances
	lastOrderID int64
	lastTradeID int64
}

func NewExchangeService(
	market spot.ExchangeMarketService,
	config *Config,
) *ExchangeService {
	windowSize := config.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}

	return &ExchangeService{
		market:  market,
		candles: inmem.NewCandleRepository(windowSize),
		config:  config,
		now:     time.Now,
		balances: spot.Balances{
			config.CashCurrency: {
				Free:   config.InitialCash,
				Locked: decimal.Zero,
			},
		},
	}
}

func (es *ExchangeService) Name() string {
	return exchangeName
}

func (es *ExchangeService) LatestPrice(
	ctx context.Context,
	pair spot.Pair,
) (decimal.Decimal, error) {
	return es.market.LatestPrice(ctx, pair)
}

// Candles serves candles from a local window. Once the window is full
// only the newest candles are fetched from the market.
func (es *ExchangeService) Candles(
	ctx context.Context,
	filter spot.CandleFilter,
) ([]*spot.Candle, error) {
	key := filter.Pair.String() + "/" + filter.Interval

	fetchFilter := filter
	if len(es.candles.Candles(key)) >= filter.Count {
		fetchFilter.Count = refreshCandles
	}

	candles, err := es.market.Candles(ctx, fetchFilter)
	if err != nil {
		return nil, err
	}

	es.candles.SaveCandles(key, candles...)

	window := es.candles.Candles(key)
	if len(window) > filter.Count {
		window = window[len(window)-filter.Count:]
	}

	return window, nil
}

func (es *ExchangeService) TradableSymbols(
	ctx context.Context,
	filter spot.SymbolFilter,
) ([]*spot.WatchedSymbol, error) {
	return es.market.TradableSymbols(ctx, filter)
}

func (es *ExchangeService) AccountBalances(
	_ context.Context,
) (spot.Balances, error) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	balances := make(spot.Balances, len(es.balances))
	for asset, balance := range es.balances {
		copied := *balance
		balances[asset] = &copied
	}

	return balances, nil
}

func (es *ExchangeService) SubmitMarketOrder(
	ctx context.Context,
	order *spot.MarketOrder,
) (*spot.OrderResponse, error) {
	if order.Pair.Quote != es.config.CashCurrency {
		return nil, fmt.Errorf(
			"only pairs quoted in [%v] are supported",
			es.config.CashCurrency,
		)
	}

	if !order.Quantity.IsPositive() {
		return nil, fmt.Errorf("invalid order quantity: [%v]", order.Quantity)
	}

	price, err := es.market.LatestPrice(ctx, order.Pair)
	if err != nil {
		return nil, fmt.Errorf("could not get execution price: [%v]", err)
	}

	es.mutex.Lock()
	defer es.mutex.Unlock()

	notional := order.Quantity.Mul(price)

	cash := es.balance(order.Pair.Quote)
	base := es.balance(order.Pair.Base)

	var commission decimal.Decimal
	var commissionAsset spot.Asset

	switch order.Side {
	case spot.BUY:
		if cash.Free.LessThan(notional) {
			return nil, fmt.Errorf(
				"insufficient [%v] balance: need [%v], have [%v]",
				order.Pair.Quote,
				notional,
				cash.Free,
			)
		}

		commission = order.Quantity.Mul(es.config.CommissionRate)
		commissionAsset = order.Pair.Base

		cash.Free = cash.Free.Sub(notional)
		base.Free = base.Free.Add(order.Quantity).Sub(commission)
	case spot.SELL:
		if base.Free.LessThan(order.Quantity) {
			return nil, fmt.Errorf(
				"insufficient [%v] balance: need [%v], have [%v]",
				order.Pair.Base,
				order.Quantity,
				base.Free,
			)
		}

		commission = notional.Mul(es.config.CommissionRate)
		commissionAsset = order.Pair.Quote

		base.Free = base.Free.Sub(order.Quantity)
		cash.Free = cash.Free.Add(notional).Sub(commission)
	default:
		return nil, fmt.Errorf("unsupported order side: [%d]", int(order.Side))
	}

	es.lastOrderID++
	es.lastTradeID++

	return &spot.OrderResponse{
		Symbol:       order.Pair.Symbol(),
		OrderID:      strconv.FormatInt(es.lastOrderID, 10),
		Status:       spot.OrderStatusFilled,
		Side:         order.Side,
		TransactTime: es.now().UnixMilli(),
		Fills: []*spot.OrderFill{
			{
				TradeID:         strconv.FormatInt(es.lastTradeID, 10),
				Price:           price,
				Quantity:        order.Quantity,
				Commission:      commission,
				CommissionAsset: commissionAsset,
			},
		},
	}, nil
}

// Deposit credits the free balance of the asset. Holdings restored from
// the ledger are deposited at startup so they can be sold.
func (es *ExchangeService) Deposit(asset spot.Asset, quantity decimal.Decimal) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	balance := es.balance(asset)
	balance.Free = balance.Free.Add(quantity)
}

func (es *ExchangeService) balance(asset spot.Asset) *spot.Balance {
	balance, ok := es.balances[asset]
	if !ok {
		balance = &spot.Balance{Free: decimal.Zero, Locked: decimal.Zero}
		es.balances[asset] = balance
	}

	return balance
}
