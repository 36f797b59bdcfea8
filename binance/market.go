package binance

import (
	"context"
	"fmt"
	"github.com/adshao/go-binance/v2"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"sort"
)

func (es *ExchangeService) LatestPrice(
	ctx context.Context,
	pair spot.Pair,
) (decimal.Decimal, error) {
	requestCtx, cancelRequestCtx := withRequestTimeout(ctx)
	defer cancelRequestCtx()

	prices, err := es.client.
		NewListPricesService().
		Symbol(pair.String()).
		Do(requestCtx)
	if err != nil {
		return decimal.Zero, err
	}

	for _, price := range prices {
		if price.Symbol == pair.String() {
			return parseDecimal("price", price.Price)
		}
	}

	return decimal.Zero, fmt.Errorf("%w: [%v]", spot.ErrSymbolNotFound, pair)
}

func (es *ExchangeService) Candles(
	ctx context.Context,
	filter spot.CandleFilter,
) ([]*spot.Candle, error) {
	requestCtx, cancelRequestCtx := withRequestTimeout(ctx)
	defer cancelRequestCtx()

	klines, err := es.client.
		NewKlinesService().
		Symbol(filter.Pair.String()).
		Interval(filter.Interval).
		Limit(filter.Count).
		Do(requestCtx)
	if err != nil {
		return nil, err
	}

	candles := make([]*spot.Candle, 0, len(klines))
	for _, kline := range klines {
		candle, err := parseKline(kline)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

func parseKline(kline *binance.Kline) (*spot.Candle, error) {
	values := make(map[string]decimal.Decimal, 5)

	for name, value := range map[string]string{
		"open":   kline.Open,
		"close":  kline.Close,
		"high":   kline.High,
		"low":    kline.Low,
		"volume": kline.Volume,
	} {
		parsed, err := parseDecimal(name, value)
		if err != nil {
			return nil, err
		}

		values[name] = parsed
	}

	return &spot.Candle{
		OpenTime:   parseMilliseconds(kline.OpenTime),
		CloseTime:  parseMilliseconds(kline.CloseTime),
		OpenPrice:  values["open"],
		ClosePrice: values["close"],
		MaxPrice:   values["high"],
		MinPrice:   values["low"],
		Volume:     values["volume"],
		TradeCount: uint(kline.TradeNum),
	}, nil
}

// TradableSymbols lists the trading pairs quoted in the filter's quote
// asset which accept market orders.
func (es *ExchangeService) TradableSymbols(
	ctx context.Context,
	filter spot.SymbolFilter,
) ([]*spot.WatchedSymbol, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	requestCtx, cancelRequestCtx := withRequestTimeout(ctx)
	defer cancelRequestCtx()

	info, err := es.client.NewExchangeInfoService().Do(requestCtx)
	if err != nil {
		return nil, err
	}

	symbols := make([]*spot.WatchedSymbol, 0)

	for i := range info.Symbols {
		symbol := &info.Symbols[i]

		if symbol.Status != string(binance.SymbolStatusTypeTrading) ||
			spot.Asset(symbol.QuoteAsset) != filter.Quote ||
			!acceptsMarketOrders(symbol) ||
			!filter.Admits(spot.Asset(symbol.BaseAsset)) {
			continue
		}

		rules, err := parseExchangeRules(symbol)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse rules of [%v]: [%w]",
				symbol.Symbol,
				err,
			)
		}

		symbols = append(symbols, &spot.WatchedSymbol{
			Pair: spot.Pair{
				Base:  spot.Asset(symbol.BaseAsset),
				Quote: spot.Asset(symbol.QuoteAsset),
			},
			Rules: rules,
		})
	}

	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].Base < symbols[j].Base
	})

	return symbols, nil
}

func acceptsMarketOrders(symbol *binance.Symbol) bool {
	for _, orderType := range symbol.OrderTypes {
		if orderType == string(binance.OrderTypeMarket) {
			return true
		}
	}

	return false
}

func parseExchangeRules(symbol *binance.Symbol) (spot.ExchangeRules, error) {
	rules := spot.ExchangeRules{
		MinNotional: decimal.Zero,
		MinQuantity: decimal.Zero,
		MaxQuantity: decimal.Zero,
		StepSize:    decimal.Zero,
	}

	var err error

	if lotSize := symbol.LotSizeFilter(); lotSize != nil {
		if rules.MinQuantity, err = parseDecimal("minQty", lotSize.MinQuantity); err != nil {
			return rules, err
		}
		if rules.MaxQuantity, err = parseDecimal("maxQty", lotSize.MaxQuantity); err != nil {
			return rules, err
		}
		if rules.StepSize, err = parseDecimal("stepSize", lotSize.StepSize); err != nil {
			return rules, err
		}
	}

	// Newer symbols carry NOTIONAL while older ones still carry MIN_NOTIONAL.
	if notional := symbol.NotionalFilter(); notional != nil {
		rules.MinNotional, err = parseDecimal("minNotional", notional.MinNotional)
	} else if minNotional := symbol.MinNotionalFilter(); minNotional != nil {
		rules.MinNotional, err = parseDecimal("minNotional", minNotional.MinNotional)
	}

	return rules, err
}
