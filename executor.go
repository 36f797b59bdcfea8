package spot

import (
	"context"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
)

type OrderResult struct {
	Ok           bool
	Side         Activity
	Rejection    SizingRejection
	Transactions []Transaction
	Response     *OrderResponse
}

// CashFlow returns the change of free cash implied by the result. Buys
// spend notional plus cash commission. Sells receive notional minus cash
// commission, not plus, since that is what the exchange credits.
func (or *OrderResult) CashFlow(cash Asset) decimal.Decimal {
	flow := decimal.Zero

	for _, tx := range or.Transactions {
		commission := decimal.Zero
		if tx.CommissionAsset == cash {
			commission = tx.Commission
		}

		switch tx.Activity {
		case BUY:
			flow = flow.Sub(tx.Notional()).Sub(commission)
		case SELL:
			flow = flow.Add(tx.Notional()).Sub(commission)
		}
	}

	return flow
}

// OrderExecutor submits market orders and folds their fills into the
// ledger.
type OrderExecutor struct {
	logger   Logger
	exchange ExchangeService
	cash     Asset
}

func NewOrderExecutor(
	logger Logger,
	exchange ExchangeService,
	cash Asset,
) *OrderExecutor {
	return &OrderExecutor{
		logger:   logger,
		exchange: exchange,
		cash:     cash,
	}
}

// OpenPosition buys the largest compliant quantity affordable with
// maxFund. Sizing rejections are reported through the result, not as
// errors, and never reach the exchange.
func (oe *OrderExecutor) OpenPosition(
	ctx context.Context,
	symbol *WatchedSymbol,
	maxFund decimal.Decimal,
	position *Position,
	roundID string,
) (*OrderResult, error) {
	result := &OrderResult{Side: BUY}

	logger := oe.logger.WithField("symbol", symbol.String())

	rejection := PrecheckOrder(maxFund, position.OpenQuantity, symbol.Rules)
	if rejection != NotRejected {
		logger.Infof("skipping buy: [%v]", rejection)
		result.Rejection = rejection
		return result, nil
	}

	price, err := oe.exchange.LatestPrice(ctx, symbol.Pair)
	if err != nil {
		return result, fmt.Errorf("could not get latest price: [%w]", err)
	}

	quantity, rejection := SizeOrder(
		maxFund,
		position.OpenQuantity,
		price,
		symbol.Rules,
	)
	if rejection != NotRejected {
		logger.Infof(
			"skipping buy: [%v]; fund: [%v], price: [%v], rules: [%v]",
			rejection,
			maxFund,
			price,
			symbol.Rules,
		)
		result.Rejection = rejection
		return result, nil
	}

	logger.Infof("buying [%v] at about [%v]", quantity, price)

	return oe.submit(
		ctx,
		result,
		&MarketOrder{Pair: symbol.Pair, Side: BUY, Quantity: quantity},
		position,
		roundID,
	)
}

// CloseAllPosition sells exactly the quantity recorded in the ledger,
// regardless of the balance the exchange reports.
func (oe *OrderExecutor) CloseAllPosition(
	ctx context.Context,
	symbol *WatchedSymbol,
	position *Position,
	roundID string,
) (*OrderResult, error) {
	result := &OrderResult{Side: SELL}

	if !position.IsOpen() {
		return result, fmt.Errorf("%w: [%v]", ErrNothingToSell, position.Asset)
	}

	oe.logger.WithField("symbol", symbol.String()).Infof(
		"selling [%v]",
		position.OpenQuantity,
	)

	return oe.submit(
		ctx,
		result,
		&MarketOrder{Pair: symbol.Pair, Side: SELL, Quantity: position.OpenQuantity},
		position,
		roundID,
	)
}

func (oe *OrderExecutor) submit(
	ctx context.Context,
	result *OrderResult,
	order *MarketOrder,
	position *Position,
	roundID string,
) (*OrderResult, error) {
	response, err := oe.exchange.SubmitMarketOrder(ctx, order)
	if err != nil {
		return result, fmt.Errorf("could not submit order [%v]: [%w]", order, err)
	}

	result.Response = response

	if !response.IsFilled() {
		oe.logger.Warningf(
			"order [%v] finished with status [%v]; applying [%v] fills",
			response.OrderID,
			response.Status,
			len(response.Fills),
		)
	}

	err = oe.applyFills(ctx, result, order, position, roundID)

	result.Ok = len(result.Transactions) > 0

	return result, err
}

// applyFills records every fill of the response. A fill whose record
// could not be persisted stays applied in memory and is still reported
// in the result; the persistence errors are joined and returned once all
// fills were processed.
func (oe *OrderExecutor) applyFills(
	ctx context.Context,
	result *OrderResult,
	order *MarketOrder,
	position *Position,
	roundID string,
) error {
	response := result.Response

	var closedTradeIDs []string
	if order.Side == SELL {
		closedTradeIDs = position.OpenTradeIDs()
	}

	commissionPrices := make(map[Asset]decimal.Decimal)

	var errs []error

	for _, fill := range response.Fills {
		tx := Transaction{
			Time:             response.TransactTime,
			Activity:         order.Side,
			Symbol:           position.Asset,
			TradeSymbol:      response.Symbol,
			Quantity:         fill.Quantity,
			Price:            fill.Price,
			Commission:       fill.Commission,
			CommissionAsset:  fill.CommissionAsset,
			CommissionAsCash: oe.commissionAsCash(ctx, fill, commissionPrices),
			RoundID:          roundID,
			OrderID:          response.OrderID,
			TradeID:          fill.TradeID,
			ClosedTradeIDs:   closedTradeIDs,
		}

		err := position.AddTransaction(tx)
		if err != nil {
			oe.logger.Errorf(
				"could not record fill [%v] of order [%v]: [%v]; fill: [%v]",
				fill.TradeID,
				response.OrderID,
				err,
				tx,
			)
			errs = append(errs, fmt.Errorf("could not record fill [%v]: [%w]", fill.TradeID, err))

			if !errors.Is(err, ErrPersistence) {
				continue
			}
		}

		result.Transactions = append(result.Transactions, tx)

		oe.logger.Infof("recorded [%v]", tx)
	}

	return errors.Join(errs...)
}

// commissionAsCash converts the fill commission to the cash currency.
// Prices are cached in the given map for the lifetime of one order.
func (oe *OrderExecutor) commissionAsCash(
	ctx context.Context,
	fill *OrderFill,
	prices map[Asset]decimal.Decimal,
) decimal.Decimal {
	if fill.CommissionAsset == oe.cash || fill.Commission.IsZero() {
		return fill.Commission
	}

	price, ok := prices[fill.CommissionAsset]
	if !ok {
		var err error
		price, err = oe.exchange.LatestPrice(
			ctx,
			Pair{Base: fill.CommissionAsset, Quote: oe.cash},
		)
		if err != nil {
			// The fill happened anyway, so it is recorded without the
			// cash equivalent of its commission.
			oe.logger.Warningf(
				"could not get price of commission asset [%v]: [%v]",
				fill.CommissionAsset,
				err,
			)
			return decimal.Zero
		}

		prices[fill.CommissionAsset] = price
	}

	return fill.Commission.Mul(price)
}
