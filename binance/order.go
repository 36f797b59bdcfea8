package binance

import (
	"context"
	"errors"
	"fmt"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/lukasz-zimnoch/dexly/spot"
	"strconv"
)

func (es *ExchangeService) SubmitMarketOrder(
	ctx context.Context,
	order *spot.MarketOrder,
) (*spot.OrderResponse, error) {
	requestCtx, cancelRequestCtx := withRequestTimeout(ctx)
	defer cancelRequestCtx()

	response, err := es.client.NewCreateOrderService().
		Symbol(order.Pair.String()).
		Side(binance.SideType(order.Side.String())).
		Type(binance.OrderTypeMarket).
		Quantity(order.Quantity.String()).
		// FULL responses carry the fills the ledger is built from.
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(requestCtx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf(
				"order rejected with code [%v]: [%v]",
				apiErr.Code,
				apiErr.Message,
			)
		}

		return nil, err
	}

	return parseOrderResponse(response)
}

func parseOrderResponse(
	response *binance.CreateOrderResponse,
) (*spot.OrderResponse, error) {
	side, err := spot.ParseActivity(string(response.Side))
	if err != nil {
		return nil, err
	}

	fills := make([]*spot.OrderFill, 0, len(response.Fills))

	for _, fill := range response.Fills {
		price, err := parseDecimal("fill price", fill.Price)
		if err != nil {
			return nil, err
		}

		quantity, err := parseDecimal("fill quantity", fill.Quantity)
		if err != nil {
			return nil, err
		}

		commission, err := parseDecimal("fill commission", fill.Commission)
		if err != nil {
			return nil, err
		}

		fills = append(fills, &spot.OrderFill{
			TradeID:         strconv.FormatInt(fill.TradeID, 10),
			Price:           price,
			Quantity:        quantity,
			Commission:      commission,
			CommissionAsset: spot.Asset(fill.CommissionAsset),
		})
	}

	return &spot.OrderResponse{
		Symbol:       spot.PairSymbol(response.Symbol),
		OrderID:      strconv.FormatInt(response.OrderID, 10),
		Status:       string(response.Status),
		Side:         side,
		TransactTime: response.TransactTime,
		Fills:        fills,
	}, nil
}
