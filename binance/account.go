package binance

import (
	"context"
	"github.com/lukasz-zimnoch/dexly/spot"
)

func (es *ExchangeService) AccountBalances(
	ctx context.Context,
) (spot.Balances, error) {
	requestCtx, cancelRequestCtx := withRequestTimeout(ctx)
	defer cancelRequestCtx()

	account, err := es.client.NewGetAccountService().Do(requestCtx)
	if err != nil {
		return nil, err
	}

	balances := make(spot.Balances)

	for _, balance := range account.Balances {
		free, err := parseDecimal("free balance", balance.Free)
		if err != nil {
			return nil, err
		}

		locked, err := parseDecimal("locked balance", balance.Locked)
		if err != nil {
			return nil, err
		}

		if free.IsZero() && locked.IsZero() {
			continue
		}

		balances[spot.Asset(balance.Asset)] = &spot.Balance{
			Free:   free,
			Locked: locked,
		}
	}

	return balances, nil
}
