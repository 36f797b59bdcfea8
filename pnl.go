package spot

import (
	"fmt"
	"github.com/shopspring/decimal"
	"strings"
	"time"
)

var hundred = decimal.NewFromInt(100)

type AssetPnL struct {
	Asset            Asset
	Quantity         decimal.Decimal
	AveragePrice     decimal.Decimal
	MarkPrice        decimal.Decimal
	Cost             decimal.Decimal
	MarketValue      decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	ReturnPercentage decimal.Decimal
}

type PortfolioPnL struct {
	Time                    time.Time
	CashCurrency            Asset
	Cost                    decimal.Decimal
	MarketValue             decimal.Decimal
	UnrealizedPnL           decimal.Decimal
	UnrealizedPnLPercentage decimal.Decimal
	RealizedPnL             decimal.Decimal
	NetPnL                  decimal.Decimal
	NetPnLPercentage        decimal.Decimal
	Assets                  []*AssetPnL
}

// PortfolioPnL values every open position at the given market prices.
// Realized gain is only summed over the assets that are still open.
func (l *Ledger) PortfolioPnL(prices map[Asset]decimal.Decimal) *PortfolioPnL {
	pnl := &PortfolioPnL{
		Time:          time.Now().UTC(),
		CashCurrency:  l.cash,
		Cost:          decimal.Zero,
		MarketValue:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Assets:        make([]*AssetPnL, 0),
	}

	for _, position := range l.OpenPositions() {
		price, ok := prices[position.Asset]
		if !ok {
			l.logger.Warningf(
				"no market price of [%v]; skipping it in portfolio P&L",
				position.Asset,
			)
			continue
		}

		averagePrice, err := position.AverageCost()
		if err != nil {
			l.logger.Warningf("skipping [%v] in portfolio P&L: [%v]", position.Asset, err)
			continue
		}

		marketValue := position.OpenQuantity.Mul(price)
		unrealized := marketValue.Sub(position.OpenCost)

		pnl.Cost = pnl.Cost.Add(position.OpenCost)
		pnl.MarketValue = pnl.MarketValue.Add(marketValue)
		pnl.UnrealizedPnL = pnl.UnrealizedPnL.Add(unrealized)
		pnl.RealizedPnL = pnl.RealizedPnL.Add(position.RealizedGain)

		pnl.Assets = append(pnl.Assets, &AssetPnL{
			Asset:            position.Asset,
			Quantity:         position.OpenQuantity,
			AveragePrice:     averagePrice,
			MarkPrice:        price,
			Cost:             position.OpenCost,
			MarketValue:      marketValue,
			UnrealizedPnL:    unrealized,
			ReturnPercentage: percentage(unrealized, position.OpenCost),
		})
	}

	pnl.NetPnL = pnl.RealizedPnL.Add(pnl.UnrealizedPnL)
	pnl.UnrealizedPnLPercentage = percentage(pnl.UnrealizedPnL, pnl.Cost)
	pnl.NetPnLPercentage = percentage(pnl.NetPnL, pnl.Cost)

	return pnl
}

func percentage(value, base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}

	return value.Div(base).Mul(hundred)
}

func signed(value decimal.Decimal, places int32) string {
	if value.IsNegative() {
		return value.StringFixed(places)
	}

	return "+" + value.StringFixed(places)
}

// Message renders the snapshot as a plain text notification.
func (pnl *PortfolioPnL) Message(account string) string {
	ccy := pnl.CashCurrency
	separator := strings.Repeat("-", 50)

	lines := []string{
		separator,
		fmt.Sprintf(
			"P/L SNAPSHOT %v | Account: %v | Base: %v | Pricing: Mark",
			pnl.Time.Format("2006-01-02 15:04-0700"),
			account,
			ccy,
		),
		"",
		fmt.Sprintf(
			"Total Cost: %v %v | Market Value: %v %v",
			pnl.Cost.StringFixed(2), ccy,
			pnl.MarketValue.StringFixed(2), ccy,
		),
		fmt.Sprintf(
			"Unrealized PnL: %v %v (%v%%)",
			signed(pnl.UnrealizedPnL, 2), ccy,
			signed(pnl.UnrealizedPnLPercentage, 2),
		),
		fmt.Sprintf("Realized PnL: %v %v", signed(pnl.RealizedPnL, 2), ccy),
		fmt.Sprintf(
			"Net PnL: %v %v (%v%%)",
			signed(pnl.NetPnL, 2), ccy,
			signed(pnl.NetPnLPercentage, 2),
		),
		"",
	}

	for _, asset := range pnl.Assets {
		lines = append(
			lines,
			fmt.Sprintf("%v | Qty: %v", asset.Asset, asset.Quantity.StringFixed(8)),
			fmt.Sprintf("Avg Price: %v %v", asset.AveragePrice.StringFixed(2), ccy),
			fmt.Sprintf("Mark Price: %v %v", asset.MarkPrice.StringFixed(2), ccy),
			fmt.Sprintf("Cost: %v %v", asset.Cost.StringFixed(4), ccy),
			fmt.Sprintf("Market Value: %v %v", asset.MarketValue.StringFixed(4), ccy),
			fmt.Sprintf(
				"UPnL: %v %v (%v%%)",
				signed(asset.UnrealizedPnL, 4), ccy,
				signed(asset.ReturnPercentage, 2),
			),
			"",
		)
	}

	lines = append(lines, separator)

	return strings.Join(lines, "\n")
}
