package pretty

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lukasz-zimnoch/dexly/spot"
)

// PositionsTable renders the ledger positions, one row per asset.
func PositionsTable(ledger *spot.Ledger) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		"Asset",
		"Open Qty",
		"Open Cost",
		"Avg Cost",
		"Realized",
		"Commission",
		"Txs",
	})

	for _, position := range ledger.Positions() {
		averageCost := "-"
		if value, err := position.AverageCost(); err == nil {
			averageCost = value.StringFixed(8)
		}

		t.AppendRow(table.Row{
			position.Asset,
			position.OpenQuantity.StringFixed(8),
			position.OpenCost.StringFixed(4),
			averageCost,
			position.RealizedGain.StringFixed(4),
			position.TotalCommissionPaid.StringFixed(4),
			position.TransactionsCount(),
		})
	}

	t.AppendFooter(table.Row{
		"Total",
		"",
		ledger.TotalOpenCost().StringFixed(4),
		"",
		"",
		ledger.TotalCommission().StringFixed(4),
		ledger.TotalTransactionsCount(),
	})

	return t.Render()
}

// PnLTable renders the valued open positions of a portfolio snapshot.
func PnLTable(pnl *spot.PortfolioPnL) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("P/L " + pnl.Time.Format("2006-01-02 15:04-0700"))
	t.AppendHeader(table.Row{
		"Asset",
		"Qty",
		"Avg Price",
		"Mark Price",
		"Cost",
		"Value",
		"UPnL",
		"%",
	})

	for _, asset := range pnl.Assets {
		t.AppendRow(table.Row{
			asset.Asset,
			asset.Quantity.StringFixed(8),
			asset.AveragePrice.StringFixed(2),
			asset.MarkPrice.StringFixed(2),
			asset.Cost.StringFixed(4),
			asset.MarketValue.StringFixed(4),
			asset.UnrealizedPnL.StringFixed(4),
			asset.ReturnPercentage.StringFixed(2),
		})
	}

	t.AppendFooter(table.Row{
		pnl.CashCurrency,
		"",
		"",
		"realized " + pnl.RealizedPnL.StringFixed(2),
		pnl.Cost.StringFixed(4),
		pnl.MarketValue.StringFixed(4),
		pnl.UnrealizedPnL.StringFixed(4),
		pnl.NetPnLPercentage.StringFixed(2),
	})

	return t.Render()
}

// BalancesTable renders the exchange account balances sorted by asset.
func BalancesTable(balances spot.Balances) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Asset", "Free", "Locked"})

	for _, asset := range balances.Assets() {
		balance := balances[asset]
		t.AppendRow(table.Row{
			asset,
			balance.Free.String(),
			balance.Locked.String(),
		})
	}

	return t.Render()
}
