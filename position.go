package spot

import (
	"fmt"
	"github.com/shopspring/decimal"
)

// PositionRepository stores one durable record per asset.
type PositionRepository interface {
	// Position returns the stored position of the given asset or nil
	// if no record exists yet.
	Position(asset Asset) (*Position, error)

	SavePosition(position *Position) error
}

// Position is the cost-basis ledger entry of a single asset.
type Position struct {
	Asset               Asset
	OpenQuantity        decimal.Decimal
	OpenCost            decimal.Decimal
	RealizedGain        decimal.Decimal
	TotalCommissionPaid decimal.Decimal
	Transactions        []Transaction

	onUpdate func(asset Asset) error
}

func NewPosition(asset Asset) *Position {
	return &Position{
		Asset:               asset,
		OpenQuantity:        decimal.Zero,
		OpenCost:            decimal.Zero,
		RealizedGain:        decimal.Zero,
		TotalCommissionPaid: decimal.Zero,
	}
}

// AddTransaction folds the fill into the ledger entry and persists the
// entry synchronously. Validation errors leave the entry untouched.
// A persistence error is returned wrapped in ErrPersistence after the
// in-memory state has already been updated.
func (p *Position) AddTransaction(tx Transaction) error {
	switch tx.Activity {
	case BUY:
		quantity := tx.Quantity
		if tx.CommissionAsset == p.Asset {
			quantity = quantity.Sub(tx.Commission)
		}

		p.OpenQuantity = p.OpenQuantity.Add(quantity)
		p.OpenCost = p.OpenCost.Add(tx.Notional())
	case SELL:
		averageCost, err := p.AverageCost()
		if err != nil {
			return err
		}

		if tx.Quantity.GreaterThan(p.OpenQuantity) {
			return fmt.Errorf(
				"%w: sell [%v], open [%v]",
				ErrInsufficientLedgerQuantity,
				tx.Quantity,
				p.OpenQuantity,
			)
		}

		costRemoved := tx.Quantity.Div(p.OpenQuantity).Mul(p.OpenCost)
		if tx.Quantity.Equal(p.OpenQuantity) {
			costRemoved = p.OpenCost
		}

		p.RealizedGain = p.RealizedGain.Add(
			tx.Price.Sub(averageCost).Mul(tx.Quantity),
		)
		p.OpenQuantity = p.OpenQuantity.Sub(tx.Quantity)
		p.OpenCost = p.OpenCost.Sub(costRemoved)
	default:
		return fmt.Errorf("%w: [%d]", ErrUnknownActivity, int(tx.Activity))
	}

	p.TotalCommissionPaid = p.TotalCommissionPaid.Add(tx.CommissionAsCash)
	p.Transactions = append(p.Transactions, tx)

	if p.onUpdate != nil {
		if err := p.onUpdate(p.Asset); err != nil {
			return fmt.Errorf("%w [%v]: [%v]", ErrPersistence, p.Asset, err)
		}
	}

	return nil
}

// AverageCost returns OpenCost / OpenQuantity. It fails with
// ErrDivisionUndefined when nothing is held.
func (p *Position) AverageCost() (decimal.Decimal, error) {
	if !p.OpenQuantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: [%v]", ErrDivisionUndefined, p.Asset)
	}

	return p.OpenCost.Div(p.OpenQuantity), nil
}

// Snapshot returns a deep copy of the position detached from the ledger.
func (p *Position) Snapshot() *Position {
	snapshot := &Position{
		Asset:               p.Asset,
		OpenQuantity:        p.OpenQuantity,
		OpenCost:            p.OpenCost,
		RealizedGain:        p.RealizedGain,
		TotalCommissionPaid: p.TotalCommissionPaid,
		Transactions:        make([]Transaction, len(p.Transactions)),
	}

	for i, tx := range p.Transactions {
		if tx.ClosedTradeIDs != nil {
			tx.ClosedTradeIDs = append([]string(nil), tx.ClosedTradeIDs...)
		}
		snapshot.Transactions[i] = tx
	}

	return snapshot
}

func (p *Position) IsOpen() bool {
	return p.OpenQuantity.IsPositive()
}

func (p *Position) TransactionsCount() int {
	return len(p.Transactions)
}

// OpenTradeIDs returns the trade ids of the buys made since the
// position was last fully closed.
func (p *Position) OpenTradeIDs() []string {
	ids := make([]string, 0)

	for _, tx := range p.Transactions {
		switch tx.Activity {
		case BUY:
			ids = append(ids, tx.TradeID)
		case SELL:
			ids = ids[:0]
		}
	}

	return ids
}

// LastActivityTime returns the time of the newest transaction with the
// given activity.
func (p *Position) LastActivityTime(activity Activity) (int64, bool) {
	for i := len(p.Transactions) - 1; i >= 0; i-- {
		if p.Transactions[i].Activity == activity {
			return p.Transactions[i].Time, true
		}
	}

	return 0, false
}

func (p *Position) String() string {
	if p.IsOpen() {
		return fmt.Sprintf(
			"%v: %v @ %v, realized = %v",
			p.Asset,
			p.OpenQuantity,
			p.OpenCost,
			p.RealizedGain,
		)
	}

	return fmt.Sprintf("%v: no position, realized = %v", p.Asset, p.RealizedGain)
}
