package spot

import (
	"fmt"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"sort"
	"time"
)

const (
	persistAttempts   = 5
	persistMinBackoff = 100 * time.Millisecond
	persistMaxBackoff = 3 * time.Second
)

// Ledger owns the positions of all tracked assets and writes every
// mutation through to the repository. It is meant to be mutated by a
// single goroutine.
type Ledger struct {
	logger     Logger
	repository PositionRepository
	cash       Asset
	positions  map[Asset]*Position
	retry      func() *backoff.Backoff
}

// LoadLedger restores the positions of the cash asset and every watched
// asset. A missing record yields an empty position.
func LoadLedger(
	logger Logger,
	repository PositionRepository,
	cash Asset,
	watched []Asset,
) (*Ledger, error) {
	ledger := &Ledger{
		logger:     logger,
		repository: repository,
		cash:       cash,
		positions:  make(map[Asset]*Position),
		retry: func() *backoff.Backoff {
			return &backoff.Backoff{
				Min:    persistMinBackoff,
				Max:    persistMaxBackoff,
				Factor: 2,
				Jitter: true,
			}
		},
	}

	for _, asset := range append([]Asset{cash}, watched...) {
		if _, ok := ledger.positions[asset]; ok {
			continue
		}

		position, err := repository.Position(asset)
		if err != nil {
			return nil, fmt.Errorf(
				"could not load position of [%v]: [%w]",
				asset,
				err,
			)
		}

		if position == nil {
			logger.Debugf("no record of [%v]; starting empty position", asset)
			position = NewPosition(asset)
		} else {
			logger.Debugf("restored position [%v]", position)
		}

		ledger.attach(position)
	}

	return ledger, nil
}

func (l *Ledger) attach(position *Position) {
	position.onUpdate = l.persist
	l.positions[position.Asset] = position
}

func (l *Ledger) persist(asset Asset) error {
	position, ok := l.positions[asset]
	if !ok {
		return fmt.Errorf("%w: [%v]", ErrSymbolNotFound, asset)
	}

	retry := l.retry()

	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = l.repository.SavePosition(position); err == nil {
			return nil
		}

		l.logger.Errorf(
			"could not save position [%v] (attempt %v/%v): [%v]",
			asset,
			attempt,
			persistAttempts,
			err,
		)

		if attempt < persistAttempts {
			time.Sleep(retry.Duration())
		}
	}

	return err
}

// Position returns the position of the asset, creating an empty one on
// first reference.
func (l *Ledger) Position(asset Asset) *Position {
	if position, ok := l.positions[asset]; ok {
		return position
	}

	position := NewPosition(asset)
	l.attach(position)

	return position
}

func (l *Ledger) CashAsset() Asset {
	return l.cash
}

// Positions returns all positions ordered by asset.
func (l *Ledger) Positions() []*Position {
	positions := make([]*Position, 0, len(l.positions))
	for _, position := range l.positions {
		positions = append(positions, position)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Asset < positions[j].Asset
	})

	return positions
}

// OpenPositions returns the non-cash positions holding a positive
// quantity, ordered by asset.
func (l *Ledger) OpenPositions() []*Position {
	open := make([]*Position, 0)

	for _, position := range l.Positions() {
		if position.Asset != l.cash && position.IsOpen() {
			open = append(open, position)
		}
	}

	return open
}

func (l *Ledger) TotalOpenPositionCount() int {
	return len(l.OpenPositions())
}

func (l *Ledger) TotalOpenCost() decimal.Decimal {
	total := decimal.Zero

	for _, position := range l.positions {
		if position.OpenCost.IsPositive() {
			total = total.Add(position.OpenCost)
		}
	}

	return total
}

func (l *Ledger) TotalCommission() decimal.Decimal {
	total := decimal.Zero

	for _, position := range l.positions {
		total = total.Add(position.TotalCommissionPaid)
	}

	return total
}

func (l *Ledger) TotalTransactionsCount() int {
	total := 0

	for _, position := range l.positions {
		total += position.TransactionsCount()
	}

	return total
}
