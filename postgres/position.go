package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"github.com/jackc/pgtype"
	"github.com/lukasz-zimnoch/dexly/spot"
	"time"
)

type PositionRepository struct {
	client *Client
}

func NewPositionRepository(client *Client) *PositionRepository {
	return &PositionRepository{client}
}

func (pr *PositionRepository) Position(asset spot.Asset) (*spot.Position, error) {
	var row positionRow

	err := pr.client.instance().Get(
		&row,
		`SELECT asset, open_quantity, open_cost, realized_gain,
       		total_commission_paid, updated_at
		FROM position WHERE asset = $1`,
		string(asset),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf(
			"could not execute query for position [%v]: [%v]",
			asset,
			err,
		)
	}

	position, err := row.unwrap()
	if err != nil {
		return nil, fmt.Errorf(
			"could not convert position [%v] from pg row: [%v]",
			asset,
			err,
		)
	}

	var transactionRows []*transactionRow

	err = pr.client.instance().Select(
		&transactionRows,
		`SELECT asset, sequence, time, activity, trade_symbol, quantity,
       		price, commission, commission_asset, commission_as_cash,
       		round_id, order_id, trade_id, closed_trade_ids
		FROM position_transaction WHERE asset = $1
		ORDER BY sequence ASC`,
		string(asset),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not execute query for transactions of [%v]: [%v]",
			asset,
			err,
		)
	}

	for _, transactionRow := range transactionRows {
		transaction, err := transactionRow.unwrap()
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert transaction [%v/%v] from pg row: [%v]",
				asset,
				transactionRow.Sequence,
				err,
			)
		}

		position.Transactions = append(position.Transactions, transaction)
	}

	return position, nil
}

// SavePosition upserts the position totals and appends the transactions
// which are not stored yet, in a single database transaction.
func (pr *PositionRepository) SavePosition(position *spot.Position) error {
	row, err := new(positionRow).wrap(position)
	if err != nil {
		return fmt.Errorf(
			"could not convert position [%v] to pg row: [%v]",
			position.Asset,
			err,
		)
	}

	dbTx, err := pr.client.instance().Beginx()
	if err != nil {
		return fmt.Errorf("could not begin transaction: [%v]", err)
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	_, err = dbTx.NamedExec(
		`INSERT INTO position (asset, open_quantity, open_cost, realized_gain,
        	total_commission_paid, updated_at)
		VALUES (:asset, :open_quantity, :open_cost, :realized_gain,
			:total_commission_paid, :updated_at)
		ON CONFLICT (asset) DO UPDATE SET
			open_quantity = EXCLUDED.open_quantity,
			open_cost = EXCLUDED.open_cost,
			realized_gain = EXCLUDED.realized_gain,
			total_commission_paid = EXCLUDED.total_commission_paid,
			updated_at = EXCLUDED.updated_at`,
		row,
	)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for position [%v]: [%v]",
			position.Asset,
			err,
		)
	}

	var storedCount int
	err = dbTx.Get(
		&storedCount,
		`SELECT COUNT(*) FROM position_transaction WHERE asset = $1`,
		string(position.Asset),
	)
	if err != nil {
		return fmt.Errorf(
			"could not count transactions of [%v]: [%v]",
			position.Asset,
			err,
		)
	}

	for sequence := storedCount; sequence < len(position.Transactions); sequence++ {
		transactionRow, err := new(transactionRow).wrap(
			position.Asset,
			sequence,
			position.Transactions[sequence],
		)
		if err != nil {
			return fmt.Errorf(
				"could not convert transaction [%v/%v] to pg row: [%v]",
				position.Asset,
				sequence,
				err,
			)
		}

		_, err = dbTx.NamedExec(
			`INSERT INTO position_transaction (asset, sequence, time,
				activity, trade_symbol, quantity, price, commission,
				commission_asset, commission_as_cash, round_id, order_id,
				trade_id, closed_trade_ids)
			VALUES (:asset, :sequence, :time, :activity, :trade_symbol,
				:quantity, :price, :commission, :commission_asset,
				:commission_as_cash, :round_id, :order_id, :trade_id,
				:closed_trade_ids)`,
			transactionRow,
		)
		if err != nil {
			return fmt.Errorf(
				"could not execute command for transaction [%v/%v]: [%v]",
				position.Asset,
				sequence,
				err,
			)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: [%v]", err)
	}

	return nil
}

type positionRow struct {
	Asset               string
	OpenQuantity        pgtype.Numeric `db:"open_quantity"`
	OpenCost            pgtype.Numeric `db:"open_cost"`
	RealizedGain        pgtype.Numeric `db:"realized_gain"`
	TotalCommissionPaid pgtype.Numeric `db:"total_commission_paid"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (pr *positionRow) wrap(position *spot.Position) (*positionRow, error) {
	var err error

	if pr.OpenQuantity, err = decimalToNumeric(position.OpenQuantity); err != nil {
		return nil, err
	}

	if pr.OpenCost, err = decimalToNumeric(position.OpenCost); err != nil {
		return nil, err
	}

	if pr.RealizedGain, err = decimalToNumeric(position.RealizedGain); err != nil {
		return nil, err
	}

	if pr.TotalCommissionPaid, err = decimalToNumeric(position.TotalCommissionPaid); err != nil {
		return nil, err
	}

	pr.Asset = string(position.Asset)
	pr.UpdatedAt = time.Now().UTC()

	return pr, nil
}

func (pr *positionRow) unwrap() (*spot.Position, error) {
	position := spot.NewPosition(spot.Asset(pr.Asset))

	var err error

	if position.OpenQuantity, err = numericToDecimal(pr.OpenQuantity); err != nil {
		return nil, err
	}

	if position.OpenCost, err = numericToDecimal(pr.OpenCost); err != nil {
		return nil, err
	}

	if position.RealizedGain, err = numericToDecimal(pr.RealizedGain); err != nil {
		return nil, err
	}

	if position.TotalCommissionPaid, err = numericToDecimal(pr.TotalCommissionPaid); err != nil {
		return nil, err
	}

	return position, nil
}

type transactionRow struct {
	Asset            string
	Sequence         int
	Time             int64
	Activity         string
	TradeSymbol      string           `db:"trade_symbol"`
	Quantity         pgtype.Numeric
	Price            pgtype.Numeric
	Commission       pgtype.Numeric
	CommissionAsset  string           `db:"commission_asset"`
	CommissionAsCash pgtype.Numeric   `db:"commission_as_cash"`
	RoundID          string           `db:"round_id"`
	OrderID          string           `db:"order_id"`
	TradeID          string           `db:"trade_id"`
	ClosedTradeIDs   pgtype.TextArray `db:"closed_trade_ids"`
}

func (tr *transactionRow) wrap(
	asset spot.Asset,
	sequence int,
	transaction spot.Transaction,
) (*transactionRow, error) {
	var err error

	if tr.Quantity, err = decimalToNumeric(transaction.Quantity); err != nil {
		return nil, err
	}

	if tr.Price, err = decimalToNumeric(transaction.Price); err != nil {
		return nil, err
	}

	if tr.Commission, err = decimalToNumeric(transaction.Commission); err != nil {
		return nil, err
	}

	if tr.CommissionAsCash, err = decimalToNumeric(transaction.CommissionAsCash); err != nil {
		return nil, err
	}

	closedTradeIDs := transaction.ClosedTradeIDs
	if closedTradeIDs == nil {
		closedTradeIDs = []string{}
	}

	if err := tr.ClosedTradeIDs.Set(closedTradeIDs); err != nil {
		return nil, err
	}

	tr.Asset = string(asset)
	tr.Sequence = sequence
	tr.Time = transaction.Time
	tr.Activity = transaction.Activity.String()
	tr.TradeSymbol = string(transaction.TradeSymbol)
	tr.CommissionAsset = string(transaction.CommissionAsset)
	tr.RoundID = transaction.RoundID
	tr.OrderID = transaction.OrderID
	tr.TradeID = transaction.TradeID

	return tr, nil
}

func (tr *transactionRow) unwrap() (spot.Transaction, error) {
	activity, err := spot.ParseActivity(tr.Activity)
	if err != nil {
		return spot.Transaction{}, err
	}

	transaction := spot.Transaction{
		Time:            tr.Time,
		Activity:        activity,
		Symbol:          spot.Asset(tr.Asset),
		TradeSymbol:     spot.PairSymbol(tr.TradeSymbol),
		CommissionAsset: spot.Asset(tr.CommissionAsset),
		RoundID:         tr.RoundID,
		OrderID:         tr.OrderID,
		TradeID:         tr.TradeID,
	}

	if transaction.Quantity, err = numericToDecimal(tr.Quantity); err != nil {
		return spot.Transaction{}, err
	}

	if transaction.Price, err = numericToDecimal(tr.Price); err != nil {
		return spot.Transaction{}, err
	}

	if transaction.Commission, err = numericToDecimal(tr.Commission); err != nil {
		return spot.Transaction{}, err
	}

	if transaction.CommissionAsCash, err = numericToDecimal(tr.CommissionAsCash); err != nil {
		return spot.Transaction{}, err
	}

	if len(tr.ClosedTradeIDs.Elements) > 0 {
		if err := tr.ClosedTradeIDs.AssignTo(&transaction.ClosedTradeIDs); err != nil {
			return spot.Transaction{}, err
		}
	}

	return transaction, nil
}
