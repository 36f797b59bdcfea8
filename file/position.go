package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// PositionRepository stores every position as a JSON record named after
// its asset. All numbers are written as decimal strings. Writes go
// through a temporary file followed by a rename, so a crash never leaves
// a truncated record. Only one process may use a directory at a time.
type PositionRepository struct {
	directory string
}

func NewPositionRepository(directory string) (*PositionRepository, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf(
			"could not create records directory [%v]: [%v]",
			directory,
			err,
		)
	}

	return &PositionRepository{directory}, nil
}

func (pr *PositionRepository) recordPath(asset spot.Asset) string {
	return filepath.Join(pr.directory, string(asset)+".json")
}

func (pr *PositionRepository) Position(asset spot.Asset) (*spot.Position, error) {
	content, err := os.ReadFile(pr.recordPath(asset))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("could not read record of [%v]: [%v]", asset, err)
	}

	var record positionRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("could not decode record of [%v]: [%v]", asset, err)
	}

	position, err := record.unwrap(asset)
	if err != nil {
		return nil, fmt.Errorf("could not convert record of [%v]: [%v]", asset, err)
	}

	return position, nil
}

func (pr *PositionRepository) SavePosition(position *spot.Position) error {
	content, err := json.MarshalIndent(new(positionRecord).wrap(position), "", "  ")
	if err != nil {
		return fmt.Errorf(
			"could not encode record of [%v]: [%v]",
			position.Asset,
			err,
		)
	}

	temp, err := os.CreateTemp(pr.directory, string(position.Asset)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary record: [%v]", err)
	}
	defer os.Remove(temp.Name())

	if _, err := temp.Write(content); err != nil {
		_ = temp.Close()
		return fmt.Errorf("could not write temporary record: [%v]", err)
	}

	if err := temp.Sync(); err != nil {
		_ = temp.Close()
		return fmt.Errorf("could not sync temporary record: [%v]", err)
	}

	if err := temp.Close(); err != nil {
		return fmt.Errorf("could not close temporary record: [%v]", err)
	}

	if err := os.Rename(temp.Name(), pr.recordPath(position.Asset)); err != nil {
		return fmt.Errorf(
			"could not replace record of [%v]: [%v]",
			position.Asset,
			err,
		)
	}

	return nil
}

type positionRecord struct {
	OpenQuantity        string              `json:"open_quantity"`
	OpenCost            string              `json:"open_cost"`
	RealizedGain        string              `json:"realized_gain"`
	TotalCommissionPaid string              `json:"total_commission_as_usdt"`
	Transactions        []transactionRecord `json:"transactions"`
}

type transactionRecord struct {
	Time             string   `json:"time"`
	Activity         string   `json:"activity"`
	Symbol           string   `json:"symbol"`
	TradeSymbol      string   `json:"trade_symbol"`
	Quantity         string   `json:"quantity"`
	Price            string   `json:"price"`
	Commission       string   `json:"commission"`
	CommissionAsset  string   `json:"commission_asset"`
	CommissionAsCash string   `json:"commission_as_usdt"`
	RoundID          string   `json:"round_id"`
	OrderID          string   `json:"order_id"`
	TradeID          string   `json:"trade_id"`
	ClosedTradeIDs   []string `json:"closed_trade_ids"`
}

func (pr *positionRecord) wrap(position *spot.Position) *positionRecord {
	pr.OpenQuantity = position.OpenQuantity.String()
	pr.OpenCost = position.OpenCost.String()
	pr.RealizedGain = position.RealizedGain.String()
	pr.TotalCommissionPaid = position.TotalCommissionPaid.String()
	pr.Transactions = make([]transactionRecord, len(position.Transactions))

	for i, tx := range position.Transactions {
		closedTradeIDs := tx.ClosedTradeIDs
		if closedTradeIDs == nil {
			closedTradeIDs = []string{}
		}

		pr.Transactions[i] = transactionRecord{
			Time:             strconv.FormatInt(tx.Time, 10),
			Activity:         tx.Activity.String(),
			Symbol:           string(tx.Symbol),
			TradeSymbol:      string(tx.TradeSymbol),
			Quantity:         tx.Quantity.String(),
			Price:            tx.Price.String(),
			Commission:       tx.Commission.String(),
			CommissionAsset:  string(tx.CommissionAsset),
			CommissionAsCash: tx.CommissionAsCash.String(),
			RoundID:          tx.RoundID,
			OrderID:          tx.OrderID,
			TradeID:          tx.TradeID,
			ClosedTradeIDs:   closedTradeIDs,
		}
	}

	return pr
}

func (pr *positionRecord) unwrap(asset spot.Asset) (*spot.Position, error) {
	position := spot.NewPosition(asset)

	var err error

	if position.OpenQuantity, err = parseDecimal("open_quantity", pr.OpenQuantity); err != nil {
		return nil, err
	}

	if position.OpenCost, err = parseDecimal("open_cost", pr.OpenCost); err != nil {
		return nil, err
	}

	if position.RealizedGain, err = parseDecimal("realized_gain", pr.RealizedGain); err != nil {
		return nil, err
	}

	if position.TotalCommissionPaid, err = parseDecimal(
		"total_commission_as_usdt",
		pr.TotalCommissionPaid,
	); err != nil {
		return nil, err
	}

	for i, record := range pr.Transactions {
		tx, err := record.unwrap()
		if err != nil {
			return nil, fmt.Errorf("could not convert transaction [%v]: [%v]", i, err)
		}

		position.Transactions = append(position.Transactions, tx)
	}

	return position, nil
}

func (tr *transactionRecord) unwrap() (spot.Transaction, error) {
	var (
		tx  spot.Transaction
		err error
	)

	if tx.Time, err = strconv.ParseInt(tr.Time, 10, 64); err != nil {
		return tx, fmt.Errorf("could not parse time [%v]: [%v]", tr.Time, err)
	}

	if tx.Activity, err = spot.ParseActivity(tr.Activity); err != nil {
		return tx, err
	}

	if tx.Quantity, err = parseDecimal("quantity", tr.Quantity); err != nil {
		return tx, err
	}

	if tx.Price, err = parseDecimal("price", tr.Price); err != nil {
		return tx, err
	}

	if tx.Commission, err = parseDecimal("commission", tr.Commission); err != nil {
		return tx, err
	}

	if tx.CommissionAsCash, err = parseDecimal("commission_as_usdt", tr.CommissionAsCash); err != nil {
		return tx, err
	}

	tx.Symbol = spot.Asset(tr.Symbol)
	tx.TradeSymbol = spot.PairSymbol(tr.TradeSymbol)
	tx.CommissionAsset = spot.Asset(tr.CommissionAsset)
	tx.RoundID = tr.RoundID
	tx.OrderID = tr.OrderID
	tx.TradeID = tr.TradeID

	if len(tr.ClosedTradeIDs) > 0 {
		tx.ClosedTradeIDs = tr.ClosedTradeIDs
	}

	return tx, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse %v [%v]: [%v]", field, value, err)
	}

	return parsed, nil
}
