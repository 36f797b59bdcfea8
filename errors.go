package spot

import "errors"

var (
	ErrUnknownActivity            = errors.New("unknown activity")
	ErrDivisionUndefined          = errors.New("average cost of empty position is undefined")
	ErrInsufficientLedgerQuantity = errors.New("quantity exceeds recorded open quantity")
	ErrPersistence                = errors.New("could not persist position")
	ErrNothingToSell              = errors.New("nothing to sell")
	ErrSymbolNotFound             = errors.New("symbol not found")
)
