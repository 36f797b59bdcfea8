package spot

import (
	"fmt"
	"github.com/shopspring/decimal"
	"time"
)

const (
	DefaultCandleInterval = "15m"
	DefaultCandleCount    = 100
)

type Candle struct {
	OpenTime   time.Time
	CloseTime  time.Time
	OpenPrice  decimal.Decimal
	ClosePrice decimal.Decimal
	MaxPrice   decimal.Decimal
	MinPrice   decimal.Decimal
	Volume     decimal.Decimal
	TradeCount uint
}

func (c *Candle) Equal(other *Candle) bool {
	return c.OpenTime.Equal(other.OpenTime) &&
		c.CloseTime.Equal(other.CloseTime)
}

func (c *Candle) String() string {
	return fmt.Sprintf(
		"time: %v, price: %v",
		c.OpenTime.Format(time.RFC3339),
		c.ClosePrice,
	)
}

type CandleFilter struct {
	Pair     Pair
	Interval string
	Count    int
}

// LastClosePrice returns the close price of the most recent candle.
func LastClosePrice(candles []*Candle) (decimal.Decimal, bool) {
	if len(candles) == 0 {
		return decimal.Zero, false
	}

	return candles[len(candles)-1].ClosePrice, true
}
