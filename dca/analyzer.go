package dca

import (
	"github.com/lukasz-zimnoch/dexly/spot"
	"sync"
	"time"
)

// Analyzer implements dollar cost averaging: it emits its decision for
// an asset whenever the configured interval elapsed since the last
// executed order of the same side. Orders recorded since startup take
// precedence over the transaction history kept in the ledger.
type Analyzer struct {
	logger   spot.Logger
	side     spot.Activity
	interval time.Duration
	now      func() time.Time

	lastTradesMutex sync.Mutex
	lastTrades      map[spot.Asset]time.Time
}

// NewBuyAnalyzer buys every asset once per interval regardless of price.
func NewBuyAnalyzer(logger spot.Logger, interval time.Duration) *Analyzer {
	return newAnalyzer(logger, spot.BUY, interval)
}

// NewSellAnalyzer sells every held asset once per interval.
func NewSellAnalyzer(logger spot.Logger, interval time.Duration) *Analyzer {
	return newAnalyzer(logger, spot.SELL, interval)
}

func newAnalyzer(
	logger spot.Logger,
	side spot.Activity,
	interval time.Duration,
) *Analyzer {
	return &Analyzer{
		logger:     logger,
		side:       side,
		interval:   interval,
		now:        time.Now,
		lastTrades: make(map[spot.Asset]time.Time),
	}
}

func (a *Analyzer) Analyze(
	_ []*spot.Candle,
	position *spot.Position,
) spot.Decision {
	if a.side == spot.SELL && !position.IsOpen() {
		return spot.DecisionPass
	}

	a.lastTradesMutex.Lock()
	lastTrade, ok := a.lastTrades[position.Asset]
	a.lastTradesMutex.Unlock()

	if !ok {
		var millis int64
		if millis, ok = position.LastActivityTime(a.side); ok {
			lastTrade = time.UnixMilli(millis)
		}
	}

	if ok {
		if remaining := a.interval - a.now().Sub(lastTrade); remaining > 0 {
			a.logger.Debugf(
				"[%v] %v not due for another [%v]",
				position.Asset,
				a.side,
				remaining.Round(time.Second),
			)
			return spot.DecisionPass
		}
	}

	if a.side == spot.BUY {
		return spot.DecisionBuy
	}

	return spot.DecisionSell
}

func (a *Analyzer) RecordTrade(
	asset spot.Asset,
	activity spot.Activity,
	at time.Time,
) {
	if activity != a.side {
		return
	}

	a.lastTradesMutex.Lock()
	a.lastTrades[asset] = at
	a.lastTradesMutex.Unlock()

	a.logger.Infof("recorded [%v] of [%v] at [%v]", activity, asset, at.Format(time.RFC3339))
}
