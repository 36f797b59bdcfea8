package inmem

import (
	"github.com/lukasz-zimnoch/dexly/spot"
	"sync"
)

// CandleRepository keeps a sliding window of the most recent candles per
// key. A saved candle with the same open and close time as the newest
// one replaces its values, so the still-forming candle gets updated in
// place.
type CandleRepository struct {
	candlesMutex sync.RWMutex
	candles      map[string][]*spot.Candle

	windowSize int
}

func NewCandleRepository(windowSize int) *CandleRepository {
	return &CandleRepository{
		candles:    make(map[string][]*spot.Candle),
		windowSize: windowSize,
	}
}

func (cr *CandleRepository) SaveCandles(key string, candles ...*spot.Candle) {
	cr.candlesMutex.Lock()
	defer cr.candlesMutex.Unlock()

	window := cr.candles[key]

	for _, candle := range candles {
		var lastCandle *spot.Candle
		if len(window) > 0 {
			lastCandle = window[len(window)-1]
		}

		if lastCandle != nil && lastCandle.Equal(candle) {
			lastCandle.OpenPrice = candle.OpenPrice
			lastCandle.ClosePrice = candle.ClosePrice
			lastCandle.MaxPrice = candle.MaxPrice
			lastCandle.MinPrice = candle.MinPrice
			lastCandle.Volume = candle.Volume
			lastCandle.TradeCount = candle.TradeCount
			continue
		}

		// candles older than the newest one are stale
		if lastCandle != nil && !candle.OpenTime.After(lastCandle.OpenTime) {
			continue
		}

		copied := *candle
		window = append(window, &copied)

		if len(window) > cr.windowSize {
			copy(window, window[1:])
			window[len(window)-1] = nil
			window = window[:len(window)-1]
		}
	}

	cr.candles[key] = window
}

func (cr *CandleRepository) Candles(key string) []*spot.Candle {
	cr.candlesMutex.RLock()
	defer cr.candlesMutex.RUnlock()

	window := cr.candles[key]

	snapshot := make([]*spot.Candle, len(window))
	for i, candle := range window {
		copied := *candle
		snapshot[i] = &copied
	}

	return snapshot
}

func (cr *CandleRepository) DeleteCandles(key string) {
	cr.candlesMutex.Lock()
	defer cr.candlesMutex.Unlock()

	delete(cr.candles, key)
}
