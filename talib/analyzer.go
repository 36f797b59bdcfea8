package talib

import (
	"github.com/lukasz-zimnoch/dexly/spot"
	talib "github.com/markcheno/go-talib"
)

// OscillatorConfig configures a bounded momentum oscillator. A reading at
// or above Overbought is a sell signal, at or below Oversold a buy one.
type OscillatorConfig struct {
	Period     int
	Overbought float64
	Oversold   float64
}

type RSIAnalyzer struct {
	logger spot.Logger
	config *OscillatorConfig
}

func NewRSIAnalyzer(logger spot.Logger, config *OscillatorConfig) *RSIAnalyzer {
	return &RSIAnalyzer{logger, config}
}

func (ra *RSIAnalyzer) Analyze(
	candles []*spot.Candle,
	_ *spot.Position,
) spot.Decision {
	if len(candles) <= ra.config.Period {
		return spot.DecisionPass
	}

	rsi := talib.Rsi(closes(candles), ra.config.Period)
	last := rsi[len(rsi)-1]

	ra.logger.Debugf("rsi(%v): %.2f", ra.config.Period, last)

	switch {
	case last >= ra.config.Overbought:
		return spot.DecisionSell
	case last <= ra.config.Oversold:
		return spot.DecisionBuy
	default:
		return spot.DecisionPass
	}
}

// WILLRAnalyzer trades on Williams %R, which ranges from -100 to 0.
// It only sells positions it holds.
type WILLRAnalyzer struct {
	logger spot.Logger
	config *OscillatorConfig
}

func NewWILLRAnalyzer(logger spot.Logger, config *OscillatorConfig) *WILLRAnalyzer {
	return &WILLRAnalyzer{logger, config}
}

func (wa *WILLRAnalyzer) Analyze(
	candles []*spot.Candle,
	position *spot.Position,
) spot.Decision {
	if len(candles) < wa.config.Period {
		return spot.DecisionPass
	}

	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, candle := range candles {
		highs[i] = candle.MaxPrice.InexactFloat64()
		lows[i] = candle.MinPrice.InexactFloat64()
	}

	willr := talib.WillR(highs, lows, closes(candles), wa.config.Period)
	last := willr[len(willr)-1]

	wa.logger.Debugf("willr(%v): %.2f", wa.config.Period, last)

	switch {
	case last >= wa.config.Overbought && position.IsOpen():
		return spot.DecisionSell
	case last <= wa.config.Oversold:
		return spot.DecisionBuy
	default:
		return spot.DecisionPass
	}
}

func closes(candles []*spot.Candle) []float64 {
	values := make([]float64, len(candles))
	for i, candle := range candles {
		values[i] = candle.ClosePrice.InexactFloat64()
	}

	return values
}
