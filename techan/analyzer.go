package techan

import (
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	techanbig "github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"strings"
)

const DefaultEMAPeriod = 50

// EMACrossAnalyzer buys when the close price crosses the EMA upwards
// and sells a held position when it crosses downwards.
type EMACrossAnalyzer struct {
	logger spot.Logger
	period int
}

func NewEMACrossAnalyzer(logger spot.Logger, period int) *EMACrossAnalyzer {
	if period <= 0 {
		period = DefaultEMAPeriod
	}

	return &EMACrossAnalyzer{
		logger: logger,
		period: period,
	}
}

func (eca *EMACrossAnalyzer) Analyze(
	candles []*spot.Candle,
	position *spot.Position,
) spot.Decision {
	// Two extra candles: the forming one and the one before the cross.
	if len(candles) < eca.period+2 {
		return spot.DecisionPass
	}

	series := techan.NewTimeSeries()

	for _, candle := range candles {
		series.AddCandle(toTechanCandle(candle))
	}

	lastIndex := series.LastIndex()
	price := techan.NewClosePriceIndicator(series)
	priceEma := techan.NewEMAIndicator(price, eca.period)

	eca.logIndicators(price, priceEma, lastIndex)

	// Check against the second to last index because the last index is not
	// yet stable as its value changes.
	stableIndex := lastIndex - 1

	if newNearCrossUpIndicatorRule(priceEma, price).IsSatisfied(stableIndex, nil) {
		return spot.DecisionBuy
	}

	if position.IsOpen() &&
		newNearCrossDownIndicatorRule(priceEma, price).IsSatisfied(stableIndex, nil) {
		return spot.DecisionSell
	}

	return spot.DecisionPass
}

func toTechanCandle(candle *spot.Candle) *techan.Candle {
	period := techan.TimePeriod{
		Start: candle.OpenTime,
		End:   candle.CloseTime,
	}

	techanCandle := techan.NewCandle(period)

	techanCandle.OpenPrice = techanbig.NewFromString(candle.OpenPrice.String())
	techanCandle.ClosePrice = techanbig.NewFromString(candle.ClosePrice.String())
	techanCandle.MaxPrice = techanbig.NewFromString(candle.MaxPrice.String())
	techanCandle.MinPrice = techanbig.NewFromString(candle.MinPrice.String())
	techanCandle.Volume = techanbig.NewFromString(candle.Volume.String())
	techanCandle.TradeCount = candle.TradeCount

	return techanCandle
}

type nearCrossRule struct {
	upper techan.Indicator
	lower techan.Indicator
	cmp   int
}

// newNearCrossUpIndicatorRule is satisfied when lower reaches or crosses
// upper from below. Unlike techan's cross rules it also fires when both
// values touch.
func newNearCrossUpIndicatorRule(
	upper, lower techan.Indicator,
) techan.Rule {
	return nearCrossRule{
		upper: upper,
		lower: lower,
		cmp:   1,
	}
}

func newNearCrossDownIndicatorRule(
	upper, lower techan.Indicator,
) techan.Rule {
	return nearCrossRule{
		upper: upper,
		lower: lower,
		cmp:   -1,
	}
}

func (ncr nearCrossRule) IsSatisfied(
	index int,
	_ *techan.TradingRecord,
) bool {
	if index <= 0 {
		return false
	}

	current := ncr.lower.Calculate(index).
		Cmp(ncr.upper.Calculate(index))

	previous := ncr.lower.Calculate(index - 1).
		Cmp(ncr.upper.Calculate(index - 1))

	return (current == 0 || current == ncr.cmp) &&
		(previous == 0 || previous == -ncr.cmp)
}

func (eca *EMACrossAnalyzer) logIndicators(
	price,
	priceEma techan.Indicator,
	lastIndex int,
) {
	indexes := []int{lastIndex, lastIndex - 1, lastIndex - 2}

	eca.logger.Debugf(
		"price: %v, ema: %v",
		stringifyIndicator(price, indexes),
		stringifyIndicator(priceEma, indexes),
	)
}

func stringifyIndicator(indicator techan.Indicator, indexes []int) string {
	components := make([]string, 0)

	for _, index := range indexes {
		components = append(
			components,
			fmt.Sprintf(
				"%v=%v",
				index,
				indicator.Calculate(index).FormattedString(2),
			),
		)
	}

	return strings.Join(components, " ")
}
