package spot

import (
	"fmt"
	"time"
)

type Decision int

const (
	DecisionPass Decision = iota
	DecisionBuy
	DecisionSell
)

func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "PASS"
	case DecisionBuy:
		return "BUY"
	case DecisionSell:
		return "SELL"
	default:
		panic("unknown decision")
	}
}

// Analyzer turns the recent candles of a pair into a trading decision.
// The position is a snapshot detached from the ledger.
type Analyzer interface {
	Analyze(candles []*Candle, position *Position) Decision
}

// TradeRecorder is implemented by analyzers that depend on the history
// of executed orders. The trade loop notifies them after every order.
type TradeRecorder interface {
	RecordTrade(asset Asset, activity Activity, at time.Time)
}

type AnalyzerKind int

const (
	AnalyzerRSI AnalyzerKind = iota
	AnalyzerWILLR
	AnalyzerEMACross
	AnalyzerDCABuy
	AnalyzerDCASell
)

func ParseAnalyzerKind(value string) (AnalyzerKind, error) {
	switch value {
	case "RSI":
		return AnalyzerRSI, nil
	case "WILLR":
		return AnalyzerWILLR, nil
	case "EMA_CROSS":
		return AnalyzerEMACross, nil
	case "DCA_BUY":
		return AnalyzerDCABuy, nil
	case "DCA_SELL":
		return AnalyzerDCASell, nil
	}

	return -1, fmt.Errorf("unknown analyzer kind: [%v]", value)
}

func (ak AnalyzerKind) String() string {
	switch ak {
	case AnalyzerRSI:
		return "RSI"
	case AnalyzerWILLR:
		return "WILLR"
	case AnalyzerEMACross:
		return "EMA_CROSS"
	case AnalyzerDCABuy:
		return "DCA_BUY"
	case AnalyzerDCASell:
		return "DCA_SELL"
	default:
		panic("unknown analyzer kind")
	}
}
