package spot

import (
	"context"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"sync"
	"time"
)

const (
	DefaultRoundDuration  = 60 * time.Second
	DefaultSymbolPacing   = 500 * time.Millisecond
	DefaultSymbolBackoff  = 3 * time.Second
	DefaultRequestTimeout = 1 * time.Minute
)

type TraderConfig struct {
	CashCurrency       Asset
	MaxFundPerCurrency decimal.Decimal
	// MaxOpenPositions limits the number of open positions; zero means
	// no limit.
	MaxOpenPositions int
	MaxTotalOpenCost decimal.NullDecimal
	CandleCount      int
	CandleInterval   string
	RoundDuration    time.Duration
	SymbolPacing     time.Duration
	SymbolBackoff    time.Duration
	RequestTimeout   time.Duration
	// BalanceNotificationRounds is the number of rounds between cash
	// balance notifications; zero disables them.
	BalanceNotificationRounds int
}

type RoundSummary struct {
	ID           string
	Number       int
	StartedAt    time.Time
	Duration     time.Duration
	Processed    int
	Skipped      int
	Rejected     int
	Failed       int
	Transactions int
}

func (rs *RoundSummary) String() string {
	return fmt.Sprintf(
		"round %v (#%v): processed: %v, skipped: %v, rejected: %v, "+
			"failed: %v, transactions: %v, took: %v",
		rs.ID,
		rs.Number,
		rs.Processed,
		rs.Skipped,
		rs.Rejected,
		rs.Failed,
		rs.Transactions,
		rs.Duration.Round(time.Millisecond),
	)
}

// TraderStatus is a snapshot of the trader state safe to read from other
// goroutines.
type TraderStatus struct {
	LastRound         *RoundSummary
	Cash              decimal.Decimal
	OpenPositions     int
	OpenCost          decimal.Decimal
	TotalCommission   decimal.Decimal
	TransactionsCount int
}

// Trader runs the trading rounds. Symbols are processed sequentially and
// the ledger is only touched by the goroutine calling Run or
// CloseAllPositions.
type Trader struct {
	logger    Logger
	config    *TraderConfig
	exchange  ExchangeService
	ledger    *Ledger
	executor  *OrderExecutor
	analyzer  Analyzer
	notifier  *NotificationWorker
	idService IDService
	symbols   []*WatchedSymbol

	cash   decimal.Decimal
	prices map[Asset]decimal.Decimal
	rounds int

	statusMutex sync.RWMutex
	status      *TraderStatus
}

func NewTrader(
	logger Logger,
	config *TraderConfig,
	exchange ExchangeService,
	ledger *Ledger,
	analyzer Analyzer,
	notifier *NotificationWorker,
	idService IDService,
	symbols []*WatchedSymbol,
) *Trader {
	return &Trader{
		logger:    logger,
		config:    config,
		exchange:  exchange,
		ledger:    ledger,
		executor:  NewOrderExecutor(logger, exchange, config.CashCurrency),
		analyzer:  analyzer,
		notifier:  notifier,
		idService: idService,
		symbols:   symbols,
		cash:      decimal.Zero,
		prices:    make(map[Asset]decimal.Decimal),
		status:    &TraderStatus{},
	}
}

// Run executes rounds until the context is cancelled or the ledger can
// no longer be persisted. Cancellation is observed between symbols and
// between rounds only. Before returning, pending notifications are
// drained.
func (t *Trader) Run(ctx context.Context) error {
	defer t.notifier.Stop()

	if err := t.refreshCash(ctx); err != nil {
		return fmt.Errorf("could not get initial cash balance: [%w]", err)
	}

	t.logger.Infof(
		"starting trade loop over [%v] symbols with [%v %v] available",
		len(t.symbols),
		t.cash,
		t.config.CashCurrency,
	)

	for ctx.Err() == nil {
		startedAt := time.Now()

		if err := t.RunRound(ctx); err != nil {
			return err
		}

		if ctx.Err() != nil {
			break
		}

		cooldown := t.config.RoundDuration - time.Since(startedAt)
		t.logger.Debugf("cooling down for [%v]", cooldown.Round(time.Millisecond))

		if !sleep(ctx, cooldown) {
			break
		}
	}

	t.logger.Infof("trade loop stopped")

	return nil
}

// RunRound analyzes every watched symbol once, notifies the resulting
// transactions and refreshes the cash balance. Only a persistence failure
// is returned as an error.
func (t *Trader) RunRound(ctx context.Context) error {
	t.rounds++

	summary := &RoundSummary{
		ID:        t.idService.NewID().String(),
		Number:    t.rounds,
		StartedAt: time.Now(),
	}

	logger := t.logger.WithField("round", summary.ID)
	transactions := make([]Transaction, 0)

	var persistenceErr error

	for i, symbol := range t.symbols {
		if ctx.Err() != nil {
			logger.Infof("stop requested; skipping remaining symbols")
			break
		}

		symbolLogger := logger.WithField("symbol", symbol.String())

		result, err := t.processSymbol(ctx, symbolLogger, summary, symbol)
		if result != nil {
			transactions = append(transactions, result.Transactions...)
		}

		pause := t.config.SymbolPacing

		if err != nil {
			if errors.Is(err, ErrPersistence) {
				symbolLogger.Errorf("ledger is out of sync with the exchange: [%v]", err)
				persistenceErr = err
				break
			}

			summary.Failed++
			symbolLogger.Errorf("could not process symbol: [%v]", err)
			pause = t.config.SymbolBackoff
		}

		if i < len(t.symbols)-1 {
			sleep(ctx, pause)
		}
	}

	summary.Transactions = len(transactions)
	if len(transactions) > 0 {
		t.notifier.NotifyTransactions(summary.ID, transactions)
	}

	if persistenceErr == nil && ctx.Err() == nil {
		if err := t.refreshCash(ctx); err != nil {
			logger.Warningf("could not refresh cash balance; keeping [%v]: [%v]", t.cash, err)
		}

		if t.config.BalanceNotificationRounds > 0 &&
			t.rounds%t.config.BalanceNotificationRounds == 0 {
			t.notifier.NotifyCashBalance(
				t.config.CashCurrency,
				t.cash,
				t.ledger.PortfolioPnL(t.prices),
			)
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	logger.Infof("%v", summary)

	t.updateStatus(summary)

	return persistenceErr
}

func (t *Trader) processSymbol(
	ctx context.Context,
	logger Logger,
	summary *RoundSummary,
	symbol *WatchedSymbol,
) (result *OrderResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing symbol: [%v]", r)
		}
	}()

	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()

	candles, err := t.exchange.Candles(requestCtx, CandleFilter{
		Pair:     symbol.Pair,
		Interval: t.config.CandleInterval,
		Count:    t.config.CandleCount,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get candles: [%w]", err)
	}

	if len(candles) < t.config.CandleCount {
		logger.Infof(
			"insufficient data: [%v] of [%v] candles; skipping",
			len(candles),
			t.config.CandleCount,
		)
		summary.Skipped++
		return nil, nil
	}

	if price, ok := LastClosePrice(candles); ok {
		t.prices[symbol.Base] = price
	}

	position := t.ledger.Position(symbol.Base)
	decision := t.analyzer.Analyze(candles, position.Snapshot())

	summary.Processed++
	logger.Debugf("decision: [%v]", decision)

	switch decision {
	case DecisionBuy:
		if reason, admitted := t.admit(); !admitted {
			logger.Infof("buy rejected: [%v]", reason)
			summary.Rejected++
			return nil, nil
		}

		fund := decimal.Min(t.cash, t.config.MaxFundPerCurrency)

		result, err = t.executor.OpenPosition(
			requestCtx,
			symbol,
			fund,
			position,
			summary.ID,
		)
		if result != nil && result.Rejection != NotRejected {
			summary.Rejected++
		}
	case DecisionSell:
		result, err = t.executor.CloseAllPosition(
			requestCtx,
			symbol,
			position,
			summary.ID,
		)
		if errors.Is(err, ErrNothingToSell) {
			logger.Debugf("no position to close")
			return result, nil
		}
	default:
		return nil, nil
	}

	if result != nil && len(result.Transactions) > 0 {
		t.cash = t.cash.Add(result.CashFlow(t.config.CashCurrency))

		if recorder, ok := t.analyzer.(TradeRecorder); ok {
			recorder.RecordTrade(symbol.Base, result.Side, time.Now())
		}
	}

	return result, err
}

// admit applies the portfolio limits to a buy signal.
func (t *Trader) admit() (string, bool) {
	if t.config.MaxOpenPositions > 0 {
		if count := t.ledger.TotalOpenPositionCount(); count >= t.config.MaxOpenPositions {
			return fmt.Sprintf(
				"open positions limit reached (%v/%v)",
				count,
				t.config.MaxOpenPositions,
			), false
		}
	}

	if t.config.MaxTotalOpenCost.Valid {
		if cost := t.ledger.TotalOpenCost(); cost.GreaterThanOrEqual(t.config.MaxTotalOpenCost.Decimal) {
			return fmt.Sprintf(
				"total open cost limit reached (%v/%v)",
				cost,
				t.config.MaxTotalOpenCost.Decimal,
			), false
		}
	}

	return "", true
}

// CloseAllPositions sells every open position recorded in the ledger.
func (t *Trader) CloseAllPositions(ctx context.Context) ([]Transaction, error) {
	roundID := t.idService.NewID().String()
	logger := t.logger.WithField("round", roundID)

	symbols := make(map[Asset]*WatchedSymbol)
	for _, symbol := range t.symbols {
		symbols[symbol.Base] = symbol
	}

	transactions := make([]Transaction, 0)
	defer func() {
		t.notifier.NotifyTransactions(roundID, transactions)
	}()

	for _, position := range t.ledger.OpenPositions() {
		symbol, ok := symbols[position.Asset]
		if !ok {
			symbol = &WatchedSymbol{
				Pair: Pair{Base: position.Asset, Quote: t.config.CashCurrency},
			}
		}

		requestCtx, cancel := t.requestContext(ctx)
		result, err := t.executor.CloseAllPosition(
			requestCtx,
			symbol,
			position,
			roundID,
		)
		cancel()

		if result != nil {
			transactions = append(transactions, result.Transactions...)
		}

		if err != nil {
			if errors.Is(err, ErrPersistence) {
				return transactions, err
			}

			logger.Errorf("could not close position [%v]: [%v]", position.Asset, err)
		}
	}

	return transactions, nil
}

func (t *Trader) refreshCash(ctx context.Context) error {
	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()

	balances, err := t.exchange.AccountBalances(requestCtx)
	if err != nil {
		return err
	}

	t.cash = balances.FreeBalanceOf(t.config.CashCurrency)

	return nil
}

// requestContext detaches exchange calls from cancellation so that an
// in-flight call always completes. The request timeout still applies.
func (t *Trader) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := t.config.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (t *Trader) updateStatus(summary *RoundSummary) {
	status := &TraderStatus{
		LastRound:         summary,
		Cash:              t.cash,
		OpenPositions:     t.ledger.TotalOpenPositionCount(),
		OpenCost:          t.ledger.TotalOpenCost(),
		TotalCommission:   t.ledger.TotalCommission(),
		TransactionsCount: t.ledger.TotalTransactionsCount(),
	}

	t.statusMutex.Lock()
	t.status = status
	t.statusMutex.Unlock()
}

func (t *Trader) Status() *TraderStatus {
	t.statusMutex.RLock()
	defer t.statusMutex.RUnlock()

	return t.status
}

// sleep waits for the given duration and reports whether the context is
// still alive afterwards.
func sleep(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
