package spot

import (
	"context"
	"fmt"
	"github.com/shopspring/decimal"
	"sync"
	"time"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type positionRepositoryMock struct {
	mutex     sync.Mutex
	positions map[Asset]*Position
	saves     int

	// failures is the number of upcoming saves that fail.
	failures int
}

func newPositionRepositoryMock() *positionRepositoryMock {
	return &positionRepositoryMock{positions: make(map[Asset]*Position)}
}

func (prm *positionRepositoryMock) Position(asset Asset) (*Position, error) {
	prm.mutex.Lock()
	defer prm.mutex.Unlock()

	if position, ok := prm.positions[asset]; ok {
		return position.Snapshot(), nil
	}

	return nil, nil
}

func (prm *positionRepositoryMock) SavePosition(position *Position) error {
	prm.mutex.Lock()
	defer prm.mutex.Unlock()

	prm.saves++

	if prm.failures > 0 {
		prm.failures--
		return fmt.Errorf("disk full")
	}

	prm.positions[position.Asset] = position.Snapshot()

	return nil
}

type exchangeMock struct {
	mutex sync.Mutex

	cash       Asset
	prices     map[Asset]decimal.Decimal
	priceErr   error
	candles    map[Asset][]*Candle
	candlesErr map[Asset]error
	balances   Balances

	// commission charged on every fill, in commissionAsset units.
	commission      decimal.Decimal
	commissionAsset Asset
	status          string
	submitErr       error
	// fills is the number of equal fills every order is split into.
	fills int

	priceCalls  map[Asset]int
	candleCalls map[Asset]int
	orders      []*MarketOrder
	lastTradeID int
}

func newExchangeMock(cash Asset) *exchangeMock {
	return &exchangeMock{
		cash:        cash,
		prices:      make(map[Asset]decimal.Decimal),
		candles:     make(map[Asset][]*Candle),
		candlesErr:  make(map[Asset]error),
		balances:    make(Balances),
		commission:  decimal.Zero,
		status:      OrderStatusFilled,
		priceCalls:  make(map[Asset]int),
		candleCalls: make(map[Asset]int),
	}
}

func (em *exchangeMock) Name() string {
	return "mock"
}

func (em *exchangeMock) LatestPrice(
	_ context.Context,
	pair Pair,
) (decimal.Decimal, error) {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	em.priceCalls[pair.Base]++

	if em.priceErr != nil {
		return decimal.Zero, em.priceErr
	}

	price, ok := em.prices[pair.Base]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: [%v]", ErrSymbolNotFound, pair)
	}

	return price, nil
}

func (em *exchangeMock) Candles(
	_ context.Context,
	filter CandleFilter,
) ([]*Candle, error) {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	em.candleCalls[filter.Pair.Base]++

	if err := em.candlesErr[filter.Pair.Base]; err != nil {
		return nil, err
	}

	return em.candles[filter.Pair.Base], nil
}

func (em *exchangeMock) TradableSymbols(
	_ context.Context,
	_ SymbolFilter,
) ([]*WatchedSymbol, error) {
	return nil, nil
}

func (em *exchangeMock) AccountBalances(_ context.Context) (Balances, error) {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	balances := make(Balances)
	for asset, balance := range em.balances {
		copied := *balance
		balances[asset] = &copied
	}

	return balances, nil
}

func (em *exchangeMock) SubmitMarketOrder(
	_ context.Context,
	order *MarketOrder,
) (*OrderResponse, error) {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	em.orders = append(em.orders, order)

	if em.submitErr != nil {
		return nil, em.submitErr
	}

	commissionAsset := em.commissionAsset
	if commissionAsset == "" {
		commissionAsset = em.cash
	}

	parts := em.fills
	if parts < 1 {
		parts = 1
	}

	response := &OrderResponse{
		Symbol:       order.Pair.Symbol(),
		OrderID:      fmt.Sprintf("order-%v", em.lastTradeID+1),
		Status:       em.status,
		Side:         order.Side,
		TransactTime: 1700000000000 + int64(em.lastTradeID+1),
	}

	quantity := order.Quantity.Div(decimal.NewFromInt(int64(parts)))

	for i := 0; i < parts; i++ {
		em.lastTradeID++

		response.Fills = append(response.Fills, &OrderFill{
			TradeID:         fmt.Sprintf("trade-%v", em.lastTradeID),
			Price:           em.prices[order.Pair.Base],
			Quantity:        quantity,
			Commission:      em.commission,
			CommissionAsset: commissionAsset,
		})
	}

	return response, nil
}

func (em *exchangeMock) ordersCount() int {
	em.mutex.Lock()
	defer em.mutex.Unlock()

	return len(em.orders)
}

type analyzerMock struct {
	decisions map[Asset]Decision
	panics    map[Asset]bool
	analyzed  []Asset
	positions []*Position
	recorded  []Asset
}

func (am *analyzerMock) Analyze(candles []*Candle, position *Position) Decision {
	am.analyzed = append(am.analyzed, position.Asset)
	am.positions = append(am.positions, position)

	if am.panics[position.Asset] {
		panic("analyzer failure")
	}

	return am.decisions[position.Asset]
}

func (am *analyzerMock) RecordTrade(asset Asset, _ Activity, _ time.Time) {
	am.recorded = append(am.recorded, asset)
}

type notificationSinkMock struct {
	mutex    sync.Mutex
	messages []string

	// block, when set, delays every send until it gets closed.
	block chan struct{}
}

func (nsm *notificationSinkMock) Send(_ context.Context, message string) error {
	if nsm.block != nil {
		<-nsm.block
	}

	nsm.mutex.Lock()
	defer nsm.mutex.Unlock()

	nsm.messages = append(nsm.messages, message)

	return nil
}

func (nsm *notificationSinkMock) sent() []string {
	nsm.mutex.Lock()
	defer nsm.mutex.Unlock()

	return append([]string(nil), nsm.messages...)
}

type idServiceMock struct {
	next int
}

type testID string

func (ti testID) String() string {
	return string(ti)
}

func (ism *idServiceMock) NewID() ID {
	ism.next++
	return testID(fmt.Sprintf("id-%v", ism.next))
}
