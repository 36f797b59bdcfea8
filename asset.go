package spot

import (
	"fmt"
	"github.com/shopspring/decimal"
	"sort"
)

type Asset string

type PairSymbol string

type Pair struct {
	Base, Quote Asset
}

func (p Pair) Symbol() PairSymbol {
	return PairSymbol(p.Base + p.Quote)
}

func (p Pair) String() string {
	return string(p.Symbol())
}

// ExchangeRules are the quantization constraints the exchange imposes on
// orders of a single pair.
type ExchangeRules struct {
	MinNotional decimal.Decimal
	MinQuantity decimal.Decimal
	MaxQuantity decimal.Decimal
	StepSize    decimal.Decimal
}

func (er ExchangeRules) String() string {
	return fmt.Sprintf(
		"minNotional: %v, minQty: %v, maxQty: %v, stepSize: %v",
		er.MinNotional,
		er.MinQuantity,
		er.MaxQuantity,
		er.StepSize,
	)
}

// WatchedSymbol is a pair the trade loop analyzes every round.
type WatchedSymbol struct {
	Pair
	Rules ExchangeRules
}

type SymbolFilter struct {
	Quote         Asset
	IncludeAssets []Asset
	ExcludeAssets []Asset
}

func (sf *SymbolFilter) Validate() error {
	if len(sf.IncludeAssets) > 0 && len(sf.ExcludeAssets) > 0 {
		return fmt.Errorf(
			"include and exclude assets cannot be set at the same time",
		)
	}

	return nil
}

// Admits tells whether the given base asset passes the include/exclude lists.
func (sf *SymbolFilter) Admits(base Asset) bool {
	if len(sf.IncludeAssets) > 0 {
		return containsAsset(sf.IncludeAssets, base)
	}

	return !containsAsset(sf.ExcludeAssets, base)
}

func containsAsset(assets []Asset, asset Asset) bool {
	for _, candidate := range assets {
		if candidate == asset {
			return true
		}
	}

	return false
}

type Balance struct {
	Free   decimal.Decimal
	Locked decimal.Decimal
}

type Balances map[Asset]*Balance

func (b Balances) FreeBalanceOf(asset Asset) decimal.Decimal {
	if balance, ok := b[asset]; ok {
		return balance.Free
	}

	return decimal.Zero
}

func (b Balances) Assets() []Asset {
	assets := make([]Asset, 0, len(b))
	for asset := range b {
		assets = append(assets, asset)
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i] < assets[j]
	})

	return assets
}
