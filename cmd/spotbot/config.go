package main

import (
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/lukasz-zimnoch/dexly/spot/talib"
	"github.com/sherifabdlnaby/configuro"
	"github.com/shopspring/decimal"
	"time"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging      Logging
	Binance      Binance
	Paper        Paper
	Trading      Trading
	Analyzer     Analyzer
	Storage      Storage
	Notification Notification
	Control      Control
}

type Logging struct {
	Level  string
	Format string
}

type Binance struct {
	ApiKey    string
	SecretKey string
	Testnet   bool
}

type Paper struct {
	Enabled        bool
	InitialCash    string
	CommissionRate string
}

type Trading struct {
	CashCurrency              string
	IncludeAssets             []string
	ExcludeAssets             []string
	MaxFundPerCurrency        string
	MaxOpenPositions          int
	MaxTotalOpenCost          string
	CandleCount               int
	CandleInterval            string
	RoundDuration             time.Duration
	SymbolPacing              time.Duration
	SymbolBackoff             time.Duration
	RequestTimeout            time.Duration
	BalanceNotificationRounds int
}

type Analyzer struct {
	Kind  string
	RSI   Oscillator
	WILLR Oscillator
	EMA   EMA
	DCA   DCA
}

type Oscillator struct {
	Period     int
	Overbought float64
	Oversold   float64
}

type EMA struct {
	Period int
}

type DCA struct {
	BuyInterval  time.Duration
	SellInterval time.Duration
}

type Storage struct {
	// Kind is one of `file`, `postgres` or `inmem`.
	Kind      string
	Directory string
	Database  Database
}

type Database struct {
	Address  string
	User     string
	Password string
	Name     string
	SSLMode  string
	Migrate  bool
}

type Notification struct {
	// Kind is one of `log`, `mail` or `pubsub`.
	Kind      string
	Account   string
	QueueSize int
	Mail      Mail
	PubSub    PubSub
}

type Mail struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Recipient string
	Subject   string
}

type PubSub struct {
	ProjectID            string
	NotificationsTopicID string
	Recipient            string
}

type Control struct {
	StopFile string
	// Address of the HTTP control server; empty disables it.
	Address string
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level: "info",
		},
		Paper: Paper{
			InitialCash:    "1000",
			CommissionRate: "0.001",
		},
		Trading: Trading{
			CashCurrency:              "USDT",
			MaxFundPerCurrency:        "20",
			CandleCount:               spot.DefaultCandleCount,
			CandleInterval:            spot.DefaultCandleInterval,
			RoundDuration:             spot.DefaultRoundDuration,
			SymbolPacing:              spot.DefaultSymbolPacing,
			SymbolBackoff:             spot.DefaultSymbolBackoff,
			RequestTimeout:            spot.DefaultRequestTimeout,
			BalanceNotificationRounds: 60,
		},
		Analyzer: Analyzer{
			Kind: spot.AnalyzerRSI.String(),
			RSI: Oscillator{
				Period:     14,
				Overbought: 70,
				Oversold:   30,
			},
			WILLR: Oscillator{
				Period:     14,
				Overbought: -20,
				Oversold:   -80,
			},
			EMA: EMA{
				Period: 50,
			},
			DCA: DCA{
				BuyInterval:  24 * time.Hour,
				SellInterval: 24 * time.Hour,
			},
		},
		Storage: Storage{
			Kind:      "file",
			Directory: "positions",
			Database: Database{
				Address:  "localhost:5432",
				User:     "postgres",
				Password: "postgres",
				Name:     "postgres",
				SSLMode:  "disable",
				Migrate:  true,
			},
		},
		Notification: Notification{
			Kind:      "log",
			Account:   "spot",
			QueueSize: 100,
			Mail: Mail{
				Port:    587,
				Subject: "Spot trading report",
			},
		},
		Control: Control{
			StopFile: "stop",
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (t *Trading) symbolFilter() (*spot.SymbolFilter, error) {
	filter := &spot.SymbolFilter{
		Quote:         spot.Asset(t.CashCurrency),
		IncludeAssets: toAssets(t.IncludeAssets),
		ExcludeAssets: toAssets(t.ExcludeAssets),
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	return filter, nil
}

func (t *Trading) traderConfig() (*spot.TraderConfig, error) {
	if t.CashCurrency == "" {
		return nil, fmt.Errorf("cash currency must be set")
	}

	maxFund, err := decimal.NewFromString(t.MaxFundPerCurrency)
	if err != nil {
		return nil, fmt.Errorf("could not parse max fund per currency: [%v]", err)
	}

	if !maxFund.IsPositive() {
		return nil, fmt.Errorf("max fund per currency must be positive")
	}

	if t.MaxOpenPositions < 0 {
		return nil, fmt.Errorf("max open positions must not be negative")
	}

	var maxTotalOpenCost decimal.NullDecimal
	if t.MaxTotalOpenCost != "" {
		value, err := decimal.NewFromString(t.MaxTotalOpenCost)
		if err != nil {
			return nil, fmt.Errorf("could not parse max total open cost: [%v]", err)
		}

		maxTotalOpenCost = decimal.NewNullDecimal(value)
	}

	if t.CandleCount < 1 {
		return nil, fmt.Errorf("candle count must be positive")
	}

	return &spot.TraderConfig{
		CashCurrency:              spot.Asset(t.CashCurrency),
		MaxFundPerCurrency:        maxFund,
		MaxOpenPositions:          t.MaxOpenPositions,
		MaxTotalOpenCost:          maxTotalOpenCost,
		CandleCount:               t.CandleCount,
		CandleInterval:            t.CandleInterval,
		RoundDuration:             t.RoundDuration,
		SymbolPacing:              t.SymbolPacing,
		SymbolBackoff:             t.SymbolBackoff,
		RequestTimeout:            t.RequestTimeout,
		BalanceNotificationRounds: t.BalanceNotificationRounds,
	}, nil
}

func (o *Oscillator) oscillatorConfig() *talib.OscillatorConfig {
	return &talib.OscillatorConfig{
		Period:     o.Period,
		Overbought: o.Overbought,
		Oversold:   o.Oversold,
	}
}

func toAssets(values []string) []spot.Asset {
	assets := make([]spot.Asset, len(values))
	for i, value := range values {
		assets[i] = spot.Asset(value)
	}

	return assets
}
