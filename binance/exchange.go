package binance

import (
	"context"
	"fmt"
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"time"
)

const (
	exchangeName   = "binance"
	requestTimeout = 1 * time.Minute
)

type Config struct {
	ApiKey    string
	SecretKey string
	Testnet   bool
}

type ExchangeService struct {
	client *binance.Client
}

func NewExchangeService(config *Config) *ExchangeService {
	binance.UseTestnet = config.Testnet

	return &ExchangeService{
		client: binance.NewClient(config.ApiKey, config.SecretKey),
	}
}

func (es *ExchangeService) Name() string {
	return exchangeName
}

func parseMilliseconds(milliseconds int64) time.Time {
	return time.UnixMilli(milliseconds)
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not parse %v [%v]: [%w]", name, value, err)
	}

	return parsed, nil
}

func withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
