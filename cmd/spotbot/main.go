package main

import (
	"context"
	"fmt"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/lukasz-zimnoch/dexly/spot/binance"
	"github.com/lukasz-zimnoch/dexly/spot/daemon"
	"github.com/lukasz-zimnoch/dexly/spot/dca"
	"github.com/lukasz-zimnoch/dexly/spot/file"
	"github.com/lukasz-zimnoch/dexly/spot/gin"
	"github.com/lukasz-zimnoch/dexly/spot/inmem"
	"github.com/lukasz-zimnoch/dexly/spot/logrus"
	"github.com/lukasz-zimnoch/dexly/spot/mail"
	"github.com/lukasz-zimnoch/dexly/spot/paper"
	"github.com/lukasz-zimnoch/dexly/spot/postgres"
	"github.com/lukasz-zimnoch/dexly/spot/pretty"
	"github.com/lukasz-zimnoch/dexly/spot/pubsub"
	"github.com/lukasz-zimnoch/dexly/spot/talib"
	"github.com/lukasz-zimnoch/dexly/spot/techan"
	"github.com/lukasz-zimnoch/dexly/spot/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"os"
	"os/signal"
	"syscall"
)

const (
	commandRun      = "run"
	commandCloseAll = "close-all"
	commandSummary  = "summary"
)

type application struct {
	logger   spot.Logger
	config   *Config
	exchange spot.ExchangeService
	ledger   *spot.Ledger
	notifier *spot.NotificationWorker
	trader   *spot.Trader
	closers  []func() error
}

func main() {
	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	logger, err := logrus.ConfigureStandardLogger(&logrus.Config{
		Level:  config.Logging.Level,
		Format: config.Logging.Format,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not configure logger: [%v]", err)
		os.Exit(1)
	}

	command := commandRun
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Resources such as the database connection outlive the stop signal
	// so the ledger can still be persisted while the loop winds down.
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	ctx, stop := signal.NotifyContext(appCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(appCtx, logger, config)
	if err != nil {
		logger.Fatalf("could not initialize application: [%v]", err)
	}
	defer app.close()

	switch command {
	case commandRun:
		err = app.run(ctx, stop)
	case commandCloseAll:
		err = app.closeAll(ctx)
	case commandSummary:
		err = app.summary(ctx)
	default:
		err = fmt.Errorf(
			"unknown command [%v]; expected one of [%v, %v, %v]",
			command,
			commandRun,
			commandCloseAll,
			commandSummary,
		)
	}

	if err != nil {
		logger.Errorf("[%v] command failed: [%v]", command, err)
		app.close()
		os.Exit(1)
	}
}

func newApplication(
	ctx context.Context,
	logger spot.Logger,
	config *Config,
) (*application, error) {
	app := &application{logger: logger, config: config}

	traderConfig, err := config.Trading.traderConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid trading config: [%v]", err)
	}

	symbolFilter, err := config.Trading.symbolFilter()
	if err != nil {
		return nil, fmt.Errorf("invalid trading config: [%v]", err)
	}

	repository, err := app.positionRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create position repository: [%v]", err)
	}

	app.exchange, err = app.exchangeService(traderConfig.CashCurrency)
	if err != nil {
		return nil, fmt.Errorf("could not create exchange service: [%v]", err)
	}

	symbols, err := app.exchange.TradableSymbols(ctx, *symbolFilter)
	if err != nil {
		return nil, fmt.Errorf("could not get tradable symbols: [%v]", err)
	}

	logger.Infof(
		"watching [%v] symbols quoted in [%v] on [%v]",
		len(symbols),
		traderConfig.CashCurrency,
		app.exchange.Name(),
	)

	watched := make([]spot.Asset, len(symbols))
	for i, symbol := range symbols {
		watched[i] = symbol.Base
	}

	app.ledger, err = spot.LoadLedger(
		logger.WithField("component", "ledger"),
		repository,
		traderConfig.CashCurrency,
		watched,
	)
	if err != nil {
		return nil, fmt.Errorf("could not load ledger: [%v]", err)
	}

	if paperExchange, ok := app.exchange.(*paper.ExchangeService); ok {
		for _, position := range app.ledger.OpenPositions() {
			logger.Infof(
				"restoring paper balance [%v %v]",
				position.OpenQuantity,
				position.Asset,
			)
			paperExchange.Deposit(position.Asset, position.OpenQuantity)
		}
	}

	analyzer, err := app.analyzer()
	if err != nil {
		return nil, fmt.Errorf("could not create analyzer: [%v]", err)
	}

	sink, err := app.notificationSink(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create notification sink: [%v]", err)
	}

	app.notifier = spot.RunNotificationWorker(
		logger.WithField("component", "notifier"),
		sink,
		config.Notification.Account,
		config.Notification.QueueSize,
	)

	app.trader = spot.NewTrader(
		logger.WithField("component", "trader"),
		traderConfig,
		app.exchange,
		app.ledger,
		analyzer,
		app.notifier,
		&uuid.IDService{},
		symbols,
	)

	return app, nil
}

func (app *application) positionRepository(
	ctx context.Context,
) (spot.PositionRepository, error) {
	storage := app.config.Storage

	switch storage.Kind {
	case "file":
		return file.NewPositionRepository(storage.Directory)
	case "postgres":
		postgresConfig := &postgres.Config{
			Address:  storage.Database.Address,
			User:     storage.Database.User,
			Password: storage.Database.Password,
			Name:     storage.Database.Name,
			SSLMode:  storage.Database.SSLMode,
			Migrate:  storage.Database.Migrate,
		}

		if err := postgres.RunMigration(app.logger, postgresConfig); err != nil {
			return nil, fmt.Errorf("could not run postgres migration: [%v]", err)
		}

		client, err := postgres.NewClient(ctx, app.logger, postgresConfig)
		if err != nil {
			return nil, fmt.Errorf("could not create postgres client: [%v]", err)
		}

		return postgres.NewPositionRepository(client), nil
	case "inmem":
		app.logger.Warningf("positions are kept in memory only")
		return inmem.NewPositionRepository(), nil
	}

	return nil, fmt.Errorf("unknown storage kind: [%v]", storage.Kind)
}

func (app *application) exchangeService(
	cash spot.Asset,
) (spot.ExchangeService, error) {
	binanceExchange := binance.NewExchangeService(&binance.Config{
		ApiKey:    app.config.Binance.ApiKey,
		SecretKey: app.config.Binance.SecretKey,
		Testnet:   app.config.Binance.Testnet,
	})

	if !app.config.Paper.Enabled {
		return binanceExchange, nil
	}

	initialCash, err := decimal.NewFromString(app.config.Paper.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("could not parse paper initial cash: [%v]", err)
	}

	commissionRate, err := decimal.NewFromString(app.config.Paper.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("could not parse paper commission rate: [%v]", err)
	}

	app.logger.Infof(
		"paper trading with [%v %v] and commission rate [%v]",
		initialCash,
		cash,
		commissionRate,
	)

	return paper.NewExchangeService(binanceExchange, &paper.Config{
		CashCurrency:   cash,
		InitialCash:    initialCash,
		CommissionRate: commissionRate,
		WindowSize:     app.config.Trading.CandleCount,
	}), nil
}

func (app *application) analyzer() (spot.Analyzer, error) {
	config := app.config.Analyzer
	logger := app.logger.WithField("component", "analyzer")

	kind, err := spot.ParseAnalyzerKind(config.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case spot.AnalyzerRSI:
		return talib.NewRSIAnalyzer(logger, config.RSI.oscillatorConfig()), nil
	case spot.AnalyzerWILLR:
		return talib.NewWILLRAnalyzer(logger, config.WILLR.oscillatorConfig()), nil
	case spot.AnalyzerEMACross:
		return techan.NewEMACrossAnalyzer(logger, config.EMA.Period), nil
	case spot.AnalyzerDCABuy:
		return dca.NewBuyAnalyzer(logger, config.DCA.BuyInterval), nil
	case spot.AnalyzerDCASell:
		return dca.NewSellAnalyzer(logger, config.DCA.SellInterval), nil
	}

	return nil, fmt.Errorf("unsupported analyzer kind: [%v]", kind)
}

func (app *application) notificationSink(
	ctx context.Context,
) (spot.NotificationSink, error) {
	config := app.config.Notification

	switch config.Kind {
	case "log":
		return logrus.NewNotificationSink(app.logger), nil
	case "mail":
		return mail.NewNotificationSink(&mail.Config{
			Host:      config.Mail.Host,
			Port:      config.Mail.Port,
			Username:  config.Mail.Username,
			Password:  config.Mail.Password,
			Recipient: config.Mail.Recipient,
			Subject:   config.Mail.Subject,
		}), nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, &pubsub.Config{
			ProjectID:            config.PubSub.ProjectID,
			NotificationsTopicID: config.PubSub.NotificationsTopicID,
			Recipient:            config.PubSub.Recipient,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create pubsub client: [%v]", err)
		}

		app.closers = append(app.closers, client.Close)

		return pubsub.NewNotificationSink(
			client,
			config.PubSub.Recipient,
			app.logger,
		), nil
	}

	return nil, fmt.Errorf("unknown notification kind: [%v]", config.Kind)
}

// run executes the trade loop until a stop signal, the stop file or the
// control server requests a stop.
func (app *application) run(ctx context.Context, stop func()) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer stop()
		return app.trader.Run(groupCtx)
	})

	if path := app.config.Control.StopFile; path != "" {
		watcher := daemon.NewStopFileWatcher(
			app.logger.WithField("component", "control"),
			path,
			daemon.DefaultStopFilePollInterval,
		)

		group.Go(func() error {
			return watcher.Watch(groupCtx, stop)
		})
	}

	if address := app.config.Control.Address; address != "" {
		server := gin.NewControlServer(app.logger, address, app.trader, stop)

		group.Go(func() error {
			return server.Run(groupCtx)
		})
	}

	return group.Wait()
}

func (app *application) closeAll(ctx context.Context) error {
	transactions, err := app.trader.CloseAllPositions(ctx)

	app.logger.Infof("closed positions with [%v] transactions", len(transactions))

	if err != nil {
		return err
	}

	fmt.Println(pretty.PositionsTable(app.ledger))

	return nil
}

func (app *application) summary(ctx context.Context) error {
	prices := make(map[spot.Asset]decimal.Decimal)

	for _, position := range app.ledger.OpenPositions() {
		price, err := app.exchange.LatestPrice(ctx, spot.Pair{
			Base:  position.Asset,
			Quote: app.ledger.CashAsset(),
		})
		if err != nil {
			app.logger.Warningf(
				"could not get latest price of [%v]: [%v]",
				position.Asset,
				err,
			)
			continue
		}

		prices[position.Asset] = price
	}

	fmt.Println(pretty.PositionsTable(app.ledger))
	fmt.Println(pretty.PnLTable(app.ledger.PortfolioPnL(prices)))

	balances, err := app.exchange.AccountBalances(ctx)
	if err != nil {
		return fmt.Errorf("could not get account balances: [%v]", err)
	}

	fmt.Println(pretty.BalancesTable(balances))

	return nil
}

func (app *application) close() {
	app.notifier.Stop()

	for _, closer := range app.closers {
		if err := closer(); err != nil {
			app.logger.Warningf("could not release resource: [%v]", err)
		}
	}

	app.closers = nil
}
