package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lukasz-zimnoch/dexly/spot"
	"github.com/shopspring/decimal"
	"sync"
	"time"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	Address  string
	User     string
	Password string
	Name     string
	SSLMode  string
	Migrate  bool
}

func (c *Config) address() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Address,
		c.Name,
		c.SSLMode,
	)
}

type Client struct {
	logger   spot.Logger
	mutex    sync.RWMutex
	database *sqlx.DB
}

func NewClient(
	ctx context.Context,
	logger spot.Logger,
	config *Config,
) (*Client, error) {
	database, err := connectDatabase(config)
	if err != nil {
		return nil, err
	}

	client := &Client{logger: logger, database: database}

	go client.monitorDatabaseMode(ctx, config)

	return client, nil
}

func connectDatabase(config *Config) (*sqlx.DB, error) {
	database, err := sqlx.Connect("pgx", config.address())
	if err != nil {
		return nil, fmt.Errorf("could not connect database: [%v]", err)
	}

	return database, nil
}

// monitorDatabaseMode reconnects when the connected instance gets
// demoted to a read-only replica.
func (c *Client) monitorDatabaseMode(ctx context.Context, config *Config) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var isReadonly bool
			err := c.instance().Get(&isReadonly, "SELECT pg_is_in_recovery()")
			if err != nil {
				c.logger.Errorf("could not determine database mode: [%v]", err)
				continue
			}

			if isReadonly {
				c.logger.Infof(
					"database instance demoted to read-only mode; " +
						"reconnecting master database",
				)

				newDatabase, err := connectDatabase(config)
				if err != nil {
					c.logger.Errorf("could not reconnect master database: [%v]", err)
					continue
				}

				c.mutex.Lock()
				_ = c.database.Close()
				c.database = newDatabase
				c.mutex.Unlock()

				c.logger.Infof("reconnected master database")
			}
		case <-ctx.Done():
			c.mutex.Lock()
			_ = c.database.Close()
			c.mutex.Unlock()
			return
		}
	}
}

func (c *Client) instance() *sqlx.DB {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.database
}

// RunMigration applies the embedded schema migrations.
func RunMigration(logger spot.Logger, config *Config) error {
	if !config.Migrate {
		logger.Infof("postgres migration disabled")
		return nil
	}

	logger.Infof("starting postgres migration")

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: [%v]", err)
	}

	migration, err := migrate.NewWithSourceInstance("iofs", source, config.address())
	if err != nil {
		return err
	}
	defer migration.Close()

	if err := migration.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("postgres migration skipped as there are no changes")
			return nil
		}

		return err
	}

	logger.Infof("postgres migration performed successfully")

	return nil
}

func decimalToNumeric(value decimal.Decimal) (pgtype.Numeric, error) {
	var result pgtype.Numeric

	if err := result.Set(value.String()); err != nil {
		return pgtype.Numeric{}, err
	}

	return result, nil
}

func numericToDecimal(value pgtype.Numeric) (decimal.Decimal, error) {
	if value.Status != pgtype.Present {
		return decimal.Zero, fmt.Errorf("numeric value is not present")
	}

	if value.NaN || value.InfinityModifier != pgtype.None {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}

	return decimal.NewFromBigInt(value.Int, value.Exp), nil
}
