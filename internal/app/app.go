// Package app assembles the credit engine from configuration. Both commands
// build on it so the server and the scheduler share one wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/cache"
	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/metrics"
	"github.com/segyhp/credit-engine/internal/repository"
	"github.com/segyhp/credit-engine/internal/repository/memory"
	"github.com/segyhp/credit-engine/internal/service"
)

type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Metrics

	// DB is nil with the memory driver; Redis is nil when disabled.
	DB    *sqlx.DB
	Redis *redis.Client

	Accounts  *service.AccountService
	Purchases *service.PurchaseService
	Payments  *service.PaymentService
	Customers *service.CustomerService
}

func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	repos, err := a.initStore()
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		a.Redis = initRedis(cfg)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
		defer cancel()
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			// not fatal: the stores fail open
			log.WithError(err).Warn("redis unreachable at startup")
		}
	}

	// Interfaces stay nil when Redis is disabled; a typed nil would not.
	var (
		statusCache service.StatusCache
		idempotency service.IdempotencyStore
	)
	if a.Redis != nil {
		cb := cache.NewBreaker("redis")
		statusCache = cache.NewStatusCache(a.Redis, cb, cfg.GetStatusCacheTTL())
		idempotency = cache.NewIdempotencyStore(a.Redis, cb, cfg.GetIdempotencyTTL(), cfg.GetPendingTTL())
	}

	opts := []service.Option{service.WithMetrics(a.Metrics)}
	a.Accounts = service.NewAccountService(repos, statusCache, cfg, log, opts...)
	a.Purchases = service.NewPurchaseService(repos, a.Accounts, cfg, log, opts...)
	a.Payments = service.NewPaymentService(repos, a.Accounts, idempotency, cfg, log, opts...)
	a.Customers = service.NewCustomerService(repos, a.Accounts, cfg, log, opts...)

	return a, nil
}

func (a *App) initStore() (service.Repositories, error) {
	cfg := a.Config

	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore()
		if cfg.Database.SeedFile != "" {
			seed, err := store.LoadSeedFile(cfg.Database.SeedFile)
			if err != nil {
				return service.Repositories{}, fmt.Errorf("load seed: %w", err)
			}
			a.Log.WithFields(logrus.Fields{
				"customers": len(seed.Customers),
				"products":  len(seed.Products),
			}).Info("memory store seeded")
		}
		a.Log.Warn("using the in-memory store; data is lost on exit")

		return service.Repositories{
			Tx:           store.TxManager(),
			Customers:    store.Customers(),
			Products:     store.Products(),
			Purchases:    store.Purchases(),
			Installments: store.Installments(),
			Payments:     store.Payments(),
			Statuses:     store.AccountStatuses(),
		}, nil
	}

	db, err := initDB(cfg)
	if err != nil {
		return service.Repositories{}, fmt.Errorf("initialize database: %w", err)
	}
	a.DB = db

	return service.Repositories{
		Tx:           repository.NewTxManager(db),
		Customers:    repository.NewCustomerRepository(db),
		Products:     repository.NewProductRepository(db),
		Purchases:    repository.NewPurchaseRepository(db),
		Installments: repository.NewInstallmentRepository(db),
		Payments:     repository.NewPaymentRepository(db),
		Statuses:     repository.NewAccountStatusRepository(db),
	}, nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.WithError(err).Warn("closing redis")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.WithError(err).Warn("closing database")
		}
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}
