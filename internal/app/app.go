package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/andymarkow/botmarket/internal/accounts"
	"github.com/andymarkow/botmarket/internal/auth"
	"github.com/andymarkow/botmarket/internal/codestore"
	"github.com/andymarkow/botmarket/internal/codestore/memstore"
	"github.com/andymarkow/botmarket/internal/codestore/redisstore"
	"github.com/andymarkow/botmarket/internal/config"
	"github.com/andymarkow/botmarket/internal/httpclient"
	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/andymarkow/botmarket/internal/mailer"
	"github.com/andymarkow/botmarket/internal/metrics"
	"github.com/andymarkow/botmarket/internal/payments"
	"github.com/andymarkow/botmarket/internal/rates"
	"github.com/andymarkow/botmarket/internal/rates/ratesclient"
	"github.com/andymarkow/botmarket/internal/server"
	"github.com/andymarkow/botmarket/internal/server/router"
	"github.com/andymarkow/botmarket/internal/storage"
	"github.com/andymarkow/botmarket/internal/storage/inmemory"
	"github.com/andymarkow/botmarket/internal/storage/pgstorage"
	"github.com/andymarkow/botmarket/internal/wallet"
)

type Application struct {
	log     *slog.Logger
	store   storage.Storage
	codes   codestore.Store
	server  *server.Server
	expiry  *wallet.ExpiryDaemon
	sweeper *codestore.Sweeper
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logFormat, err := logger.ParseLogFormat(cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogFormat: %w", err)
	}

	return logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logFormat),
		logger.WithAddSource(false),
	), nil
}

// OpenStorage connects to Postgres and applies migrations when DATABASE_URI is set, and falls
// back to the in-memory store otherwise.
func OpenStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.DatabaseURI == "" {
		log.Warn("DATABASE_URI is empty, using in-memory storage")

		return storage.NewStorage(inmemory.NewStorage()), nil
	}

	pg, err := pgstorage.NewStorage(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
	}

	if err := pg.Ping(ctx); err != nil {
		pg.Close() //nolint:errcheck

		return nil, fmt.Errorf("storage.Ping: %w", err)
	}

	applied, err := pg.Bootstrap(ctx)
	if err != nil {
		pg.Close() //nolint:errcheck

		return nil, fmt.Errorf("storage.Bootstrap: %w", err)
	}

	log.Info("Database migrations applied", slog.Int("count", applied))

	return storage.NewStorage(pg), nil
}

func openCodeStore(ctx context.Context, cfg config.Config, log *slog.Logger) (codestore.Store, error) {
	if cfg.RedisAddr == "" {
		return memstore.New(), nil
	}

	store, err := redisstore.New(ctx, cfg.RedisAddr,
		redisstore.WithPassword(cfg.RedisPassword),
		redisstore.WithDB(cfg.RedisDB),
	)
	if err != nil {
		return nil, fmt.Errorf("redisstore.New: %w", err)
	}

	log.Info("Using redis code store", slog.String("addr", cfg.RedisAddr))

	return store, nil
}

func newMailer(cfg config.Config, log *slog.Logger) mailer.Mailer {
	if cfg.SMTPHost == "" {
		return mailer.NewLog(log)
	}

	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Sender:   cfg.SMTPSender,
	})
}

func newRatesProvider(cfg config.Config, log *slog.Logger) rates.Provider {
	if cfg.RatesURI == "" {
		log.Warn("RATES_URI is empty, using static exchange rates")

		return rates.NewStatic(nil)
	}

	return ratesclient.New(
		ratesclient.WithLogger(log),
		ratesclient.WithClient(httpclient.New(
			httpclient.WithBaseURL(cfg.RatesURI),
			httpclient.WithTimeout(cfg.HTTPClientTimeout),
		)),
	)
}

// NewAccounts builds the account service; the CLI uses it directly for admin promotion.
func NewAccounts(cfg config.Config, store storage.Storage, codes codestore.Store, log *slog.Logger) *accounts.Service {
	return accounts.NewService(store,
		auth.NewJWTAuth([]byte(cfg.JWTSecretKey), auth.WithTokenTTL(cfg.JWTTokenTTL)),
		accounts.WithLogger(log),
		accounts.WithCodeStore(codes),
		accounts.WithMailer(newMailer(cfg, log)),
		accounts.WithAdminEmails(cfg.AdminEmails),
	)
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Validate: %w", err)
	}

	minDeposit, _ := cfg.MinDeposit()
	addresses, _ := cfg.WalletAddresses()

	store, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	codes, err := openCodeStore(ctx, cfg, log)
	if err != nil {
		store.Close() //nolint:errcheck

		return nil, err
	}

	mtr := metrics.New()

	manager := wallet.NewManager(store,
		wallet.WithLogger(log),
		wallet.WithRates(newRatesProvider(cfg, log)),
		wallet.WithProcessors(payments.NewRegistry(
			payments.NewManual(addresses, payments.WithLogger(log)),
			payments.NewNowPayments(),
		)),
		wallet.WithMetrics(mtr),
		wallet.WithDefaults(minDeposit, cfg.Currencies()),
		wallet.WithDepositTimeout(cfg.DepositTimeout),
	)

	r := router.NewRouter(store, manager, NewAccounts(cfg, store, codes, log),
		router.WithLogger(log),
		router.WithSecret([]byte(cfg.JWTSecretKey)),
		router.WithMetrics(mtr),
	)

	return &Application{
		log:   log,
		store: store,
		codes: codes,
		server: server.NewServer(r,
			server.WithServerAddr(cfg.ServerAddr),
			server.WithLogger(log),
		),
		expiry: wallet.NewExpiryDaemon(manager,
			wallet.WithExpiryLogger(log),
			wallet.WithExpiryInterval(cfg.DepositExpiryInterval),
		),
		sweeper: codestore.NewSweeper(codes,
			codestore.WithLogger(log),
			codestore.WithInterval(cfg.CodeSweepInterval),
		),
	}, nil
}

// Run serves HTTP and runs the background daemons until a signal arrives or one of them fails.
func (a *Application) Run() error {
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 3)

	var wg sync.WaitGroup

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := fn(ctx); err != nil {
				errChan <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	run("server.Start", a.server.Start)
	run("expiry.Run", a.expiry.Run)
	run("sweeper.Run", a.sweeper.Run)

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	var err error

	select {
	case err = <-errChan:

	case <-quit:
		a.log.Info("Gracefully shutting down application...")
	}

	cancel()
	wg.Wait()

	return err
}

func (a *Application) Close() {
	if err := a.codes.Close(); err != nil {
		a.log.Error("codes.Close()", slog.Any("error", err))
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("storage.Close()", slog.Any("error", err))
	}
}
