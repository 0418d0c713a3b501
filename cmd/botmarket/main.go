package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/andymarkow/botmarket/internal/app"
	"github.com/andymarkow/botmarket/internal/codestore/memstore"
	"github.com/andymarkow/botmarket/internal/config"
	"github.com/urfave/cli/v2"
)

var errDatabaseURIRequired = errors.New("database uri is required")

func main() {
	application := &cli.App{
		Name:  "botmarket",
		Usage: "Marketplace wallet backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run-address", Aliases: []string{"a"}, Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "database-uri", Aliases: []string{"d"}, Usage: "Postgres connection string"},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "Log level"},
			&cli.StringFlag{Name: "jwt-secret", Aliases: []string{"j"}, Usage: "JWT signing secret"},
			&cli.StringFlag{Name: "redis-addr", Aliases: []string{"r"}, Usage: "Redis address for verification codes"},
			&cli.StringFlag{Name: "rates-uri", Usage: "Exchange rate service base URL"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and background daemons",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations",
				Action: migrate,
			},
			{
				Name:  "promote-admin",
				Usage: "Grant admin rights to a registered user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "User email", Required: true},
				},
				Action: promoteAdmin,
			},
		},
	}

	if err := application.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the environment and applies the flags that were set explicitly.
func loadConfig(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return cfg, nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	if c.IsSet("run-address") {
		cfg.ServerAddr = c.String("run-address")
	}
	if c.IsSet("database-uri") {
		cfg.DatabaseURI = c.String("database-uri")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("jwt-secret") {
		cfg.JWTSecretKey = c.String("jwt-secret")
	}
	if c.IsSet("redis-addr") {
		cfg.RedisAddr = c.String("redis-addr")
	}
	if c.IsSet("rates-uri") {
		cfg.RatesURI = c.String("rates-uri")
	}

	logg, err := app.NewLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}

	return cfg, logg, nil
}

func serve(c *cli.Context) error {
	cfg, logg, err := loadConfig(c)
	if err != nil {
		return err
	}

	application, err := app.New(c.Context, cfg, logg)
	if err != nil {
		return fmt.Errorf("app.New: %w", err)
	}

	return application.Run()
}

func migrate(c *cli.Context) error {
	cfg, logg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if cfg.DatabaseURI == "" {
		return errDatabaseURIRequired
	}

	store, err := app.OpenStorage(c.Context, cfg, logg)
	if err != nil {
		return err
	}

	return store.Close()
}

func promoteAdmin(c *cli.Context) error {
	cfg, logg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if cfg.DatabaseURI == "" {
		return errDatabaseURIRequired
	}

	store, err := app.OpenStorage(c.Context, cfg, logg)
	if err != nil {
		return err
	}
	defer store.Close()

	usr, err := app.NewAccounts(cfg, store, memstore.New(), logg).PromoteAdmin(c.Context, c.String("email"))
	if err != nil {
		return fmt.Errorf("accounts.PromoteAdmin: %w", err)
	}

	logg.Info("User promoted to admin", slog.String("user_id", usr.ID()), slog.String("email", usr.Email()))

	return nil
}
