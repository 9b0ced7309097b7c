package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"campus-delivery/bot"
	"campus-delivery/config"
	"campus-delivery/db"
	"campus-delivery/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogger(cfg.Log)

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(cfg)
	} else {
		err = run(cfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("exit")
	}
}

// run serves updates until SIGINT/SIGTERM. Returning, rather than exiting,
// lets the deferred db.Close run.
func run(cfg *config.Config) error {
	if cfg.Telegram.Token == "" {
		return errors.New("TOKEN not set")
	}

	openStore, err := initStore(cfg)
	defer db.Close()
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.Store.Driver, err)
	}

	api, err := services.NewAPIClient(cfg.API.BaseURL, cfg.API.Timeout)
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	b, err := bot.New(cfg, api, openStore)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("shutting down")
		b.Stop()
	}()

	log.Info().Str("api", cfg.API.BaseURL).Str("store", cfg.Store.Driver).Msg("bot started")
	b.Start()
	return nil
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initStore opens the configured backend and returns a factory of per-user stores.
func initStore(cfg *config.Config) (bot.StoreFactory, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		if err := db.Init(cfg.DB); err != nil {
			return nil, err
		}
		if cfg.Store.AutoMigrate {
			if err := applyMigrations(context.Background()); err != nil {
				return nil, err
			}
		}
		return func(tgUserID int64) services.Store {
			return services.NewPGStore(db.Pool, tgUserID)
		}, nil
	case config.StoreSQLite:
		if err := db.InitSQLite(cfg.Store.SQLitePath); err != nil {
			return nil, err
		}
		if err := migrateSQLite(); err != nil {
			return nil, err
		}
		return func(tgUserID int64) services.Store {
			return services.NewSQLiteStore(db.SQLite, tgUserID)
		}, nil
	default:
		var mu sync.Mutex
		stores := make(map[int64]*services.MemoryStore)
		return func(tgUserID int64) services.Store {
			mu.Lock()
			defer mu.Unlock()
			s, ok := stores[tgUserID]
			if !ok {
				s = services.NewMemoryStore()
				stores[tgUserID] = s
			}
			return s
		}, nil
	}
}

// runMigrate creates the storefront_kv table for the configured driver.
func runMigrate(cfg *config.Config) error {
	defer db.Close()
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		if err := db.InitSQLite(cfg.Store.SQLitePath); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		if err := migrateSQLite(); err != nil {
			return err
		}
	case config.StorePostgres:
		if err := db.Init(cfg.DB); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		if err := applyMigrations(context.Background()); err != nil {
			return err
		}
	default:
		log.Info().Str("driver", cfg.Store.Driver).Msg("nothing to migrate: set STORE_DRIVER=postgres or sqlite")
		return nil
	}
	log.Info().Str("driver", cfg.Store.Driver).Msg("migrations complete")
	return nil
}
