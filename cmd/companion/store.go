package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-companion-store/internal/config"
	"github.com/tbourn/go-companion-store/internal/repo"
)

// openedStore is a KeyValueStore plus the handle that releases its medium.
type openedStore struct {
	kv    repo.KeyValueStore
	close func() error
}

// openStore connects to the configured backend. SQLite schemas are migrated
// on open so every command sees the kv_entries table.
func openStore(ctx context.Context, cfg config.Config) (*openedStore, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := repo.NewRedisClient(ctx, repo.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Store.RedisAddr).Int("db", cfg.Store.RedisDB).Msg("redis store ready")
		return &openedStore{kv: repo.NewRedisStore(client, cfg.Store.Prefix), close: client.Close}, nil

	case config.BackendSQLite, "":
		db, err := repo.OpenSQLite(cfg.Store.DBPath, repo.OpenOptions{
			Tracing: cfg.OTEL.Enabled,
			Silent:  cfg.LogLevel != "debug",
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Store.DBPath, err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Store.DBPath).Msg("sqlite store ready")
		return &openedStore{kv: repo.NewSQLStore(db, cfg.Store.Prefix), close: sqlDB.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
