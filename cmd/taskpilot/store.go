package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/internal/infrastructure/config"
	"github.com/atomm/taskpilot/internal/infrastructure/db/csvstore"
	"github.com/atomm/taskpilot/internal/infrastructure/db/memory"
	"github.com/atomm/taskpilot/internal/infrastructure/db/mongo"
	"github.com/atomm/taskpilot/internal/infrastructure/db/redis"
	"github.com/atomm/taskpilot/internal/infrastructure/db/sqlite"
)

// closer releases a backend on shutdown.
type closer func(ctx context.Context) error

func noClose(context.Context) error { return nil }

// openStore selects the record store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.RecordStore, closer, error) {
	switch cfg.Store.Driver {
	case config.DriverCSV:
		s, err := csvstore.New(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.Store.DataDir).Msg("using csv record store")
		return s, noClose, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("using sqlite record store")
		return s, func(context.Context) error { return s.Close() }, nil

	case config.DriverMongo:
		s, err := mongo.Open(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("using mongo record store")
		return s, s.Close, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory record store, nothing survives a restart")
		return memory.New(), noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// openDirectory uses Redis when REDIS_ADDR is set.
func openDirectory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.SessionDirectory, closer, error) {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("using in-memory session directory")
		return session.NewMemoryDirectory(), noClose, nil
	}

	d, err := redis.Open(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis session directory")
	return d, func(context.Context) error { return d.Close() }, nil
}
