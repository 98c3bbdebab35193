// Package backend opens the persistence gateway selected in configuration.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/intent-api/backend/internal/storage"
	"github.com/intent-api/backend/internal/storage/postgres"
	"github.com/intent-api/backend/internal/storage/sqlite"
	"github.com/intent-api/backend/pkg/config"
	"github.com/intent-api/backend/pkg/logger"
	"github.com/intent-api/backend/pkg/retry"
)

type schemaGateway interface {
	storage.Gateway
	InitSchema() error
}

// Open connects to the configured store, waits for it to answer (with
// backoff, since the database may still be starting) and ensures the schema
// exists.
func Open(ctx context.Context, cfg config.DatabaseConfig) (storage.Gateway, error) {
	var gw schemaGateway

	switch cfg.Driver {
	case "sqlite":
		c, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		gw = c
	case "postgres":
		c, err := postgres.NewClient(postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, err
		}
		gw = c
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	retryCfg := retry.DefaultConfig("database-ping")
	retryCfg.Logger = logger.Log
	if err := retry.Do(ctx, retryCfg, gw.Ping); err != nil {
		gw.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if err := gw.InitSchema(); err != nil {
		gw.Close()
		return nil, err
	}

	logger.Info("Persistence gateway ready", zap.String("driver", cfg.Driver))
	return gw, nil
}
