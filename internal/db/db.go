package db

import (
	"context"
	"time"

	"authsystem/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

func NewPostgresConnection(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.GetDSN())
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("dsn", cfg.GetDSNSafe()).Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, oops.Code("DB_PING_FAILED").With("dsn", cfg.GetDSNSafe()).Wrap(err)
	}

	return pool, nil
}
