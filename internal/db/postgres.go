package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes a pgx pool. AppName shows up in pg_stat_activity.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
	AppName  string
}

func (pc PoolConfig) validate() error {
	if pc.MaxConns < 1 {
		return errors.New("max conns must be at least 1")
	}
	if pc.MinConns < 0 || pc.MinConns > pc.MaxConns {
		return fmt.Errorf("min conns must be between 0 and %d", pc.MaxConns)
	}
	return nil
}

// ConnectPostgres opens the pool backing the audit log. Audit writes are
// small and fire after the request's own work, so callers keep the pool narrow.
func ConnectPostgres(ctx context.Context, dsn string, pc PoolConfig) (*pgxpool.Pool, error) {
	if err := pc.validate(); err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = pc.MaxConns
	cfg.MinConns = pc.MinConns
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	if pc.AppName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = pc.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
