// Package database opens the Postgres pool and exposes it to repositories
// through database/sql so the same handle serves sqlx and goose.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/termstore/pkg/configuration"
)

const DriverName = "pgx"

// DB bundles the native pool with its sqlx view.
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sqlx.DB
}

func NewPool(ctx context.Context, opts configuration.DatabaseOptions) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(opts.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Wrap exposes pool through database/sql and sqlx.
func Wrap(pool *pgxpool.Pool) *DB {
	return &DB{
		Pool: pool,
		SQL:  sqlx.NewDb(stdlib.OpenDBFromPool(pool), DriverName),
	}
}

func Open(ctx context.Context, opts configuration.DatabaseOptions) (*DB, error) {
	pool, err := NewPool(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Wrap(pool), nil
}

func (d *DB) Close() {
	_ = d.SQL.Close()
	d.Pool.Close()
}
