// Package db is the PostgreSQL persistence layer, built on pgx. Query
// building goes through squirrel, decimal scores go through the
// shopspring integration registered on every connection.
package db

import (
	"context"

	"github.com/Masterminds/squirrel"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func init() {
	// Set dollar placeholder format for squirrel
	squirrel.StatementBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// querier is the slice of pgx shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type DB struct {
	conn querier

	// pool is nil on transaction-bound instances.
	pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{conn: pool, pool: pool}, nil
}

func (s *DB) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InTransaction runs fn with a DB bound to a single transaction, which is
// rolled back if fn errors. Nested calls join the transaction in progress.
func (s *DB) InTransaction(ctx context.Context, fn func(tx *DB) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&DB{conn: tx})
	})
}

// AdvisoryXactLock blocks until the transaction-scoped advisory lock for
// key is acquired. The lock releases with the surrounding transaction.
func (s *DB) AdvisoryXactLock(ctx context.Context, key int64) error {
	_, err := s.conn.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key)
	return err
}
