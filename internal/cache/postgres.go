package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the Postgres backend needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS grant_cache (
	key_hash   TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend stores entries in a shared Postgres table so several
// workers can reuse each other's results.
type PostgresBackend struct {
	pool Pool
}

// NewPostgresBackend connects, pings, and creates the table.
func NewPostgresBackend(ctx context.Context, connString string) (*PostgresBackend, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	b := &PostgresBackend{pool: pool}
	if err := b.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgresBackendWithPool wraps an existing pool.
func NewPostgresBackendWithPool(pool Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

// Migrate creates the cache table if it does not exist.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (b *PostgresBackend) Read(ctx context.Context, hash string) ([]byte, error) {
	var entry string
	err := b.pool.QueryRow(ctx,
		`SELECT entry FROM grant_cache WHERE key_hash = $1`, hash,
	).Scan(&entry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read entry")
	}
	return []byte(entry), nil
}

func (b *PostgresBackend) Write(ctx context.Context, hash string, entry []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO grant_cache (key_hash, entry, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key_hash) DO UPDATE SET entry = $2, updated_at = $3`,
		hash, string(entry), time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: write entry")
}

func (b *PostgresBackend) Delete(ctx context.Context, hash string) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM grant_cache WHERE key_hash = $1`, hash)
	return eris.Wrap(err, "postgres: delete entry")
}

func (b *PostgresBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.pool.Query(ctx, `SELECT key_hash FROM grant_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list keys")
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "postgres: scan key")
		}
		hashes = append(hashes, h)
	}
	return hashes, eris.Wrap(rows.Err(), "postgres: iterate keys")
}

func (b *PostgresBackend) DeleteAll(ctx context.Context) (int, error) {
	tag, err := b.pool.Exec(ctx, `DELETE FROM grant_cache`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all")
	}
	return int(tag.RowsAffected()), nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
