package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key_hash   TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteBackend stores entries in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens dsn in WAL mode and creates the table.
func NewSQLiteBackend(ctx context.Context, dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Read(ctx context.Context, hash string) ([]byte, error) {
	var entry string
	err := b.db.QueryRowContext(ctx,
		`SELECT entry FROM cache_entries WHERE key_hash = ?`, hash,
	).Scan(&entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read entry")
	}
	return []byte(entry), nil
}

func (b *SQLiteBackend) Write(ctx context.Context, hash string, entry []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key_hash, entry, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key_hash) DO UPDATE SET entry = excluded.entry, updated_at = excluded.updated_at`,
		hash, string(entry), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: write entry")
}

func (b *SQLiteBackend) Delete(ctx context.Context, hash string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key_hash = ?`, hash)
	return eris.Wrap(err, "sqlite: delete entry")
}

func (b *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key_hash FROM cache_entries`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list keys")
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan key")
		}
		hashes = append(hashes, h)
	}
	return hashes, eris.Wrap(rows.Err(), "sqlite: iterate keys")
}

func (b *SQLiteBackend) DeleteAll(ctx context.Context) (int, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
