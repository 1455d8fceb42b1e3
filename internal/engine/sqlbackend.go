package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const recordsDDL = `CREATE TABLE IF NOT EXISTS canvas_records (
  record_key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL
)`

// SQLBackend keeps records in a single key/value table. The same statements run
// on sqlite and postgres.
type SQLBackend struct {
	db *sql.DB
}

// Connect opens and pings a database.
func Connect(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if driverName == DriverSQLite {
		// Every sqlite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	return db, nil
}

// NewSQLBackend creates the records table if it is missing.
func NewSQLBackend(ctx context.Context, db *sql.DB) (*SQLBackend, error) {
	if _, err := db.ExecContext(ctx, recordsDDL); err != nil {
		return nil, err
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	query := `SELECT value FROM canvas_records WHERE record_key = $1`
	var value string
	err := b.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (b *SQLBackend) Write(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrInvalidKey
	}
	query := `INSERT INTO canvas_records (record_key, value, updated_at) VALUES ($1, $2, $3)
	 ON CONFLICT (record_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	_, err := b.db.ExecContext(ctx, query, key, string(data), time.Now().UTC())
	return err
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM canvas_records WHERE record_key = $1`
	_, err := b.db.ExecContext(ctx, query, key)
	return err
}

// Close closes the underlying database.
func (b *SQLBackend) Close() error {
	return b.db.Close()
}
