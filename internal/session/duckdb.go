package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBStore keeps snapshots in a DuckDB table, one row per key.
type DuckDBStore struct {
	db *sql.DB
}

// DuckDBConfig locates the database file.
type DuckDBConfig struct {
	DataDir string
	DBName  string
}

// OpenDuckDB opens (or creates) <DataDir>/duckdb/<DBName>.duckdb and makes
// sure the sessions table exists.
func OpenDuckDB(cfg DuckDBConfig) (*DuckDBStore, error) {
	dir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(dir, cfg.DBName+".duckdb"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		key VARCHAR PRIMARY KEY,
		body VARCHAR NOT NULL,
		saved_at TIMESTAMP DEFAULT current_timestamp
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &DuckDBStore{db: db}, nil
}

func (s *DuckDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (s *DuckDBStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (key, body, saved_at) VALUES (?, ?, current_timestamp)`,
		key, string(data))
	return err
}

func (s *DuckDBStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key)
	return err
}

func (s *DuckDBStore) Close() error { return s.db.Close() }
