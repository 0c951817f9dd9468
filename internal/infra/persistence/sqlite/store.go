// Package sqlite keeps the roastery document store in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/internal/infra/persistence/snapshot"
	"coffeeroaster/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "coffeeroaster.db"

// Store saves changed buckets after every committed transaction.
type Store struct {
	*memory.Store
	db    *sql.DB
	table *snapshot.Table
	path  string
}

// NewStore opens (or creates) the database at path and loads its documents.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	table, err := snapshot.Open(ctx, db, snapshot.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem, err := table.Hydrate(ctx, engine)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &Store{Store: mem, db: db, table: table, path: path}, nil
}

// RunInTransaction commits in memory first and then writes the buckets fn touched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.table.Commit(ctx, s.Store, fn)
}

// DB exposes the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
