// Package postgres keeps the roastery document store in a Postgres JSONB
// state table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/internal/infra/persistence/snapshot"
	"coffeeroaster/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = "postgres://localhost/coffeeroaster?sslmode=disable"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store runs transactions in memory and mirrors the touched buckets to Postgres.
type Store struct {
	*memory.Store
	db    *sql.DB
	table *snapshot.Table
}

// NewStore connects to dsn (DefaultDSN when empty) and loads the saved documents.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	open := sqlOpen
	openMu.Unlock()
	db, err := open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	table, err := snapshot.Open(ctx, db, snapshot.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem, err := table.Hydrate(ctx, engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: mem, db: db, table: table}, nil
}

// RunInTransaction commits in memory first and then writes the buckets fn touched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	return s.table.Commit(ctx, s.Store, fn)
}

// DB exposes the connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen replaces the driver opener for tests. Call the returned
// function to restore it.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
