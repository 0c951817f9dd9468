// Package snapshot keeps the document buckets of the in-memory store in a SQL
// table named state, one JSON payload per entity type.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"

	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/pkg/domain"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	// PayloadType is the column type for bucket payloads.
	PayloadType string
	// Upsert writes one bucket; it takes exactly (bucket, payload).
	Upsert string
}

var (
	SQLite = Dialect{
		PayloadType: "BLOB",
		Upsert:      `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
	}
	Postgres = Dialect{
		PayloadType: "JSONB",
		Upsert:      `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
	}
)

// Table reads and writes bucket snapshots through db. Writes are serialised
// so two commits never interleave their upserts.
type Table struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

// Open creates the state table when missing.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Table, error) {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload %s NOT NULL
	)`, dialect.PayloadType)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Table{db: db, dialect: dialect}, nil
}

// Load decodes every stored bucket. Empty payloads are skipped.
func (t *Table) Load(ctx context.Context) (memory.Snapshot, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := memory.Snapshot{}
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		entity := domain.EntityType(bucket)
		records, err := memory.DecodeBucket(entity, payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", entity, err)
		}
		out[entity] = records
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return out, nil
}

// Save upserts the touched buckets of state in a single transaction, in
// entity name order.
func (t *Table) Save(ctx context.Context, state memory.Snapshot, touched map[domain.EntityType]struct{}) error {
	if len(touched) == 0 {
		return nil
	}
	entities := make([]domain.EntityType, 0, len(touched))
	for entity := range touched {
		entities = append(entities, entity)
	}
	slices.Sort(entities)

	t.mu.Lock()
	defer t.mu.Unlock()
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, entity := range entities {
		data, err := memory.EncodeBucket(state[entity])
		if err != nil {
			return fmt.Errorf("encode %s: %w", entity, err)
		}
		if _, err := tx.ExecContext(ctx, t.dialect.Upsert, string(entity), data); err != nil {
			return fmt.Errorf("upsert %s: %w", entity, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Hydrate builds an in-memory store holding everything saved in t.
func (t *Table) Hydrate(ctx context.Context, engine *domain.RulesEngine) (*memory.Store, error) {
	state, err := t.Load(ctx)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(state)
	return mem, nil
}

// Commit runs fn on mem and, when it succeeds, saves every bucket fn wrote.
// A failed save is returned even though the in-memory change stands.
func (t *Table) Commit(ctx context.Context, mem *memory.Store, fn func(domain.Transaction) error) (domain.Result, error) {
	touched := make(map[domain.EntityType]struct{})
	res, err := mem.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return fn(memory.TrackWrites(tx, touched))
	})
	if err != nil {
		return res, err
	}
	return res, t.Save(ctx, mem.ExportState(), touched)
}
