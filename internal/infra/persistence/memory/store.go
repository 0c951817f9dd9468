// Package memory provides an in-memory implementation of the document store
// used for tests, ephemeral environments and as the transactional core of the
// durable backends.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"coffeeroaster/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Snapshot is a detached copy of the store contents keyed by entity and ID.
type Snapshot map[domain.EntityType]map[string]domain.Record

type memoryState map[domain.EntityType]map[string]domain.Record

// clone copies the bucket index only. Records are immutable once stored and
// buckets are copied on first write (see transaction.bucketForWrite).
func (s memoryState) clone() memoryState {
	out := make(memoryState, len(s))
	for entity, bucket := range s {
		out[entity] = bucket
	}
	return out
}

// Store is an in-memory transactional store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an empty store evaluating the supplied rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  make(memoryState),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.state))
	for entity, bucket := range s.state {
		copied := make(map[string]domain.Record, len(bucket))
		for id, rec := range bucket {
			copied[id] = domain.CloneRecord(rec)
		}
		out[entity] = copied
	}
	return out
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	state := make(memoryState, len(snapshot))
	for entity, bucket := range snapshot {
		copied := make(map[string]domain.Record, len(bucket))
		for id, rec := range bucket {
			if rec == nil {
				continue
			}
			copied[id] = domain.CloneRecord(rec)
		}
		state[entity] = copied
	}
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn against a private copy of the state, evaluates
// the rules engine over the recorded changes and commits when no blocking
// violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state:  s.state.clone(),
		copied: make(map[domain.EntityType]bool),
		now:    s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(view{state: snapshot})
}

type view struct {
	state memoryState
}

func (v view) Lookup(entity domain.EntityType, id string) (domain.Record, bool) {
	rec, ok := v.state[entity][id]
	if !ok {
		return nil, false
	}
	return domain.CloneRecord(rec), true
}

func (v view) Scan(entity domain.EntityType) []domain.Record {
	bucket := v.state[entity]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.CloneRecord(bucket[id]))
	}
	return out
}

type transaction struct {
	state   memoryState
	copied  map[domain.EntityType]bool
	changes []Change
	now     time.Time
}

func (tx *transaction) Lookup(entity domain.EntityType, id string) (domain.Record, bool) {
	return view{state: tx.state}.Lookup(entity, id)
}

func (tx *transaction) Scan(entity domain.EntityType) []domain.Record {
	return view{state: tx.state}.Scan(entity)
}

func (tx *transaction) Now() time.Time { return tx.now }

func (tx *transaction) bucketForWrite(entity domain.EntityType) map[string]domain.Record {
	if !tx.copied[entity] {
		src := tx.state[entity]
		dst := make(map[string]domain.Record, len(src)+1)
		for id, rec := range src {
			dst[id] = rec
		}
		tx.state[entity] = dst
		tx.copied[entity] = true
	}
	return tx.state[entity]
}

func (tx *transaction) Insert(rec domain.Record) (domain.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("insert: nil record")
	}
	stored := domain.CloneRecord(rec)
	meta := stored.Meta()
	if meta.ID == "" {
		meta.ID = newID()
	}
	entity := stored.Entity()
	if _, exists := tx.state[entity][meta.ID]; exists {
		return nil, fmt.Errorf("%s %q already exists", entity, meta.ID)
	}
	meta.CreatedAt = tx.now
	meta.UpdatedAt = tx.now
	tx.bucketForWrite(entity)[meta.ID] = stored
	tx.changes = append(tx.changes, Change{Entity: entity, Action: domain.ActionCreate, After: domain.CloneRecord(stored)})
	return domain.CloneRecord(stored), nil
}

func (tx *transaction) Replace(rec domain.Record) (domain.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("replace: nil record")
	}
	stored := domain.CloneRecord(rec)
	meta := stored.Meta()
	entity := stored.Entity()
	current, ok := tx.state[entity][meta.ID]
	if !ok {
		return nil, domain.ErrNotFound{Entity: entity, ID: meta.ID}
	}
	meta.CreatedAt = current.Meta().CreatedAt
	meta.UpdatedAt = tx.now
	tx.bucketForWrite(entity)[meta.ID] = stored
	tx.changes = append(tx.changes, Change{
		Entity: entity,
		Action: domain.ActionUpdate,
		Before: domain.CloneRecord(current),
		After:  domain.CloneRecord(stored),
	})
	return domain.CloneRecord(stored), nil
}

func (tx *transaction) Remove(entity domain.EntityType, id string) error {
	current, ok := tx.state[entity][id]
	if !ok {
		return domain.ErrNotFound{Entity: entity, ID: id}
	}
	delete(tx.bucketForWrite(entity), id)
	tx.changes = append(tx.changes, Change{Entity: entity, Action: domain.ActionDelete, Before: domain.CloneRecord(current)})
	return nil
}

// EncodeBucket serializes one entity bucket of a snapshot.
func EncodeBucket(bucket map[string]domain.Record) ([]byte, error) {
	if bucket == nil {
		bucket = map[string]domain.Record{}
	}
	return json.Marshal(bucket)
}

// DecodeBucket deserializes an entity bucket produced by EncodeBucket.
func DecodeBucket(entity domain.EntityType, payload []byte) (map[string]domain.Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", entity, err)
	}
	out := make(map[string]domain.Record, len(raw))
	for id, msg := range raw {
		rec, err := domain.NewRecord(entity)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(msg, rec); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", entity, id, err)
		}
		rec.Meta().ID = id
		out[id] = rec
	}
	return out, nil
}

// TrackWrites wraps tx so every entity bucket written through it is recorded
// in touched. Durable backends use it to persist only the changed buckets.
func TrackWrites(tx Transaction, touched map[domain.EntityType]struct{}) Transaction {
	return &trackingTx{Transaction: tx, touched: touched}
}

type trackingTx struct {
	Transaction
	touched map[domain.EntityType]struct{}
}

func (t *trackingTx) Insert(rec domain.Record) (domain.Record, error) {
	out, err := t.Transaction.Insert(rec)
	if err == nil {
		t.touched[out.Entity()] = struct{}{}
	}
	return out, err
}

func (t *trackingTx) Replace(rec domain.Record) (domain.Record, error) {
	out, err := t.Transaction.Replace(rec)
	if err == nil {
		t.touched[out.Entity()] = struct{}{}
	}
	return out, err
}

func (t *trackingTx) Remove(entity domain.EntityType, id string) error {
	err := t.Transaction.Remove(entity, id)
	if err == nil {
		t.touched[entity] = struct{}{}
	}
	return err
}
