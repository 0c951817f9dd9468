package domain

import (
	"errors"
	"sort"
	"testing"
	"time"
)

func TestNewRecordCoversEveryEntity(t *testing.T) {
	for _, entity := range EntityTypes() {
		rec, err := NewRecord(entity)
		if err != nil {
			t.Fatalf("new record %s: %v", entity, err)
		}
		if rec.Entity() != entity {
			t.Fatalf("factory for %s built %s", entity, rec.Entity())
		}
	}
	if _, err := NewRecord("nope"); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}

func TestCloneRecordIsDeep(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rb := &RoastBatch{
		Rounds:      []RoastRound{{RoundNo: 1, InputQty: 10}},
		ChargeStart: &start,
		Attributes: map[string]any{
			"outputs": []any{map[string]any{"item_code": "ROAST-1", "qty": 8.0}},
		},
	}
	cp := CloneRecord(rb).(*RoastBatch)
	cp.Rounds[0].InputQty = 99
	*cp.ChargeStart = start.Add(time.Hour)
	cp.Attributes["outputs"].([]any)[0].(map[string]any)["qty"] = 1.0

	if rb.Rounds[0].InputQty != 10 {
		t.Fatalf("rounds shared between clones")
	}
	if !rb.ChargeStart.Equal(start) {
		t.Fatalf("charge start shared between clones")
	}
	if rb.Attributes["outputs"].([]any)[0].(map[string]any)["qty"] != 8.0 {
		t.Fatalf("attributes shared between clones")
	}
	if CloneRecord(nil) != nil {
		t.Fatalf("expected nil clone for nil record")
	}
}

func TestGenericHelpers(t *testing.T) {
	tx := newMapTx()
	created, err := Create(tx, Warehouse{Base: Base{ID: "Stores - CR"}, Company: "CR"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "Stores - CR" {
		t.Fatalf("unexpected id %q", created.ID)
	}

	updated, err := Update(tx, created.ID, func(w *Warehouse) error {
		w.Disabled = true
		return nil
	})
	if err != nil || !updated.Disabled {
		t.Fatalf("update: %+v %v", updated, err)
	}

	got, ok := Find[Warehouse](tx, created.ID)
	if !ok || !got.Disabled {
		t.Fatalf("find after update: %+v %v", got, ok)
	}
	if _, err := Get[Warehouse](tx, "missing"); !errors.As(err, &ErrNotFound{}) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Update(tx, "missing", func(*Warehouse) error { return nil }); err == nil {
		t.Fatalf("expected update of missing record to fail")
	}

	if n := len(List[Warehouse](tx)); n != 1 {
		t.Fatalf("expected one warehouse, got %d", n)
	}
	if n := len(Select(tx, func(w Warehouse) bool { return !w.Disabled })); n != 0 {
		t.Fatalf("expected no enabled warehouses, got %d", n)
	}

	if got := Touched[Warehouse](tx.changes); len(got) != 2 {
		t.Fatalf("expected two touched warehouse states, got %d", len(got))
	}
	if err := Delete[Warehouse](tx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := Removed[Warehouse](tx.changes); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("expected removed warehouse, got %+v", got)
	}
}

type mapTx struct {
	records map[EntityType]map[string]Record
	changes []Change
}

func newMapTx() *mapTx {
	return &mapTx{records: make(map[EntityType]map[string]Record)}
}

func (m *mapTx) Lookup(entity EntityType, id string) (Record, bool) {
	rec, ok := m.records[entity][id]
	if !ok {
		return nil, false
	}
	return CloneRecord(rec), true
}

func (m *mapTx) Scan(entity EntityType) []Record {
	ids := make([]string, 0, len(m.records[entity]))
	for id := range m.records[entity] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, CloneRecord(m.records[entity][id]))
	}
	return out
}

func (m *mapTx) Insert(rec Record) (Record, error) {
	bucket := m.records[rec.Entity()]
	if bucket == nil {
		bucket = make(map[string]Record)
		m.records[rec.Entity()] = bucket
	}
	bucket[rec.Meta().ID] = CloneRecord(rec)
	m.changes = append(m.changes, Change{Entity: rec.Entity(), Action: ActionCreate, After: CloneRecord(rec)})
	return CloneRecord(rec), nil
}

func (m *mapTx) Replace(rec Record) (Record, error) {
	before := m.records[rec.Entity()][rec.Meta().ID]
	m.records[rec.Entity()][rec.Meta().ID] = CloneRecord(rec)
	m.changes = append(m.changes, Change{Entity: rec.Entity(), Action: ActionUpdate, Before: before, After: CloneRecord(rec)})
	return CloneRecord(rec), nil
}

func (m *mapTx) Remove(entity EntityType, id string) error {
	before, ok := m.records[entity][id]
	if !ok {
		return ErrNotFound{Entity: entity, ID: id}
	}
	delete(m.records[entity], id)
	m.changes = append(m.changes, Change{Entity: entity, Action: ActionDelete, Before: before})
	return nil
}

func (m *mapTx) Now() time.Time { return time.Unix(0, 0).UTC() }
