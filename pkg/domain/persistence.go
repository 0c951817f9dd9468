package domain

import (
	"context"
	"fmt"
	"time"
)

// TransactionView provides read-only access to snapshot data for rules and
// report queries. Returned records are copies.
type TransactionView interface {
	Lookup(entity EntityType, id string) (Record, bool)
	// Scan returns every record of the entity ordered by ID.
	Scan(entity EntityType) []Record
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope.
type Transaction interface {
	TransactionView
	// Insert stores a new record, assigning an ID when empty.
	Insert(rec Record) (Record, error)
	// Replace overwrites an existing record with the same ID.
	Replace(rec Record) (Record, error)
	Remove(entity EntityType, id string) error
	// Now is the transaction timestamp used for CreatedAt/UpdatedAt.
	Now() time.Time
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}

// RecordPtr constrains generic helpers to pointer record types.
type RecordPtr[T any] interface {
	*T
	Record
}

// EntityOf returns the entity type of the record type T.
func EntityOf[T any, PT RecordPtr[T]]() EntityType {
	var zero T
	return PT(&zero).Entity()
}

// Find looks up a record of type T by ID.
func Find[T any, PT RecordPtr[T]](view TransactionView, id string) (T, bool) {
	var zero T
	if id == "" {
		return zero, false
	}
	rec, ok := view.Lookup(EntityOf[T, PT](), id)
	if !ok {
		return zero, false
	}
	typed, ok := rec.(PT)
	if !ok {
		return zero, false
	}
	return *typed, true
}

// Get is Find returning ErrNotFound when the record is missing.
func Get[T any, PT RecordPtr[T]](view TransactionView, id string) (T, error) {
	rec, ok := Find[T, PT](view, id)
	if !ok {
		return rec, ErrNotFound{Entity: EntityOf[T, PT](), ID: id}
	}
	return rec, nil
}

// List returns all records of type T ordered by ID.
func List[T any, PT RecordPtr[T]](view TransactionView) []T {
	recs := view.Scan(EntityOf[T, PT]())
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if typed, ok := rec.(PT); ok {
			out = append(out, *typed)
		}
	}
	return out
}

// Select returns the records of type T matching keep.
func Select[T any, PT RecordPtr[T]](view TransactionView, keep func(T) bool) []T {
	var out []T
	for _, rec := range List[T, PT](view) {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Create inserts rec and returns the stored copy.
func Create[T any, PT RecordPtr[T]](tx Transaction, rec T) (T, error) {
	var zero T
	stored, err := tx.Insert(PT(&rec))
	if err != nil {
		return zero, err
	}
	typed, ok := stored.(PT)
	if !ok {
		return zero, fmt.Errorf("unexpected record type %T", stored)
	}
	return *typed, nil
}

// Update applies mutate to a copy of the record and replaces it.
func Update[T any, PT RecordPtr[T]](tx Transaction, id string, mutate func(*T) error) (T, error) {
	var zero T
	rec, ok := tx.Lookup(EntityOf[T, PT](), id)
	if !ok {
		return zero, ErrNotFound{Entity: EntityOf[T, PT](), ID: id}
	}
	typed, ok := rec.(PT)
	if !ok {
		return zero, fmt.Errorf("unexpected record type %T", rec)
	}
	if err := mutate((*T)(typed)); err != nil {
		return zero, err
	}
	typed.Meta().ID = id
	stored, err := tx.Replace(typed)
	if err != nil {
		return zero, err
	}
	return *stored.(PT), nil
}

// Delete removes the record of type T with the given ID.
func Delete[T any, PT RecordPtr[T]](tx Transaction, id string) error {
	return tx.Remove(EntityOf[T, PT](), id)
}

// Touched returns the post-change state of every created or updated record of
// type T in changes.
func Touched[T any, PT RecordPtr[T]](changes []Change) []T {
	entity := EntityOf[T, PT]()
	var out []T
	for _, ch := range changes {
		if ch.Entity != entity || ch.After == nil {
			continue
		}
		if typed, ok := ch.After.(PT); ok {
			out = append(out, *typed)
		}
	}
	return out
}

// Removed returns the pre-deletion state of deleted records of type T.
func Removed[T any, PT RecordPtr[T]](changes []Change) []T {
	entity := EntityOf[T, PT]()
	var out []T
	for _, ch := range changes {
		if ch.Entity != entity || ch.Action != ActionDelete || ch.Before == nil {
			continue
		}
		if typed, ok := ch.Before.(PT); ok {
			out = append(out, *typed)
		}
	}
	return out
}

// TouchedIDs returns the unique IDs of entity records created or updated in
// changes, in first-touch order. Rules re-read the current state through the
// view since a record may change several times in one transaction.
func TouchedIDs(changes []Change, entity EntityType) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ch := range changes {
		if ch.Entity != entity || ch.After == nil {
			continue
		}
		id := ch.After.Meta().ID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
