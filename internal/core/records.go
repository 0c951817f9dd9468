package core

import (
	"context"
	"fmt"

	"coffeeroaster/pkg/domain"
)

// Create runs the save hooks for rec and stores it as a new draft.
func Create[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, rec T) (T, Result, error) {
	entity := domain.EntityOf[T, PT]()
	var created T
	res, err := s.run(ctx, "create_"+string(entity), entity, domain.ActionCreate, func(tx domain.Transaction) error {
		p := PT(&rec)
		if id := p.Meta().ID; id != "" {
			if _, exists := tx.Lookup(entity, id); exists {
				return fmt.Errorf("%s %q already exists", entity, id)
			}
		}
		setDocStatus(p, domain.DocStatusDraft)
		s.assignName(tx, p)
		if err := s.beforeSave(tx, p); err != nil {
			return err
		}
		var err error
		created, err = domain.Create[T, PT](tx, rec)
		return err
	}, func() string { return PT(&created).Meta().ID })
	return created, res, err
}

// Update applies mutate to a draft document and re-runs the save hooks.
// Submitted and cancelled documents are read-only.
func Update[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, id string, mutate func(*T) error) (T, Result, error) {
	entity := domain.EntityOf[T, PT]()
	var updated T
	res, err := s.run(ctx, "update_"+string(entity), entity, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		updated, err = domain.Update[T, PT](tx, id, func(cur *T) error {
			status, submittable := docStatus(PT(cur))
			if submittable && status != domain.DocStatusDraft {
				return domain.Invalidf("Cannot edit %s %s: document is %s.", entity, id, status)
			}
			if err := mutate(cur); err != nil {
				return err
			}
			setDocStatus(PT(cur), status)
			return s.beforeSave(tx, PT(cur))
		})
		return err
	}, constID(id))
	return updated, res, err
}

// Save creates rec when its ID is unused and otherwise replaces the stored
// draft with it.
func Save[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, rec T) (T, Result, error) {
	id := PT(&rec).Meta().ID
	if id != "" {
		exists := false
		_ = s.store.View(ctx, func(v domain.TransactionView) error {
			_, exists = v.Lookup(domain.EntityOf[T, PT](), id)
			return nil
		})
		if exists {
			return Update[T, PT](ctx, s, id, func(cur *T) error {
				*cur = rec
				return nil
			})
		}
	}
	return Create[T, PT](ctx, s, rec)
}

// Delete removes a draft document. Submitted documents must be cancelled
// and are kept.
func Delete[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, id string) (Result, error) {
	entity := domain.EntityOf[T, PT]()
	return s.run(ctx, "delete_"+string(entity), entity, domain.ActionDelete, func(tx domain.Transaction) error {
		rec, err := domain.Get[T, PT](tx, id)
		if err != nil {
			return err
		}
		if status, ok := docStatus(PT(&rec)); ok && status == domain.DocStatusSubmitted {
			return domain.Invalidf("Cannot delete submitted %s %s.", entity, id)
		}
		return domain.Delete[T, PT](tx, id)
	}, constID(id))
}

// Get loads one document.
func Get[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, id string) (T, error) {
	var out T
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		var err error
		out, err = domain.Get[T, PT](v, id)
		return err
	})
	return out, err
}

// List returns every document of type T ordered by name.
func List[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service) ([]T, error) {
	var out []T
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		out = domain.List[T, PT](v)
		return nil
	})
	return out, err
}

// docStatus reports the lifecycle state of submittable documents.
func docStatus(rec domain.Record) (domain.DocStatus, bool) {
	switch r := rec.(type) {
	case *domain.StockEntry:
		return r.DocStatus, true
	case *domain.RoastBatch:
		return r.DocStatus, true
	case *domain.BatchCost:
		return r.DocStatus, true
	case *domain.JournalEntry:
		return r.DocStatus, true
	case *domain.SalesInvoice:
		return r.DocStatus, true
	case *domain.GreenBeanAssessment:
		return r.DocStatus, true
	case *domain.CuppingAssessment:
		return r.DocStatus, true
	case *domain.RTMAssignment:
		return r.DocStatus, true
	case *domain.RoutePlan:
		return r.DocStatus, true
	}
	return domain.DocStatusDraft, false
}

func setDocStatus(rec domain.Record, status domain.DocStatus) {
	switch r := rec.(type) {
	case *domain.StockEntry:
		r.DocStatus = status
	case *domain.RoastBatch:
		r.DocStatus = status
	case *domain.BatchCost:
		r.DocStatus = status
	case *domain.JournalEntry:
		r.DocStatus = status
	case *domain.SalesInvoice:
		r.DocStatus = status
	case *domain.GreenBeanAssessment:
		r.DocStatus = status
	case *domain.CuppingAssessment:
		r.DocStatus = status
	case *domain.RTMAssignment:
		r.DocStatus = status
	case *domain.RoutePlan:
		r.DocStatus = status
	}
}
