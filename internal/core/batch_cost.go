package core

import (
	"context"

	"coffeeroaster/internal/costing"
	"coffeeroaster/pkg/domain"
)

// SubmitBatchCost recomputes a batch cost and posts its journal entry. The
// posting is idempotent: an existing entry tagged against the batch cost is
// reused and nothing new is written.
func (s *Service) SubmitBatchCost(ctx context.Context, id string) (domain.BatchCost, domain.JournalEntry, Result, error) {
	var (
		submitted domain.BatchCost
		journal   domain.JournalEntry
	)
	res, err := s.run(ctx, "submit_batch_cost", domain.EntityBatchCost, domain.ActionUpdate, func(tx domain.Transaction) error {
		bc, err := domain.Get[domain.BatchCost](tx, id)
		if err != nil {
			return err
		}
		if bc.DocStatus == domain.DocStatusCancelled {
			return domain.Invalidf("Batch Cost %s is cancelled.", id)
		}
		s.recomputeBatchCost(tx, &bc)
		if bc.PostingDate.IsZero() {
			bc.PostingDate = s.today()
		}

		if existing, ok := postedJournal(tx, id); ok {
			journal = existing
			s.logger.Info("journal entry already posted", "batch_cost", id, "journal_entry", existing.ID)
		} else {
			je, err := costing.BuildJournal(bc, bc.PostingDate)
			if err != nil {
				return err
			}
			if err := costing.CheckAccounts(tx, je); err != nil {
				return err
			}
			je.DocStatus = domain.DocStatusSubmitted
			journal, err = insert(s, tx, je)
			if err != nil {
				return err
			}
			s.logger.Info("journal entry posted", "batch_cost", id, "journal_entry", journal.ID, "total", journal.TotalDebit.StringFixed(2))
		}

		bc.JournalEntry = journal.ID
		bc.DocStatus = domain.DocStatusSubmitted
		submitted, err = domain.Update[domain.BatchCost](tx, id, func(cur *domain.BatchCost) error {
			*cur = bc
			return nil
		})
		return err
	}, constID(id))
	return submitted, journal, res, err
}

// CancelBatchCost cancels a submitted batch cost and its journal entry.
func (s *Service) CancelBatchCost(ctx context.Context, id string) (domain.BatchCost, Result, error) {
	var cancelled domain.BatchCost
	res, err := s.run(ctx, "cancel_batch_cost", domain.EntityBatchCost, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		cancelled, err = domain.Update[domain.BatchCost](tx, id, func(bc *domain.BatchCost) error {
			if bc.DocStatus != domain.DocStatusSubmitted {
				return domain.Invalidf("Batch Cost %s is not submitted.", id)
			}
			bc.DocStatus = domain.DocStatusCancelled
			return nil
		})
		if err != nil {
			return err
		}
		je, ok := postedJournal(tx, id)
		if !ok {
			return nil
		}
		_, err = domain.Update[domain.JournalEntry](tx, je.ID, func(cur *domain.JournalEntry) error {
			cur.DocStatus = domain.DocStatusCancelled
			return nil
		})
		return err
	}, constID(id))
	return cancelled, res, err
}

// postedJournal finds the submitted journal entry tagged against the batch
// cost.
func postedJournal(view domain.TransactionView, batchCostID string) (domain.JournalEntry, bool) {
	found := domain.Select(view, func(je domain.JournalEntry) bool {
		return je.DocStatus == domain.DocStatusSubmitted && costing.PostedFor(je, batchCostID)
	})
	if len(found) == 0 {
		return domain.JournalEntry{}, false
	}
	return found[0], true
}
