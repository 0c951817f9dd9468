package core

import (
	"context"
	"fmt"

	"coffeeroaster/internal/costing"
	"coffeeroaster/pkg/domain"
)

// NewJournalBalancedRule rejects journal entries without lines or whose
// debits and credits differ at two decimals.
func NewJournalBalancedRule() domain.Rule {
	return journalBalancedRule{}
}

type journalBalancedRule struct{}

func (journalBalancedRule) Name() string { return "journal_balanced" }

func (journalBalancedRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityJournalEntry}
}

func (r journalBalancedRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, id := range domain.TouchedIDs(changes, domain.EntityJournalEntry) {
		je, ok := domain.Find[domain.JournalEntry](view, id)
		if !ok {
			continue
		}
		if len(je.Accounts) > 0 && costing.Balanced(je) {
			continue
		}
		debit, credit := je.Totals()
		res.Violations = append(res.Violations, block(r.Name(), domain.EntityJournalEntry, id,
			fmt.Sprintf("journal entry %s is not balanced: debit %s credit %s", id, debit.StringFixed(2), credit.StringFixed(2))))
	}
	return res, nil
}
