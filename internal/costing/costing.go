// Package costing computes batch cost totals and the journal entry that
// moves them into inventory.
package costing

import (
	"time"

	"github.com/shopspring/decimal"

	"coffeeroaster/pkg/domain"
)

// VoucherType is the voucher type of posted batch cost journals.
const VoucherType = "Journal Entry"

// Recompute refreshes line amounts, section totals, cost per kg and revenue.
// outputWeight is the linked roast batch output and always overwrites the
// stored weight when the batch is known.
func Recompute(bc *domain.BatchCost, outputWeight float64, batchKnown bool) {
	if batchKnown {
		bc.OutputWeight = outputWeight
	}
	bc.TotalRawBeansCost = applyAmounts(bc.RawBeanCosts)
	bc.TotalRoastingOverhead = applyAmounts(bc.Overheads)
	bc.TotalPackagingCost = applyAmounts(bc.PackagingCosts)
	bc.TotalBatchCost = bc.TotalRawBeansCost.Add(bc.TotalRoastingOverhead).Add(bc.TotalPackagingCost)

	output := decimal.NewFromFloat(bc.OutputWeight)
	if output.IsZero() {
		bc.CostPerKg = decimal.Zero
	} else {
		bc.CostPerKg = bc.TotalBatchCost.DivRound(output, 4)
	}
	if bc.SellingRate.IsPositive() {
		bc.Revenue = bc.SellingRate.Mul(output)
	}
}

func applyAmounts(lines []domain.CostLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		lines[i].Amount = lines[i].Qty.Mul(lines[i].Rate)
		total = total.Add(lines[i].Amount)
	}
	return total
}

// Profit returns revenue minus total cost and the margin in percent of
// revenue (zero without revenue).
func Profit(bc domain.BatchCost) (profit, marginPct decimal.Decimal) {
	profit = bc.Revenue.Sub(bc.TotalBatchCost)
	if bc.Revenue.IsZero() {
		return profit, decimal.Zero
	}
	return profit, profit.Div(bc.Revenue).Mul(decimal.NewFromInt(100))
}

// BuildJournal creates the journal for a submitted batch cost: the three
// expense accounts are debited with their section totals and the inventory
// account is credited with the batch total. A batch cost with nothing to post
// is rejected. Every line references the batch
// cost so a replay can detect the existing posting.
func BuildJournal(bc domain.BatchCost, postingDate time.Time) (domain.JournalEntry, error) {
	if err := RequireAccounts(bc); err != nil {
		return domain.JournalEntry{}, err
	}
	raw := sectionTotal(bc.RawBeanCosts).Round(2)
	overhead := sectionTotal(bc.Overheads).Round(2)
	packaging := sectionTotal(bc.PackagingCosts).Round(2)
	// The credit is the sum of the rounded debits so the entry always balances.
	total := raw.Add(overhead).Add(packaging)
	if total.IsZero() {
		return domain.JournalEntry{}, domain.Invalidf("Batch Cost %s has no costs to post.", bc.ID)
	}

	line := func(account string, debit, credit decimal.Decimal) domain.JournalLine {
		return domain.JournalLine{
			Account:            account,
			Debit:              debit,
			Credit:             credit,
			AgainstVoucherType: domain.EntityBatchCost,
			AgainstVoucher:     bc.ID,
		}
	}
	je := domain.JournalEntry{
		VoucherType: VoucherType,
		Company:     bc.Company,
		PostingDate: postingDate,
		UserRemark:  "Batch Cost for " + bc.ID,
	}
	// Sections without cost get no line.
	for _, debit := range []struct {
		account string
		amount  decimal.Decimal
	}{
		{bc.RawBeanExpenseAccount, raw},
		{bc.OverheadExpenseAccount, overhead},
		{bc.PackagingExpenseAccount, packaging},
	} {
		if !debit.amount.IsZero() {
			je.Accounts = append(je.Accounts, line(debit.account, debit.amount, decimal.Zero))
		}
	}
	je.Accounts = append(je.Accounts, line(bc.InventoryAccount, decimal.Zero, total))
	je.TotalDebit, je.TotalCredit = je.Totals()
	return je, nil
}

// RequireAccounts checks that every account the journal posts to is set.
func RequireAccounts(bc domain.BatchCost) error {
	fields := []struct {
		name  string
		value string
	}{
		{"raw_bean_expense_account", bc.RawBeanExpenseAccount},
		{"overhead_expense_account", bc.OverheadExpenseAccount},
		{"packaging_expense_account", bc.PackagingExpenseAccount},
		{"inventory_account", bc.InventoryAccount},
	}
	for _, f := range fields {
		if f.value == "" {
			return domain.Invalidf("Missing required account field on Batch Cost: %s", f.name)
		}
	}
	return nil
}

// CheckAccounts verifies that every account je posts to exists, is enabled
// and belongs to the journal's company.
func CheckAccounts(view domain.TransactionView, je domain.JournalEntry) error {
	for _, l := range je.Accounts {
		acct, ok := domain.Find[domain.Account](view, l.Account)
		switch {
		case !ok:
			return domain.Invalidf("Account %s does not exist.", l.Account)
		case acct.Disabled:
			return domain.Invalidf("Account %s is disabled.", l.Account)
		case acct.IsGroup:
			return domain.Invalidf("Account %s is a group account and cannot be posted to.", l.Account)
		case je.Company != "" && acct.Company != "" && acct.Company != je.Company:
			return domain.Invalidf("Account %s does not belong to company %s.", l.Account, je.Company)
		}
	}
	return nil
}

func sectionTotal(lines []domain.CostLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

// PostedFor reports whether je carries a line against the batch cost.
func PostedFor(je domain.JournalEntry, batchCostID string) bool {
	for _, l := range je.Accounts {
		if l.AgainstVoucherType == domain.EntityBatchCost && l.AgainstVoucher == batchCostID {
			return true
		}
	}
	return false
}

// Balanced reports whether debits equal credits at two decimals.
func Balanced(je domain.JournalEntry) bool {
	debit, credit := je.Totals()
	return debit.Round(2).Equal(credit.Round(2))
}
