package costing

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coffeeroaster/pkg/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleBatchCost() domain.BatchCost {
	return domain.BatchCost{
		Base:    domain.Base{ID: "BC-0001"},
		BatchNo: "RB-00001",
		Company: "Coffee Roasters",
		RawBeanCosts: []domain.CostLine{
			{Description: "Yirgacheffe G1", Qty: d("30"), Rate: d("410.50")},
		},
		Overheads: []domain.CostLine{
			{Description: "Gas", Qty: d("1"), Rate: d("350")},
			{Description: "Labour", Qty: d("2.5"), Rate: d("120")},
		},
		PackagingCosts: []domain.CostLine{
			{Description: "Valve bags", Qty: d("100"), Rate: d("0.333")},
		},
		RawBeanExpenseAccount:   "Raw Beans - CR",
		OverheadExpenseAccount:  "Roasting Overhead - CR",
		PackagingExpenseAccount: "Packaging - CR",
		InventoryAccount:        "Stock In Hand - CR",
	}
}

func TestRecomputeTotals(t *testing.T) {
	bc := sampleBatchCost()
	bc.OutputWeight = 99
	bc.SellingRate = d("900")
	Recompute(&bc, 25, true)

	if bc.OutputWeight != 25 {
		t.Fatalf("expected output pulled from roast batch, got %v", bc.OutputWeight)
	}
	if !bc.TotalRawBeansCost.Equal(d("12315")) {
		t.Fatalf("raw total %s", bc.TotalRawBeansCost)
	}
	if !bc.TotalRoastingOverhead.Equal(d("650")) {
		t.Fatalf("overhead total %s", bc.TotalRoastingOverhead)
	}
	if !bc.TotalPackagingCost.Equal(d("33.3")) {
		t.Fatalf("packaging total %s", bc.TotalPackagingCost)
	}
	if !bc.TotalBatchCost.Equal(d("12998.3")) {
		t.Fatalf("batch total %s", bc.TotalBatchCost)
	}
	if !bc.CostPerKg.Equal(d("519.932")) {
		t.Fatalf("cost per kg %s", bc.CostPerKg)
	}
	if !bc.Revenue.Equal(d("22500")) {
		t.Fatalf("revenue %s", bc.Revenue)
	}
	profit, margin := Profit(bc)
	if !profit.Equal(d("9501.7")) || margin.Round(2).String() != "42.23" {
		t.Fatalf("profit %s margin %s", profit, margin)
	}
}

func TestRecomputeZeroOutput(t *testing.T) {
	bc := sampleBatchCost()
	bc.OutputWeight = 12
	Recompute(&bc, 0, false)
	if bc.OutputWeight != 12 {
		t.Fatalf("unknown batch must keep stored weight")
	}
	Recompute(&bc, 0, true)
	if !bc.CostPerKg.IsZero() {
		t.Fatalf("expected zero cost per kg, got %s", bc.CostPerKg)
	}
}

func TestBuildJournalBalanced(t *testing.T) {
	bc := sampleBatchCost()
	bc.PackagingCosts = append(bc.PackagingCosts, domain.CostLine{Description: "Labels", Qty: d("1"), Rate: d("0.005")})
	Recompute(&bc, 25, true)
	posting := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	je, err := BuildJournal(bc, posting)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(je.Accounts) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(je.Accounts))
	}
	if !Balanced(je) || !je.TotalDebit.Equal(je.TotalCredit) {
		t.Fatalf("unbalanced journal debit=%s credit=%s", je.TotalDebit, je.TotalCredit)
	}
	if je.Accounts[3].Account != "Stock In Hand - CR" || !je.Accounts[3].Credit.Equal(je.TotalDebit) {
		t.Fatalf("unexpected credit line %+v", je.Accounts[3])
	}
	if je.UserRemark != "Batch Cost for BC-0001" || je.VoucherType != VoucherType || !je.PostingDate.Equal(posting) {
		t.Fatalf("unexpected header %+v", je)
	}
	if !PostedFor(je, "BC-0001") || PostedFor(je, "BC-0002") {
		t.Fatalf("against voucher tagging broken")
	}
}

func TestBuildJournalMissingAccount(t *testing.T) {
	bc := sampleBatchCost()
	bc.PackagingExpenseAccount = ""
	_, err := BuildJournal(bc, time.Now())
	if err == nil || err.Error() != "Missing required account field on Batch Cost: packaging_expense_account" {
		t.Fatalf("unexpected error %v", err)
	}
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error")
	}
}

func TestBuildJournalSkipsEmptySections(t *testing.T) {
	bc := sampleBatchCost()
	bc.PackagingCosts = nil
	Recompute(&bc, 25, true)
	je, err := BuildJournal(bc, time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var accounts []string
	for _, l := range je.Accounts {
		accounts = append(accounts, l.Account)
	}
	if strings.Join(accounts, "|") != "Raw Beans - CR|Roasting Overhead - CR|Stock In Hand - CR" {
		t.Fatalf("unexpected lines %v", accounts)
	}
	if !je.TotalCredit.Equal(d("12965")) {
		t.Fatalf("credit %s", je.TotalCredit)
	}
}

func TestBuildJournalRejectsZeroTotal(t *testing.T) {
	bc := sampleBatchCost()
	for i := range bc.RawBeanCosts {
		bc.RawBeanCosts[i].Rate = decimal.Zero
	}
	bc.Overheads, bc.PackagingCosts = nil, nil
	Recompute(&bc, 25, true)
	_, err := BuildJournal(bc, time.Now())
	if !domain.IsValidation(err) || err.Error() != "Batch Cost BC-0001 has no costs to post." {
		t.Fatalf("expected zero total rejection, got %v", err)
	}
}

func TestApplyVAT(t *testing.T) {
	inv := domain.SalesInvoice{Items: []domain.SalesInvoiceItem{
		{ItemCode: "ROAST-HOUSE", Qty: 2, Rate: d("450")},
		{ItemCode: "ROAST-ESPRESSO", Qty: 0.5, Rate: d("999.99")},
	}}
	ApplyVAT(&inv, DefaultVATRate, false)
	if !inv.NetTotal.Equal(d("1400")) {
		t.Fatalf("net %s", inv.NetTotal)
	}
	if !inv.TotalTaxes.Equal(d("210")) || !inv.GrandTotal.Equal(d("1610")) {
		t.Fatalf("vat %s grand %s", inv.TotalTaxes, inv.GrandTotal)
	}
	ApplyVAT(&inv, DefaultVATRate, true)
	if !inv.TotalTaxes.IsZero() || inv.VATRate != 0 || !strings.HasPrefix(inv.GrandTotal.String(), "1400") {
		t.Fatalf("exempt invoice taxed: %+v", inv)
	}
}
