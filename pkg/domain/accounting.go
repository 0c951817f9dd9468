package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostLine is a priced quantity on a batch cost.
type CostLine struct {
	Description string          `json:"description"`
	ItemCode    string          `json:"item_code,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// BatchCost aggregates raw bean, overhead and packaging costs of a roast batch.
type BatchCost struct {
	Base
	BatchNo                 string          `json:"batch_no"`
	Company                 string          `json:"company"`
	PostingDate             time.Time       `json:"posting_date"`
	OutputWeight            float64         `json:"output_weight"`
	RawBeanCosts            []CostLine      `json:"raw_bean_costs"`
	Overheads               []CostLine      `json:"overheads"`
	PackagingCosts          []CostLine      `json:"packaging_costs"`
	TotalRawBeansCost       decimal.Decimal `json:"total_raw_beans_cost"`
	TotalRoastingOverhead   decimal.Decimal `json:"total_roasting_overhead"`
	TotalPackagingCost      decimal.Decimal `json:"total_packaging_cost"`
	TotalBatchCost          decimal.Decimal `json:"total_batch_cost"`
	CostPerKg               decimal.Decimal `json:"cost_per_kg"`
	SellingRate             decimal.Decimal `json:"selling_rate"`
	Revenue                 decimal.Decimal `json:"revenue"`
	RawBeanExpenseAccount   string          `json:"raw_bean_expense_account"`
	OverheadExpenseAccount  string          `json:"overhead_expense_account"`
	PackagingExpenseAccount string          `json:"packaging_expense_account"`
	InventoryAccount        string          `json:"inventory_account"`
	JournalEntry            string          `json:"journal_entry"`
	DocStatus               DocStatus       `json:"docstatus"`
}

// Entity implements Record.
func (BatchCost) Entity() EntityType { return EntityBatchCost }

func (b *BatchCost) cloneRecord() Record {
	cp := *b
	cp.RawBeanCosts = append([]CostLine(nil), b.RawBeanCosts...)
	cp.Overheads = append([]CostLine(nil), b.Overheads...)
	cp.PackagingCosts = append([]CostLine(nil), b.PackagingCosts...)
	return &cp
}

// JournalLine is one debit or credit row of a journal entry.
type JournalLine struct {
	Account            string          `json:"account"`
	Debit              decimal.Decimal `json:"debit"`
	Credit             decimal.Decimal `json:"credit"`
	AgainstVoucherType EntityType      `json:"against_voucher_type,omitempty"`
	AgainstVoucher     string          `json:"against_voucher,omitempty"`
}

// JournalEntry is a double-entry accounting voucher.
type JournalEntry struct {
	Base
	VoucherType string          `json:"voucher_type"`
	Company     string          `json:"company"`
	PostingDate time.Time       `json:"posting_date"`
	UserRemark  string          `json:"user_remark"`
	Accounts    []JournalLine   `json:"accounts"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	DocStatus   DocStatus       `json:"docstatus"`
}

// Entity implements Record.
func (JournalEntry) Entity() EntityType { return EntityJournalEntry }

func (j *JournalEntry) cloneRecord() Record {
	cp := *j
	cp.Accounts = append([]JournalLine(nil), j.Accounts...)
	return &cp
}

// Totals sums debit and credit over all lines.
func (j JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range j.Accounts {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// SalesInvoiceItem is one sold line.
type SalesInvoiceItem struct {
	ItemCode      string          `json:"item_code"`
	ItemName      string          `json:"item_name"`
	Qty           float64         `json:"qty"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	IncomeAccount string          `json:"income_account"`
	BatchNo       string          `json:"batch_no"`
	Warehouse     string          `json:"warehouse"`
}

// SalesInvoice bills a customer for roasted coffee.
type SalesInvoice struct {
	Base
	Customer     string             `json:"customer"`
	CustomerName string             `json:"customer_name"`
	Company      string             `json:"company"`
	PostingDate  time.Time          `json:"posting_date"`
	Items        []SalesInvoiceItem `json:"items"`
	NetTotal     decimal.Decimal    `json:"net_total"`
	VATRate      float64            `json:"vat_rate"`
	TotalTaxes   decimal.Decimal    `json:"total_taxes_and_charges"`
	GrandTotal   decimal.Decimal    `json:"grand_total"`
	DocStatus    DocStatus          `json:"docstatus"`
}

// Entity implements Record.
func (SalesInvoice) Entity() EntityType { return EntitySalesInvoice }

func (s *SalesInvoice) cloneRecord() Record {
	cp := *s
	cp.Items = append([]SalesInvoiceItem(nil), s.Items...)
	return &cp
}
