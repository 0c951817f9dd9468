package sage

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"coffeeroaster/pkg/domain"
)

// Headers of the delimited files. The general journal has none.
var (
	COAHeader      = []string{"Account ID", "Description", "Type", "Inactive"}
	CustomerHeader = []string{"Customer ID", "Customer Name", "Address1", "Address2", "City", "State", "Zip", "Country", "Phone", "Email", "Tax ID", "Currency"}
	SupplierHeader = []string{"Supplier ID", "Supplier Name", "Address1", "Address2", "City", "State", "Zip", "Country", "Phone", "Email", "Tax ID", "Currency"}
	ItemHeader     = []string{"Item ID", "Description", "UOM", "Is Stock Item", "Sales GL", "COGS GL", "Inventory GL", "Price", "Cost"}
	SalesHeader    = []string{"Customer ID", "Invoice No", "Date", "Item ID", "Qty", "Unit Price", "Line Total", "Sales GL"}
)

// DefaultCurrency fills parties without a currency.
const DefaultCurrency = "ETB"

// DefaultPriceList is tried before any other selling price.
const DefaultPriceList = "Standard Selling"

var cashName = regexp.MustCompile(`\b(cash|bank|checking)\b`)

// AccountType maps a ledger account to the Sage account type. Asset
// accounts that are clearly bank or cash become "Cash".
func AccountType(a domain.Account) string {
	root := cases.Title(language.English).String(strings.TrimSpace(a.RootType))
	typ := strings.ToLower(strings.TrimSpace(a.AccountType))
	name := strings.ToLower(a.AccountName)
	if name == "" {
		name = strings.ToLower(a.ID)
	}
	if root == "Asset" && (typ == "bank" || typ == "cash") {
		return "Cash"
	}
	if root == "Asset" && cashName.MatchString(name) {
		return "Cash"
	}
	switch root {
	case "Asset", "Liability", "Equity", "Income", "Expense":
		return root
	}
	return "Asset"
}

// yesNo renders a flag as Y/N.
func yesNo(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// ledger resolves account numbers for a company.
type ledger struct {
	accounts map[string]domain.Account
}

func newLedger(view domain.TransactionView) ledger {
	l := ledger{accounts: make(map[string]domain.Account)}
	for _, a := range domain.List[domain.Account](view) {
		l.accounts[a.ID] = a
	}
	return l
}

// number returns the account number of name, or name itself.
func (l ledger) number(name string) string {
	if name == "" {
		return ""
	}
	if a, ok := l.accounts[name]; ok {
		return a.NumberOrName()
	}
	return name
}

// COARows lists the company's ledger (non group) accounts ordered by
// account number or name.
func COARows(view domain.TransactionView, company string) [][]string {
	accounts := domain.Select(view, func(a domain.Account) bool {
		return a.Company == company && !a.IsGroup
	})
	sort.SliceStable(accounts, func(i, j int) bool {
		ki, kj := accounts[i].NumberOrName(), accounts[j].NumberOrName()
		if ki != kj {
			return ki < kj
		}
		return accounts[i].ID < accounts[j].ID
	})
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		desc := strings.TrimSpace(a.AccountName)
		if desc == "" {
			desc = a.ID
		}
		rows = append(rows, []string{strings.TrimSpace(a.NumberOrName()), desc, AccountType(a), yesNo(a.Disabled)})
	}
	return rows
}

func partyRow(id, name string, addr domain.Address, contact domain.Contact, taxID, currency string) []string {
	if name == "" {
		name = id
	}
	phone := firstNonEmpty(addr.Phone, contact.MobileNo, contact.Phone)
	email := firstNonEmpty(addr.Email, contact.Email)
	if currency == "" {
		currency = DefaultCurrency
	}
	return []string{id, name, addr.Line1, addr.Line2, addr.City, addr.State, addr.Pincode, addr.Country, phone, email, taxID, currency}
}

// CustomerRows lists every customer with address and contact details.
func CustomerRows(view domain.TransactionView) [][]string {
	var rows [][]string
	for _, c := range domain.List[domain.Customer](view) {
		rows = append(rows, partyRow(c.ID, c.CustomerName, c.Address, c.Contact, c.TaxID, c.DefaultCurrency))
	}
	return rows
}

// SupplierRows lists every supplier with address and contact details.
func SupplierRows(view domain.TransactionView) [][]string {
	var rows [][]string
	for _, s := range domain.List[domain.Supplier](view) {
		rows = append(rows, partyRow(s.ID, s.SupplierName, s.Address, s.Contact, s.TaxID, s.DefaultCurrency))
	}
	return rows
}

// InventoryAccount picks the stock account of the company: a "Stock In
// Hand" ledger, else the first asset ledger, else "Inventory".
func InventoryAccount(view domain.TransactionView, company string) string {
	ledgers := domain.Select(view, func(a domain.Account) bool {
		return a.Company == company && !a.IsGroup
	})
	for _, a := range ledgers {
		if strings.HasPrefix(a.AccountName, "Stock In Hand") {
			return a.NumberOrName()
		}
	}
	for _, a := range ledgers {
		if a.RootType == "Asset" {
			return a.NumberOrName()
		}
	}
	return "Inventory"
}

// SellingPrice returns the latest rate on priceList, else the latest
// selling rate on any list, else zero.
func SellingPrice(view domain.TransactionView, itemCode, priceList string) float64 {
	prices := domain.Select(view, func(p domain.ItemPrice) bool { return p.ItemCode == itemCode })
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].UpdatedAt.After(prices[j].UpdatedAt) })
	for _, p := range prices {
		if p.PriceList == priceList {
			return p.PriceListRate
		}
	}
	for _, p := range prices {
		if p.Selling {
			return p.PriceListRate
		}
	}
	return 0
}

// ItemRows lists enabled items with their company GL accounts and price.
// Cost is always exported as zero.
func ItemRows(view domain.TransactionView, company, priceList string) [][]string {
	l := newLedger(view)
	inv := InventoryAccount(view, company)
	var rows [][]string
	for _, it := range domain.List[domain.Item](view) {
		if it.Disabled {
			continue
		}
		d, _ := it.DefaultsFor(company)
		price := decimal.NewFromFloat(SellingPrice(view, it.ID, priceList))
		name := it.ItemName
		if name == "" {
			name = it.ID
		}
		rows = append(rows, []string{
			it.ID, name, it.StockUOM, yesNo(it.IsStockItem),
			l.number(d.IncomeAccount), l.number(d.ExpenseAccount), inv,
			price.StringFixed(2), decimal.Zero.StringFixed(2),
		})
	}
	return rows
}

// IncomeAccount resolves the sales GL of an item: item default for the
// company, then the item group, then the company default.
func IncomeAccount(view domain.TransactionView, itemCode, company string) string {
	l := newLedger(view)
	item, ok := domain.Find[domain.Item](view, itemCode)
	if ok {
		if d, ok := item.DefaultsFor(company); ok && d.IncomeAccount != "" {
			return l.number(d.IncomeAccount)
		}
		if g, ok := domain.Find[domain.ItemGroup](view, item.ItemGroup); ok && g.DefaultIncomeAccount != "" {
			return l.number(g.DefaultIncomeAccount)
		}
	}
	if c, ok := domain.Find[domain.Company](view, company); ok && c.DefaultIncomeAccount != "" {
		return l.number(c.DefaultIncomeAccount)
	}
	return ""
}

// SalesRows lists the lines of submitted invoices posted in the period.
func SalesRows(view domain.TransactionView, company string, p Period) [][]string {
	l := newLedger(view)
	invoices := domain.Select(view, func(si domain.SalesInvoice) bool {
		return si.Company == company && si.DocStatus == domain.DocStatusSubmitted && p.Contains(si.PostingDate)
	})
	sort.SliceStable(invoices, func(i, j int) bool {
		if !invoices[i].PostingDate.Equal(invoices[j].PostingDate) {
			return invoices[i].PostingDate.Before(invoices[j].PostingDate)
		}
		return invoices[i].ID < invoices[j].ID
	})
	var rows [][]string
	for _, si := range invoices {
		for _, it := range si.Items {
			gl := l.number(it.IncomeAccount)
			if gl == "" {
				gl = IncomeAccount(view, it.ItemCode, company)
			}
			rows = append(rows, []string{
				si.Customer, si.ID, USDate(si.PostingDate), it.ItemCode,
				decimal.NewFromFloat(it.Qty).StringFixed(4), it.Rate.StringFixed(4),
				it.Amount.StringFixed(2), gl,
			})
		}
	}
	return rows
}

// JournalRows lists the ledger lines of submitted journal entries posted
// in the period. Cancelled entries are excluded.
func JournalRows(view domain.TransactionView, company string, p Period) [][]string {
	l := newLedger(view)
	entries := domain.Select(view, func(je domain.JournalEntry) bool {
		return je.Company == company && je.DocStatus == domain.DocStatusSubmitted && p.Contains(je.PostingDate)
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].PostingDate.Equal(entries[j].PostingDate) {
			return entries[i].PostingDate.Before(entries[j].PostingDate)
		}
		return entries[i].ID < entries[j].ID
	})
	var rows [][]string
	for _, je := range entries {
		for _, line := range je.Accounts {
			rows = append(rows, []string{
				USDate(je.PostingDate), je.ID, l.number(line.Account), je.UserRemark,
				line.Debit.StringFixed(2), line.Credit.StringFixed(2),
			})
		}
	}
	return rows
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
