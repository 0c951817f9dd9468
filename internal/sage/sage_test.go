package sage

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"coffeeroaster/internal/infra/persistence/memory"
	"coffeeroaster/pkg/domain"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestFormatHelpers(t *testing.T) {
	if got := Slug("  Acme Coffee, PLC! "); got != "Acme_Coffee_PLC" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := Sanitize(" a\tb\r\nc "); got != "a b  c" {
		t.Fatalf("unexpected sanitize %q", got)
	}
	if got := USDate(day(2025, 3, 7)); got != "03/07/2025" {
		t.Fatalf("unexpected date %q", got)
	}
	if got := TabText([]string{"A", "B"}, [][]string{{"1", "x\ty"}}); got != "A\tB\n1\tx y\n" {
		t.Fatalf("unexpected tab text %q", got)
	}
	if got := TabTextCRLF([][]string{{"1", "2"}, {"3", "4"}}); got != "1\t2\r\n3\t4\r\n" {
		t.Fatalf("unexpected crlf text %q", got)
	}
	if got := TabTextCRLF(nil); got != "\r\n" {
		t.Fatalf("unexpected empty crlf text %q", got)
	}
}

func TestPeriods(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{day(2025, 3, 15), "202502"},
		{day(2025, 1, 1), "202412"},
	}
	for _, tc := range cases {
		if got := PreviousMonth(tc.now).YYYYMM(); got != tc.want {
			t.Fatalf("PreviousMonth(%s)=%s want %s", tc.now, got, tc.want)
		}
	}
	p, err := ParsePeriod("2024-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	first, last := p.Bounds()
	if !first.Equal(day(2024, 2, 1)) || !last.Equal(day(2024, 2, 29)) {
		t.Fatalf("unexpected bounds %s %s", first, last)
	}
	if _, err := ParsePeriod("2024-13"); err == nil {
		t.Fatalf("expected invalid period")
	}
	if _, err := NewPeriod(2024, 0); err == nil {
		t.Fatalf("expected invalid month")
	}
}

func TestAccountType(t *testing.T) {
	cases := []struct {
		acc  domain.Account
		want string
	}{
		{domain.Account{RootType: "Asset", AccountType: "Bank", AccountName: "CBE Current"}, "Cash"},
		{domain.Account{RootType: "asset", AccountName: "Petty Cash"}, "Cash"},
		{domain.Account{RootType: "Asset", AccountName: "Cashew Stock"}, "Asset"},
		{domain.Account{RootType: "INCOME", AccountName: "Sales"}, "Income"},
		{domain.Account{RootType: "", AccountName: "Suspense"}, "Asset"},
	}
	for _, tc := range cases {
		if got := AccountType(tc.acc); got != tc.want {
			t.Fatalf("AccountType(%+v)=%s want %s", tc.acc, got, tc.want)
		}
	}
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		recs := []domain.Record{
			&domain.Company{Base: domain.Base{ID: "Acme Coffee"}, DefaultIncomeAccount: "Sales - AC"},
			&domain.Account{Base: domain.Base{ID: "Sales - AC"}, AccountName: "Sales", AccountNumber: "4000", Company: "Acme Coffee", RootType: "Income"},
			&domain.Account{Base: domain.Base{ID: "Stock In Hand - AC"}, AccountName: "Stock In Hand", AccountNumber: "1400", Company: "Acme Coffee", RootType: "Asset"},
			&domain.Account{Base: domain.Base{ID: "Cash - AC"}, AccountName: "Cash", Company: "Acme Coffee", RootType: "Asset", AccountType: "Cash", Disabled: true},
			&domain.Account{Base: domain.Base{ID: "Assets - AC"}, AccountName: "Assets", Company: "Acme Coffee", RootType: "Asset", IsGroup: true},
			&domain.Account{Base: domain.Base{ID: "Other Co Sales"}, Company: "Other", RootType: "Income"},
			&domain.Customer{Base: domain.Base{ID: "CUST-1"}, CustomerName: "Cafe\tBole",
				Address: domain.Address{Line1: "Bole Rd", City: "Addis Ababa"}, Contact: domain.Contact{MobileNo: "+251911", Email: "cafe@example.com"}},
			&domain.Supplier{Base: domain.Base{ID: "SUP-1"}, DefaultCurrency: "USD"},
			&domain.Item{Base: domain.Base{ID: "ROAST-1KG"}, ItemName: "House Roast", StockUOM: "Kg", IsStockItem: true,
				Defaults: []domain.ItemDefault{{Company: "Acme Coffee", IncomeAccount: "Sales - AC"}}},
			&domain.Item{Base: domain.Base{ID: "OLD"}, Disabled: true},
			&domain.ItemPrice{Base: domain.Base{ID: "P1"}, ItemCode: "ROAST-1KG", PriceList: "Wholesale", PriceListRate: 700, Selling: true},
			&domain.ItemPrice{Base: domain.Base{ID: "P2"}, ItemCode: "ROAST-1KG", PriceList: "Standard Selling", PriceListRate: 850.5, Selling: true},
			&domain.SalesInvoice{Base: domain.Base{ID: "SINV-2"}, Customer: "CUST-1", Company: "Acme Coffee", PostingDate: day(2025, 3, 20), DocStatus: domain.DocStatusSubmitted,
				Items: []domain.SalesInvoiceItem{{ItemCode: "ROAST-1KG", Qty: 2, Rate: decimal.RequireFromString("850.5"), Amount: decimal.RequireFromString("1701")}}},
			&domain.SalesInvoice{Base: domain.Base{ID: "SINV-1"}, Customer: "CUST-1", Company: "Acme Coffee", PostingDate: day(2025, 3, 2), DocStatus: domain.DocStatusSubmitted,
				Items: []domain.SalesInvoiceItem{{ItemCode: "ROAST-1KG", Qty: 1.5, Rate: decimal.RequireFromString("800"), Amount: decimal.RequireFromString("1200"), IncomeAccount: "Sales - AC"}}},
			&domain.SalesInvoice{Base: domain.Base{ID: "SINV-D"}, Customer: "CUST-1", Company: "Acme Coffee", PostingDate: day(2025, 3, 3)},
			&domain.SalesInvoice{Base: domain.Base{ID: "SINV-APR"}, Customer: "CUST-1", Company: "Acme Coffee", PostingDate: day(2025, 4, 1), DocStatus: domain.DocStatusSubmitted},
			&domain.JournalEntry{Base: domain.Base{ID: "JV-1"}, Company: "Acme Coffee", PostingDate: day(2025, 3, 31), UserRemark: "Batch Cost for BC-1", DocStatus: domain.DocStatusSubmitted,
				Accounts: []domain.JournalLine{
					{Account: "Sales - AC", Debit: decimal.RequireFromString("10.5")},
					{Account: "Stock In Hand - AC", Credit: decimal.RequireFromString("10.5")},
				}},
			&domain.JournalEntry{Base: domain.Base{ID: "JV-X"}, Company: "Acme Coffee", PostingDate: day(2025, 3, 10), DocStatus: domain.DocStatusCancelled,
				Accounts: []domain.JournalLine{{Account: "Sales - AC", Debit: decimal.NewFromInt(1)}}},
		}
		for _, r := range recs {
			if _, err := tx.Insert(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestBuildPack(t *testing.T) {
	store := seed(t)
	var pack Pack
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		var err error
		pack, err = Build(context.Background(), v, "Acme Coffee", Period{Year: 2025, Month: time.March}, Options{})
		return err
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if pack.ZipName() != "SAGE_Acme_Coffee_202503.zip" || pack.Subject() != "Sage Monthly Export - Acme Coffee 202503" {
		t.Fatalf("unexpected naming %s / %s", pack.ZipName(), pack.Subject())
	}
	got := map[string]string{}
	var names []string
	for _, f := range pack.Files {
		got[f.Name] = f.Content
		names = append(names, f.Name)
	}
	wantNames := []string{"COA_202503.txt", "Customers_202503.txt", "Suppliers_202503.txt", "Items_202503.txt", "Sales_202503.txt", "GeneralJournal_202503.txt"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("file names mismatch (-want +got):\n%s", diff)
	}

	wantCOA := "Account ID\tDescription\tType\tInactive\n" +
		"1400\tStock In Hand\tAsset\tN\n" +
		"4000\tSales\tIncome\tN\n" +
		"Cash - AC\tCash\tCash\tY\n"
	if diff := cmp.Diff(wantCOA, got["COA_202503.txt"]); diff != "" {
		t.Fatalf("COA mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got["Customers_202503.txt"], "CUST-1\tCafe Bole\tBole Rd\t\tAddis Ababa\t\t\t\t+251911\tcafe@example.com\t\tETB\n") {
		t.Fatalf("unexpected customers file %q", got["Customers_202503.txt"])
	}
	if !strings.Contains(got["Suppliers_202503.txt"], "SUP-1\tSUP-1\t") || !strings.HasSuffix(got["Suppliers_202503.txt"], "\tUSD\n") {
		t.Fatalf("unexpected suppliers file %q", got["Suppliers_202503.txt"])
	}
	wantItems := strings.Join(ItemHeader, "\t") + "\n" + "ROAST-1KG\tHouse Roast\tKg\tY\t4000\t\t1400\t850.50\t0.00\n"
	if diff := cmp.Diff(wantItems, got["Items_202503.txt"]); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	wantSales := strings.Join(SalesHeader, "\t") + "\n" +
		"CUST-1\tSINV-1\t03/02/2025\tROAST-1KG\t1.5000\t800.0000\t1200.00\t4000\n" +
		"CUST-1\tSINV-2\t03/20/2025\tROAST-1KG\t2.0000\t850.5000\t1701.00\t4000\n"
	if diff := cmp.Diff(wantSales, got["Sales_202503.txt"]); diff != "" {
		t.Fatalf("sales mismatch (-want +got):\n%s", diff)
	}
	wantGJ := "03/31/2025\tJV-1\t4000\tBatch Cost for BC-1\t10.50\t0.00\r\n" +
		"03/31/2025\tJV-1\t1400\tBatch Cost for BC-1\t0.00\t10.50\r\n"
	if diff := cmp.Diff(wantGJ, got["GeneralJournal_202503.txt"]); diff != "" {
		t.Fatalf("journal mismatch (-want +got):\n%s", diff)
	}

	data, err := pack.Zip()
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 6 || zr.File[5].Method != zip.Deflate {
		t.Fatalf("unexpected archive members %d", len(zr.File))
	}
	rc, err := zr.File[5].Open()
	if err != nil {
		t.Fatalf("open member: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != wantGJ {
		t.Fatalf("archived journal differs: %q", body)
	}
}

func TestBuildRequiresCompany(t *testing.T) {
	_, err := Build(context.Background(), nil, "", Period{Year: 2025, Month: 1}, Options{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
