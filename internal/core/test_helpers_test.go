package core

import (
	"context"
	"testing"
	"time"

	"coffeeroaster/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

const (
	testCompany   = "Acme Roasters"
	whGreen       = "Green Store - AR"
	whRoasted     = "Roasted Store - AR"
	itemGreen     = "GREEN-YIRG"
	itemRoasted   = "ROAST-YIRG"
	acctRaw       = "Raw Beans - AR"
	acctOverhead  = "Overheads - AR"
	acctPackaging = "Packaging - AR"
	acctInventory = "Stock In Hand - AR"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithSettingsDefaults(domain.Settings{DefaultCompany: testCompany, VATRate: 0.15}),
	}
	return NewInMemoryService(NewDefaultRulesEngine(), append(base, opts...)...)
}

func mustCreate[T any, PT domain.RecordPtr[T]](t *testing.T, svc *Service, rec T) T {
	t.Helper()
	out, _, err := Create[T, PT](context.Background(), svc, rec)
	if err != nil {
		t.Fatalf("create %s: %v", domain.EntityOf[T, PT](), err)
	}
	return out
}

func mustGet[T any, PT domain.RecordPtr[T]](t *testing.T, svc *Service, id string) T {
	t.Helper()
	out, err := Get[T, PT](context.Background(), svc, id)
	if err != nil {
		t.Fatalf("get %s %s: %v", domain.EntityOf[T, PT](), id, err)
	}
	return out
}

// seedRoastery creates the company, both warehouses and the green and
// roasted items.
func seedRoastery(t *testing.T, svc *Service) {
	t.Helper()
	mustCreate(t, svc, domain.Company{Base: domain.Base{ID: testCompany}, CompanyName: testCompany, Abbr: "AR"})
	for _, wh := range []string{whGreen, whRoasted} {
		mustCreate(t, svc, domain.Warehouse{Base: domain.Base{ID: wh}, WarehouseName: wh, Company: testCompany})
	}
	mustCreate(t, svc, domain.Item{
		Base:             domain.Base{ID: itemGreen},
		ItemName:         "Yirgacheffe Green",
		StockUOM:         "Kg",
		IsStockItem:      true,
		HasBatchNo:       true,
		DefaultWarehouse: whGreen,
	})
	mustCreate(t, svc, domain.Item{
		Base:              domain.Base{ID: itemRoasted},
		ItemName:          "Yirgacheffe Roasted",
		StockUOM:          "Kg",
		IsStockItem:       true,
		HasBatchNo:        true,
		BatchNumberSeries: "YR-.YYYY.-.###",
		DefaultWarehouse:  whRoasted,
	})
}

// seedAccounts creates the ledger accounts batch costs post to.
func seedAccounts(t *testing.T, svc *Service) {
	t.Helper()
	for _, a := range []struct{ name, root string }{
		{acctRaw, "Expense"},
		{acctOverhead, "Expense"},
		{acctPackaging, "Expense"},
		{acctInventory, "Asset"},
	} {
		mustCreate(t, svc, domain.Account{Base: domain.Base{ID: a.name}, AccountName: a.name, Company: testCompany, RootType: a.root})
	}
}

// receive posts a material receipt of qty kg.
func receive(t *testing.T, svc *Service, item, wh, batch string, qty float64) domain.StockEntry {
	t.Helper()
	se, _, err := svc.SubmitStockEntry(context.Background(), domain.StockEntry{
		StockEntryType: domain.StockEntryMaterialReceipt,
		Items:          []domain.StockEntryDetail{{ItemCode: item, Qty: qty, TWarehouse: wh, BatchNo: batch}},
	})
	if err != nil {
		t.Fatalf("receive %s: %v", item, err)
	}
	return se
}

func balance(t *testing.T, svc *Service, item, wh string) float64 {
	t.Helper()
	rows, err := svc.StockBalances(context.Background(), false)
	if err != nil {
		t.Fatalf("stock balances: %v", err)
	}
	for _, r := range rows {
		if r.Item == item && r.Warehouse == wh {
			return r.Qty
		}
	}
	return 0
}

func roundedBatch(id string) domain.RoastBatch {
	return domain.RoastBatch{
		Base:            domain.Base{ID: id},
		Company:         testCompany,
		RoastDate:       fixedNow,
		GreenBeanItem:   itemGreen,
		RoastedItem:     itemRoasted,
		SourceWarehouse: whGreen,
		TargetWarehouse: whRoasted,
		QtyToRoast:      30,
		SellingRate:     900,
		Rounds: []domain.RoastRound{
			{RoundNo: 1, InputQty: 15, OutputQty: 12.6, Quacker: 0.1},
			{RoundNo: 2, InputQty: 15, OutputQty: 12.9, Quacker: 0.2},
		},
	}
}
