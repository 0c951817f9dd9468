package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"coffeeroaster/pkg/domain"
)

type blockingWarehouseRule struct{}

func (blockingWarehouseRule) Name() string { return "warehouse_company" }

func (blockingWarehouseRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, wh := range domain.Touched[domain.Warehouse](changes) {
		if wh.Company == "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "warehouse_company",
				Severity: domain.SeverityBlock,
				Message:  "Company is required",
				Entity:   domain.EntityWarehouse,
				EntityID: wh.ID,
			})
		}
	}
	return res, nil
}

func TestRunInTransactionCommitsAndStamps(t *testing.T) {
	store := NewStore(nil)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })

	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := domain.Create(tx, domain.Item{Base: domain.Base{ID: "GREEN-ETH"}, ItemName: "Yirgacheffe"})
		return err
	}); err != nil {
		t.Fatalf("create item: %v", err)
	}

	err := store.View(ctx, func(v TransactionView) error {
		item, ok := domain.Find[domain.Item](v, "GREEN-ETH")
		if !ok {
			t.Fatalf("expected committed item")
		}
		if !item.CreatedAt.Equal(fixed) || !item.UpdatedAt.Equal(fixed) {
			t.Fatalf("unexpected timestamps %+v", item.Base)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := domain.Create(tx, domain.Item{Base: domain.Base{ID: "A"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_ = store.View(ctx, func(v TransactionView) error {
		if len(v.Scan(domain.EntityItem)) != 0 {
			t.Fatalf("expected rollback to discard item")
		}
		return nil
	})
}

func TestRunInTransactionBlockedByRule(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingWarehouseRule{})
	store := NewStore(engine)
	ctx := context.Background()

	res, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := domain.Create(tx, domain.Warehouse{Base: domain.Base{ID: "Stores"}})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	_ = store.View(ctx, func(v TransactionView) error {
		if _, ok := v.Lookup(domain.EntityWarehouse, "Stores"); ok {
			t.Fatalf("blocked warehouse must not be committed")
		}
		return nil
	})
}

func TestInsertDuplicateAndReplaceMissing(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := domain.Create(tx, domain.Company{Base: domain.Base{ID: "CR"}}); err != nil {
			return err
		}
		_, err := domain.Create(tx, domain.Company{Base: domain.Base{ID: "CR"}})
		return err
	})
	if err == nil {
		t.Fatalf("expected duplicate insert error")
	}
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.Replace(&domain.Company{Base: domain.Base{ID: "missing"}})
		return err
	})
	if !errors.As(err, &domain.ErrNotFound{}) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.Remove(domain.EntityCompany, "missing")
	})
	if !errors.As(err, &domain.ErrNotFound{}) {
		t.Fatalf("expected not found on remove, got %v", err)
	}
}

func TestInsertAssignsID(t *testing.T) {
	store := NewStore(nil)
	var created domain.Batch
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = domain.Create(tx, domain.Batch{ItemCode: "ROAST-1"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.ID) != 32 {
		t.Fatalf("expected generated hex id, got %q", created.ID)
	}
}

func TestViewIsolatedFromLaterWrites(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := domain.Create(tx, domain.Warehouse{Base: domain.Base{ID: "W1"}, Company: "CR"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snapshot := store.ExportState()
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := domain.Update(tx, "W1", func(w *domain.Warehouse) error {
			w.Disabled = true
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if snapshot[domain.EntityWarehouse]["W1"].(*domain.Warehouse).Disabled {
		t.Fatalf("exported snapshot mutated by later transaction")
	}
}

func TestBucketRoundTrip(t *testing.T) {
	bucket := map[string]domain.Record{
		"RB-00001": &domain.RoastBatch{
			Base:       domain.Base{ID: "RB-00001"},
			QtyToRoast: 60,
			Rounds:     []domain.RoastRound{{RoundNo: 1, InputQty: 60, OutputQty: 50}},
		},
	}
	payload, err := EncodeBucket(bucket)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeBucket(domain.EntityRoastBatch, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rb, ok := decoded["RB-00001"].(*domain.RoastBatch)
	if !ok || rb.QtyToRoast != 60 || len(rb.Rounds) != 1 {
		t.Fatalf("unexpected decoded batch %+v", decoded["RB-00001"])
	}

	store := NewStore(nil)
	store.ImportState(Snapshot{domain.EntityRoastBatch: decoded})
	_ = store.View(context.Background(), func(v TransactionView) error {
		if len(domain.List[domain.RoastBatch](v)) != 1 {
			t.Fatalf("expected imported roast batch")
		}
		return nil
	})

	if _, err := DecodeBucket("bogus", []byte(`{"x":{}}`)); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}
