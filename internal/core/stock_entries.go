package core

import (
	"context"
	"strings"
	"time"

	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/stock"
	"coffeeroaster/pkg/domain"
)

// DefaultUOM is the stock unit used when neither line nor item names one.
const DefaultUOM = "Kg"

// postStockEntry names, submits and stores se inside tx. The
// stock_non_negative rule checks the resulting balances at commit.
func (s *Service) postStockEntry(tx domain.Transaction, se domain.StockEntry) (domain.StockEntry, error) {
	if len(se.Items) == 0 {
		return domain.StockEntry{}, domain.Invalidf("Stock Entry %s has no items.", se.StockEntryType)
	}
	if se.PostingDate.IsZero() {
		se.PostingDate = s.today()
	}
	for i := range se.Items {
		d := &se.Items[i]
		if d.ConversionFactor == 0 {
			d.ConversionFactor = 1
		}
		if d.UOM == "" {
			d.UOM = s.stockUOM(tx, d.ItemCode)
		}
	}
	se.DocStatus = domain.DocStatusSubmitted
	return insert(s, tx, se)
}

// SubmitStockEntry posts a stock entry directly, for receipts and
// adjustments that have no originating document.
func (s *Service) SubmitStockEntry(ctx context.Context, se domain.StockEntry) (domain.StockEntry, Result, error) {
	var posted domain.StockEntry
	res, err := s.run(ctx, "submit_stock_entry", domain.EntityStockEntry, domain.ActionCreate, func(tx domain.Transaction) error {
		if se.Company == "" {
			se.Company = s.settingsIn(tx).DefaultCompany
		}
		var err error
		posted, err = s.postStockEntry(tx, se)
		return err
	}, func() string { return posted.ID })
	return posted, res, err
}

// CancelStockEntry reverses a submitted stock entry.
func (s *Service) CancelStockEntry(ctx context.Context, id string) (domain.StockEntry, Result, error) {
	var cancelled domain.StockEntry
	res, err := s.run(ctx, "cancel_stock_entry", domain.EntityStockEntry, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		cancelled, err = cancelStockEntry(tx, id)
		return err
	}, constID(id))
	return cancelled, res, err
}

func cancelStockEntry(tx domain.Transaction, id string) (domain.StockEntry, error) {
	return domain.Update[domain.StockEntry](tx, id, func(se *domain.StockEntry) error {
		if se.DocStatus != domain.DocStatusSubmitted {
			return domain.Invalidf("Stock Entry %s is not submitted.", id)
		}
		se.DocStatus = domain.DocStatusCancelled
		return nil
	})
}

// StockBalances lists the current non-zero balances.
func (s *Service) StockBalances(ctx context.Context, byBatch bool) ([]stock.Row, error) {
	var rows []stock.Row
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		rows = stock.Build(v).Rows(byBatch)
		return nil
	})
	return rows, err
}

func (s *Service) stockUOM(view domain.TransactionView, itemCode string) string {
	if item, ok := domain.Find[domain.Item](view, itemCode); ok && item.StockUOM != "" {
		return item.StockUOM
	}
	return DefaultUOM
}

// createBatch stores a batch of item named from its series, or the
// fallback pattern when the item has none.
func (s *Service) createBatch(tx domain.Transaction, itemCode string, mfg time.Time, refType domain.EntityType, refName string) (domain.Batch, error) {
	now := s.now()
	id := roasting.FallbackBatchID(itemCode, now)
	if item, ok := domain.Find[domain.Item](tx, itemCode); ok && strings.TrimSpace(item.BatchNumberSeries) != "" {
		id = roasting.NextInSeries(item.BatchNumberSeries, now, ids(tx, domain.EntityBatch))
	}
	if _, exists := tx.Lookup(domain.EntityBatch, id); exists {
		id = roasting.NextInSeries(id+"-.###", now, ids(tx, domain.EntityBatch))
	}
	if mfg.IsZero() {
		mfg = s.today()
	}
	return domain.Create(tx, domain.Batch{
		Base:              domain.Base{ID: id},
		ItemCode:          itemCode,
		ManufacturingDate: mfg,
		ReferenceType:     string(refType),
		ReferenceName:     refName,
	})
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
