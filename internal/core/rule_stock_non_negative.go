package core

import (
	"context"
	"fmt"

	"coffeeroaster/internal/stock"
	"coffeeroaster/pkg/domain"
)

// NewStockNonNegativeRule blocks stock entries that leave an item or batch
// balance below zero in any warehouse they touch.
func NewStockNonNegativeRule() domain.Rule {
	return stockNonNegativeRule{}
}

type stockNonNegativeRule struct{}

func (stockNonNegativeRule) Name() string { return "stock_non_negative" }

func (stockNonNegativeRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityStockEntry}
}

func (r stockNonNegativeRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := domain.TouchedIDs(changes, domain.EntityStockEntry)
	if len(touched) == 0 {
		return domain.Result{}, nil
	}
	ledger := stock.Build(view)
	seen := make(map[stock.Key]struct{})
	var res domain.Result
	for _, id := range touched {
		se, ok := domain.Find[domain.StockEntry](view, id)
		if !ok {
			continue
		}
		for _, d := range se.Items {
			for _, wh := range []string{d.SWarehouse, d.TWarehouse} {
				if wh == "" {
					continue
				}
				k := stock.Key{Item: d.ItemCode, Warehouse: wh, Batch: d.BatchNo}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				short := ledger.Balance(d.ItemCode, wh) < -stock.Epsilon
				if d.BatchNo != "" && ledger.BatchBalance(d.ItemCode, wh, d.BatchNo) < -stock.Epsilon {
					short = true
				}
				if short {
					res.Violations = append(res.Violations, block(r.Name(), domain.EntityStockEntry, id,
						fmt.Sprintf("insufficient stock for %s in %s", d.ItemCode, wh)))
				}
			}
		}
	}
	return res, nil
}
