package core

import (
	"context"
	"fmt"

	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/stock"
	"coffeeroaster/pkg/domain"
)

// NewItemDefaultWarehouseRule requires stock items to name a default
// warehouse, either on the item or on one of its company defaults.
func NewItemDefaultWarehouseRule() domain.Rule {
	return itemDefaultWarehouseRule{}
}

type itemDefaultWarehouseRule struct{}

func (itemDefaultWarehouseRule) Name() string { return "item_default_warehouse" }

func (itemDefaultWarehouseRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityItem}
}

func (r itemDefaultWarehouseRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, id := range domain.TouchedIDs(changes, domain.EntityItem) {
		item, ok := domain.Find[domain.Item](view, id)
		if !ok || !item.IsStockItem || hasDefaultWarehouse(item) {
			continue
		}
		res.Violations = append(res.Violations, block(r.Name(), domain.EntityItem, id,
			fmt.Sprintf("Default Warehouse is required for stock item: %s", id)))
	}
	return res, nil
}

func hasDefaultWarehouse(item domain.Item) bool {
	if item.DefaultWarehouse != "" {
		return true
	}
	for _, d := range item.Defaults {
		if d.DefaultWarehouse != "" {
			return true
		}
	}
	return false
}

// NewWarehouseCompanyRule requires every warehouse to belong to a company.
func NewWarehouseCompanyRule() domain.Rule {
	return warehouseCompanyRule{}
}

type warehouseCompanyRule struct{}

func (warehouseCompanyRule) Name() string { return "warehouse_company" }

func (warehouseCompanyRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityWarehouse}
}

func (r warehouseCompanyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, id := range domain.TouchedIDs(changes, domain.EntityWarehouse) {
		wh, ok := domain.Find[domain.Warehouse](view, id)
		if !ok || wh.Company != "" {
			continue
		}
		res.Violations = append(res.Violations, block(r.Name(), domain.EntityWarehouse, id, "Company is required"))
	}
	return res, nil
}

// NewWarehouseEmptyRule blocks deleting a warehouse that still holds stock.
func NewWarehouseEmptyRule() domain.Rule {
	return warehouseEmptyRule{}
}

type warehouseEmptyRule struct{}

func (warehouseEmptyRule) Name() string { return "warehouse_empty" }

func (warehouseEmptyRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityWarehouse}
}

func (r warehouseEmptyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	removed := domain.Removed[domain.Warehouse](changes)
	if len(removed) == 0 {
		return domain.Result{}, nil
	}
	ledger := stock.Build(view)
	var res domain.Result
	for _, wh := range removed {
		if qty := ledger.WarehouseTotal(wh.ID); qty > stock.Epsilon {
			res.Violations = append(res.Violations, block(r.Name(), domain.EntityWarehouse, wh.ID,
				fmt.Sprintf("Cannot delete %s: %s units still in stock", wh.ID, roasting.FormatKg(roasting.Round3(qty)))))
		}
	}
	return res, nil
}
