package core

import (
	"context"

	"coffeeroaster/pkg/domain"
)

// Roasted coffee statuses.
const (
	RoastedStatusInStock = "In Stock"
)

// CreateStockEntryFromRoasted receives a roasted coffee record into its
// warehouse with a Material Receipt and marks it in stock.
func (s *Service) CreateStockEntryFromRoasted(ctx context.Context, id string) (domain.StockEntry, Result, error) {
	var posted domain.StockEntry
	res, err := s.run(ctx, "create_stock_entry_from_roasted", domain.EntityRoastedCoffee, domain.ActionUpdate, func(tx domain.Transaction) error {
		rc, err := domain.Get[domain.RoastedCoffee](tx, id)
		if err != nil {
			return err
		}
		switch {
		case rc.ItemCode == "":
			return domain.Invalidf("Roasted Coffee must have an Item Code.")
		case rc.Warehouse == "":
			return domain.Invalidf("Roasted Coffee must have a Warehouse.")
		case rc.Quantity == 0:
			return domain.Invalidf("Roasted Coffee must have a Quantity.")
		}
		if rc.StockEntry != "" {
			return domain.Invalidf("Roasted Coffee %s is already in stock (%s).", id, rc.StockEntry)
		}
		if err := calculateWeightLoss(&rc); err != nil {
			return err
		}
		uom := rc.UOM
		if uom == "" {
			uom = s.stockUOM(tx, rc.ItemCode)
		}
		posted, err = s.postStockEntry(tx, domain.StockEntry{
			StockEntryType: domain.StockEntryMaterialReceipt,
			Company:        s.settingsIn(tx).DefaultCompany,
			ReferenceType:  domain.EntityRoastedCoffee,
			ReferenceName:  id,
			Items: []domain.StockEntryDetail{{
				ItemCode:         rc.ItemCode,
				Qty:              rc.Quantity,
				UOM:              uom,
				ConversionFactor: 1,
				TWarehouse:       rc.Warehouse,
			}},
		})
		if err != nil {
			return err
		}
		_, err = domain.Update[domain.RoastedCoffee](tx, id, func(cur *domain.RoastedCoffee) error {
			*cur = rc
			cur.Status = RoastedStatusInStock
			cur.StockEntry = posted.ID
			return nil
		})
		return err
	}, constID(id))
	return posted, res, err
}
