package core

import (
	"context"
	"fmt"
	"time"

	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/stock"
	"coffeeroaster/pkg/domain"
)

// StartRoast consumes the green beans and receives the roasted coffee in a
// single Manufacture entry. A batch that already posted its entry is left
// untouched and the existing entry is returned.
func (s *Service) StartRoast(ctx context.Context, id string) (domain.StockEntry, Result, error) {
	var posted domain.StockEntry
	res, err := s.run(ctx, "start_roast", domain.EntityRoastBatch, domain.ActionUpdate, func(tx domain.Transaction) error {
		rb, err := domain.Get[domain.RoastBatch](tx, id)
		if err != nil {
			return err
		}
		if rb.StockEntryCreated {
			posted, _ = domain.Find[domain.StockEntry](tx, rb.StockEntry)
			s.logger.Info("stock entry already created", "roast_batch", id, "stock_entry", rb.StockEntry)
			return nil
		}
		roasting.DeriveRounds(&rb)
		roasting.ComputeTotals(&rb)
		if err := roasting.CheckConsistency(rb); err != nil {
			return err
		}
		in, out, _ := roasting.EffectiveInOut(rb)
		if in <= 0 {
			return domain.Invalidf("Input quantity must be > 0 kg.")
		}
		if out <= 0 {
			return domain.Invalidf("Output quantity must be > 0 kg.")
		}
		if rb.GreenBeanItem == "" || rb.RoastedItem == "" || rb.SourceWarehouse == "" || rb.TargetWarehouse == "" {
			return domain.Invalidf("Green Bean Item, Roasted Item, Source Warehouse and Target Warehouse are required to start a roast.")
		}
		if available := stock.Build(tx).Balance(rb.GreenBeanItem, rb.SourceWarehouse); available < in {
			return domain.Invalidf("Not enough %s in %s. Available: %s kg; Needed: %s kg.",
				rb.GreenBeanItem, rb.SourceWarehouse, roasting.FormatKg(roasting.Round3(available)), roasting.FormatKg(in))
		}

		batch, err := s.createBatch(tx, rb.RoastedItem, rb.RoastDate, domain.EntityRoastBatch, rb.ID)
		if err != nil {
			return err
		}
		posted, err = s.postStockEntry(tx, domain.StockEntry{
			StockEntryType: domain.StockEntryManufacture,
			Company:        s.companyFor(tx, rb.Company),
			PostingDate:    rb.RoastDate,
			ReferenceType:  domain.EntityRoastBatch,
			ReferenceName:  rb.ID,
			Items: []domain.StockEntryDetail{
				{ItemCode: rb.GreenBeanItem, Qty: in, SWarehouse: rb.SourceWarehouse},
				{ItemCode: rb.RoastedItem, Qty: out, TWarehouse: rb.TargetWarehouse, BatchNo: batch.ID, IsFinishedItem: true},
			},
		})
		if err != nil {
			return err
		}
		_, err = domain.Update[domain.RoastBatch](tx, id, func(cur *domain.RoastBatch) error {
			*cur = rb
			cur.BatchNo = batch.ID
			cur.StockEntry = posted.ID
			cur.StockEntryCreated = true
			return nil
		})
		if err == nil {
			s.logger.Info("manufacture stock entry created", "roast_batch", id, "stock_entry", posted.ID, "batch_no", batch.ID)
		}
		return err
	}, constID(id))
	return posted, res, err
}

// SubmitRoastBatch submits a roast batch and posts its finished-good stock
// entry unless StartRoast already did.
func (s *Service) SubmitRoastBatch(ctx context.Context, id string) (domain.RoastBatch, Result, error) {
	var submitted domain.RoastBatch
	res, err := s.run(ctx, "submit_roast_batch", domain.EntityRoastBatch, domain.ActionUpdate, func(tx domain.Transaction) error {
		rb, err := domain.Get[domain.RoastBatch](tx, id)
		if err != nil {
			return err
		}
		if rb.DocStatus != domain.DocStatusDraft {
			return domain.Invalidf("Roast Batch %s is already %s.", id, rb.DocStatus)
		}
		if err := roasting.Recompute(&rb); err != nil {
			return err
		}
		if !rb.StockEntryCreated {
			se, err := s.createRoastingStockEntry(tx, rb)
			if err != nil {
				return err
			}
			rb.StockEntry = se.ID
			rb.StockEntryCreated = true
			for _, d := range se.Items {
				if d.IsFinishedItem && d.BatchNo != "" {
					rb.BatchNo = d.BatchNo
				}
			}
		}
		rb.DocStatus = domain.DocStatusSubmitted
		submitted, err = domain.Update[domain.RoastBatch](tx, id, func(cur *domain.RoastBatch) error {
			*cur = rb
			return nil
		})
		return err
	}, constID(id))
	return submitted, res, err
}

// CreateRoastingStockEntry posts the finished-good entry of a roast batch
// without changing the batch itself.
func (s *Service) CreateRoastingStockEntry(ctx context.Context, id string) (domain.StockEntry, Result, error) {
	var posted domain.StockEntry
	res, err := s.run(ctx, "create_roasting_stock_entry", domain.EntityStockEntry, domain.ActionCreate, func(tx domain.Transaction) error {
		if id == "" {
			return domain.Invalidf("Please provide a Roast Batch document name")
		}
		rb, err := domain.Get[domain.RoastBatch](tx, id)
		if err != nil {
			return err
		}
		posted, err = s.createRoastingStockEntry(tx, rb)
		return err
	}, func() string { return posted.ID })
	return posted, res, err
}

func (s *Service) createRoastingStockEntry(tx domain.Transaction, rb domain.RoastBatch) (domain.StockEntry, error) {
	st := s.settingsIn(tx)
	company := rb.Company
	if company == "" {
		company = st.DefaultCompany
	}
	if company == "" {
		return domain.StockEntry{}, domain.Invalidf("Company not found on Roast Batch or Global Defaults")
	}

	fg, err := roasting.ResolveFinishedGood(rb)
	if err != nil {
		return domain.StockEntry{}, err
	}
	fgItem, _ := domain.Find[domain.Item](tx, fg.ItemCode)

	_, fgWarehouse := roasting.FirstText(rb, roasting.FinishedGoodWarehouseFields...)
	if fgWarehouse == "" {
		fgWarehouse = st.FinishedGoodsWarehouse
	}
	if fgWarehouse == "" {
		fgWarehouse = itemDefaultWarehouse(fgItem, company)
	}
	if fgWarehouse == "" {
		fgWarehouse = st.DefaultWarehouse
	}
	if fgWarehouse == "" {
		return domain.StockEntry{}, domain.Invalidf("Finished Goods warehouse not found. Set it on Roast Batch or in Roaster/Stock Settings.")
	}

	ledger := stock.Build(tx)
	materials := roasting.MaterialLines(rb)
	lines := make([]domain.StockEntryDetail, 0, len(materials)+1)
	for _, rm := range materials {
		item, _ := domain.Find[domain.Item](tx, rm.ItemCode)
		d := domain.StockEntryDetail{
			ItemCode:         rm.ItemCode,
			Qty:              rm.Qty,
			UOM:              rm.UOM,
			ConversionFactor: 1,
			SWarehouse:       rm.SourceWarehouse,
		}
		if d.UOM == "" {
			d.UOM = s.stockUOM(tx, rm.ItemCode)
		}
		if d.SWarehouse == "" {
			d.SWarehouse = itemDefaultWarehouse(item, company)
		}
		if d.SWarehouse == "" {
			d.SWarehouse = st.DefaultWarehouse
		}
		if d.SWarehouse == "" {
			return domain.StockEntry{}, domain.Invalidf("Source warehouse not found for RM %s.", rm.ItemCode)
		}
		if item.HasBatchNo {
			batches := ledger.Batches(tx, rm.ItemCode, d.SWarehouse)
			if len(batches) == 0 {
				return domain.StockEntry{}, domain.Invalidf("No available batch for %s in %s", rm.ItemCode, d.SWarehouse)
			}
			d.BatchNo = batches[0]
		}
		lines = append(lines, d)
	}

	fgLine := domain.StockEntryDetail{
		ItemCode:         fg.ItemCode,
		Qty:              fg.Qty,
		UOM:              fg.UOM,
		ConversionFactor: 1,
		TWarehouse:       fgWarehouse,
		IsFinishedItem:   true,
	}
	if fgLine.UOM == "" {
		fgLine.UOM = s.stockUOM(tx, fg.ItemCode)
	}
	if fgItem.HasBatchNo {
		batch, err := s.createBatch(tx, fg.ItemCode, rb.RoastDate, domain.EntityRoastBatch, rb.ID)
		if err != nil {
			return domain.StockEntry{}, err
		}
		fgLine.BatchNo = batch.ID
	}
	lines = append(lines, fgLine)

	seType := domain.StockEntryMaterialReceipt
	if len(materials) > 0 {
		seType = domain.StockEntryManufacture
	}
	se, err := s.postStockEntry(tx, domain.StockEntry{
		StockEntryType: seType,
		Company:        company,
		PostingDate:    rb.RoastDate,
		Remarks:        fmt.Sprintf("Finished good via %s", fg.Source),
		ReferenceType:  domain.EntityRoastBatch,
		ReferenceName:  rb.ID,
		Items:          lines,
	})
	if err != nil {
		return domain.StockEntry{}, err
	}
	s.logger.Info("roasting stock entry created", "roast_batch", rb.ID, "stock_entry", se.ID, "type", se.StockEntryType, "source", fg.Source)
	return se, nil
}

// CancelRoastBatch cancels a submitted roast batch and its stock entry.
func (s *Service) CancelRoastBatch(ctx context.Context, id string) (domain.RoastBatch, Result, error) {
	var cancelled domain.RoastBatch
	res, err := s.run(ctx, "cancel_roast_batch", domain.EntityRoastBatch, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		cancelled, err = domain.Update[domain.RoastBatch](tx, id, func(rb *domain.RoastBatch) error {
			if rb.DocStatus != domain.DocStatusSubmitted {
				return domain.Invalidf("Roast Batch %s is not submitted.", id)
			}
			rb.DocStatus = domain.DocStatusCancelled
			return nil
		})
		if err != nil || cancelled.StockEntry == "" {
			return err
		}
		if se, ok := domain.Find[domain.StockEntry](tx, cancelled.StockEntry); ok && se.DocStatus == domain.DocStatusSubmitted {
			_, err = cancelStockEntry(tx, se.ID)
		}
		return err
	}, constID(id))
	return cancelled, res, err
}

// ApplyMachineEvent records a roaster start or finish signal on a batch.
// Unknown batches and repeated signals are ignored.
func (s *Service) ApplyMachineEvent(ctx context.Context, id string, roundNo int, state string, ts time.Time) (bool, error) {
	changed := false
	_, err := s.run(ctx, "apply_machine_event", domain.EntityRoastBatch, domain.ActionUpdate, func(tx domain.Transaction) error {
		rb, ok := domain.Find[domain.RoastBatch](tx, id)
		if !ok || state == "" {
			return nil
		}
		if !roasting.ApplyMachineEvent(&rb, roundNo, state, ts) {
			return nil
		}
		changed = true
		_, err := domain.Update[domain.RoastBatch](tx, id, func(cur *domain.RoastBatch) error {
			*cur = rb
			return nil
		})
		return err
	}, constID(id))
	return changed, err
}

func itemDefaultWarehouse(item domain.Item, company string) string {
	if d, ok := item.DefaultsFor(company); ok && d.DefaultWarehouse != "" {
		return d.DefaultWarehouse
	}
	return item.DefaultWarehouse
}

func (s *Service) companyFor(view domain.TransactionView, company string) string {
	if company != "" {
		return company
	}
	return s.settingsIn(view).DefaultCompany
}
