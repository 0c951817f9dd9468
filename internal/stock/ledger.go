// Package stock derives warehouse balances from submitted stock entries.
package stock

import (
	"sort"

	"coffeeroaster/pkg/domain"
)

// Epsilon absorbs float noise when comparing balances with zero.
const Epsilon = 1e-9

type itemKey struct {
	item      string
	warehouse string
}

// Key identifies a batch balance.
type Key struct {
	Item      string
	Warehouse string
	Batch     string
}

// Row is one non-zero balance line.
type Row struct {
	Item      string  `json:"item_code"`
	Warehouse string  `json:"warehouse"`
	Batch     string  `json:"batch_no,omitempty"`
	Qty       float64 `json:"qty"`
}

// Ledger holds balances per item and warehouse and per batch.
type Ledger struct {
	items   map[itemKey]float64
	batches map[Key]float64
}

// Build replays every submitted stock entry visible in view.
func Build(view domain.TransactionView) Ledger {
	l := Ledger{items: make(map[itemKey]float64), batches: make(map[Key]float64)}
	for _, se := range domain.List[domain.StockEntry](view) {
		if se.DocStatus != domain.DocStatusSubmitted {
			continue
		}
		for _, d := range se.Items {
			qty := d.Qty
			if d.ConversionFactor > 0 {
				qty *= d.ConversionFactor
			}
			if d.SWarehouse != "" {
				l.add(d.ItemCode, d.SWarehouse, d.BatchNo, -qty)
			}
			if d.TWarehouse != "" {
				l.add(d.ItemCode, d.TWarehouse, d.BatchNo, qty)
			}
		}
	}
	return l
}

func (l Ledger) add(item, warehouse, batch string, qty float64) {
	l.items[itemKey{item, warehouse}] += qty
	if batch != "" {
		l.batches[Key{item, warehouse, batch}] += qty
	}
}

// Balance returns the quantity of item held in warehouse.
func (l Ledger) Balance(item, warehouse string) float64 {
	return l.items[itemKey{item, warehouse}]
}

// BatchBalance returns the quantity of one batch held in warehouse.
func (l Ledger) BatchBalance(item, warehouse, batch string) float64 {
	return l.batches[Key{item, warehouse, batch}]
}

// WarehouseTotal sums every item balance in warehouse.
func (l Ledger) WarehouseTotal(warehouse string) float64 {
	var total float64
	for k, qty := range l.items {
		if k.warehouse == warehouse {
			total += qty
		}
	}
	return total
}

// Batches returns the batches of item with stock in warehouse, ordered by
// manufacturing date then batch id.
func (l Ledger) Batches(view domain.TransactionView, item, warehouse string) []string {
	type candidate struct {
		id  string
		mfg domain.Batch
	}
	var out []candidate
	for k, qty := range l.batches {
		if k.Item != item || k.Warehouse != warehouse || qty <= Epsilon {
			continue
		}
		b, _ := domain.Find[domain.Batch](view, k.Batch)
		out = append(out, candidate{id: k.Batch, mfg: b})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].mfg.ManufacturingDate, out[j].mfg.ManufacturingDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].id < out[j].id
	})
	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = c.id
	}
	return ids
}

// Rows lists the non-zero item balances ordered by item then warehouse. With
// byBatch the batch split is returned instead, items without batches keep a
// single row.
func (l Ledger) Rows(byBatch bool) []Row {
	var rows []Row
	if byBatch {
		batched := make(map[itemKey]float64)
		for k, qty := range l.batches {
			batched[itemKey{k.Item, k.Warehouse}] += qty
			if nonZero(qty) {
				rows = append(rows, Row{Item: k.Item, Warehouse: k.Warehouse, Batch: k.Batch, Qty: qty})
			}
		}
		for k, qty := range l.items {
			if rest := qty - batched[k]; nonZero(rest) {
				rows = append(rows, Row{Item: k.item, Warehouse: k.warehouse, Qty: rest})
			}
		}
	} else {
		for k, qty := range l.items {
			if nonZero(qty) {
				rows = append(rows, Row{Item: k.item, Warehouse: k.warehouse, Qty: qty})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Item != rows[j].Item {
			return rows[i].Item < rows[j].Item
		}
		if rows[i].Warehouse != rows[j].Warehouse {
			return rows[i].Warehouse < rows[j].Warehouse
		}
		return rows[i].Batch < rows[j].Batch
	})
	return rows
}

func nonZero(v float64) bool {
	return v > Epsilon || v < -Epsilon
}
