package reports

import (
	"context"
	"math"
	"sort"
	"time"

	"coffeeroaster/pkg/domain"
)

func skuPnLProfit() Template {
	return Template{
		Key:         "sku_pnl_profit",
		Version:     "1",
		Title:       "SKU P&L Profit",
		Description: "Sold quantity, average selling rate and margin per batch against its batch cost.",
		Parameters: withDateRange(
			Parameter{Name: "company", Type: "string"},
			Parameter{Name: "item_code", Type: "string"},
			Parameter{Name: "batch", Type: "string"},
		),
		Columns: []Column{
			{Name: "batch", Type: "link"},
			{Name: "item_code", Type: "link"},
			{Name: "date", Type: "date"},
			{Name: "sold_qty", Label: "Qty Sold (Kg)", Type: "float", Unit: "kg"},
			{Name: "sales_per_kg", Label: "Sales/Kg", Type: "currency"},
			{Name: "cost_per_kg", Label: "Cost/Kg", Type: "currency"},
			{Name: "margin", Label: "Margin/Kg", Type: "currency"},
			{Name: "margin_pct", Label: "Margin %", Type: "percent"},
			{Name: "company", Type: "link"},
		},
		Formats: allFormats,
		Run:     runSKUPnLProfit,
	}
}

type skuKey struct {
	batch, item, company string
	date                 time.Time
}

type skuAgg struct {
	sold     float64
	rateSum  float64
	lines    int
	costPerK float64
}

func runSKUPnLProfit(ctx context.Context, req Request) (Result, error) {
	company, item, batch := req.String("company"), req.String("item_code"), req.String("batch")

	groups := map[skuKey]*skuAgg{}
	var keys []skuKey
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		costs := domain.List[domain.BatchCost](v)
		for _, inv := range domain.List[domain.SalesInvoice](v) {
			if inv.DocStatus != domain.DocStatusSubmitted || (company != "" && inv.Company != company) {
				continue
			}
			for _, line := range inv.Items {
				if line.BatchNo == "" ||
					(item != "" && line.ItemCode != item) ||
					(batch != "" && line.BatchNo != batch) {
					continue
				}
				date := truncateDay(inv.PostingDate)
				if rb, ok := domain.Find[domain.RoastBatch](v, line.BatchNo); ok && !rb.RoastDate.IsZero() {
					date = truncateDay(rb.RoastDate)
				}
				if !inRange(date, req) {
					continue
				}
				var cost float64
				if bc, ok := costFor(costs, line.BatchNo); ok {
					cost, _ = bc.CostPerKg.Float64()
				}
				k := skuKey{batch: line.BatchNo, item: line.ItemCode, company: inv.Company, date: date}
				agg, ok := groups[k]
				if !ok {
					agg = &skuAgg{costPerK: cost}
					groups[k] = agg
					keys = append(keys, k)
				}
				rate, _ := line.Rate.Float64()
				agg.sold += line.Qty
				agg.rateSum += rate
				agg.lines++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.After(keys[j].date)
		}
		if keys[i].batch != keys[j].batch {
			return keys[i].batch < keys[j].batch
		}
		return keys[i].item < keys[j].item
	})
	var rows []map[string]any
	for _, k := range keys {
		agg := groups[k]
		if agg.sold == 0 {
			continue
		}
		avg := agg.rateSum / float64(agg.lines)
		margin := avg - agg.costPerK
		var pct float64
		if agg.costPerK > 0 {
			pct = math.Round(margin/agg.costPerK*100*100) / 100
		}
		rows = append(rows, map[string]any{
			"batch":        k.batch,
			"item_code":    k.item,
			"date":         dateString(k.date),
			"sold_qty":     agg.sold,
			"sales_per_kg": avg,
			"cost_per_kg":  agg.costPerK,
			"margin":       margin,
			"margin_pct":   pct,
			"company":      k.company,
		})
	}
	return Result{Rows: rows}, nil
}
