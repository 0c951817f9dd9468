package reports

import (
	"context"
	"sort"
	"strings"

	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/stock"
	"coffeeroaster/pkg/domain"
)

var grades = []string{"G1", "G2", "G3"}

func cylinderTracking() Template {
	cols := []Column{
		{Name: "roast_cylinder", Label: "Cylinder", Type: "link"},
		{Name: "roast_date", Label: "Date", Type: "date"},
		{Name: "roast_batch", Type: "link"},
	}
	for _, g := range grades {
		cols = append(cols, Column{Name: "green_" + strings.ToLower(g), Label: g + " (green)", Type: "float", Unit: "kg"})
	}
	for _, g := range grades {
		cols = append(cols, Column{Name: "roast_" + strings.ToLower(g), Label: g + " (roasted)", Type: "float", Unit: "kg"})
	}
	cols = append(cols,
		Column{Name: "total_input", Label: "Total In (kg)", Type: "float", Unit: "kg"},
		Column{Name: "total_output", Label: "Total Out (kg)", Type: "float", Unit: "kg"},
		Column{Name: "total_loss", Label: "Total Loss (kg)", Type: "float", Unit: "kg"},
	)
	return Template{
		Key:         "cylinder_tracking",
		Version:     "1",
		Title:       "Cylinder Tracking",
		Description: "Green input and roasted output per grade for each cylinder and roast batch.",
		Parameters: withDateRange(
			Parameter{Name: "roast_cylinder", Type: "string"},
			Parameter{Name: "roasting_machine", Type: "string"},
			Parameter{Name: "operator", Type: "string"},
		),
		Columns: cols,
		Formats: allFormats,
		Run:     runCylinderTracking,
	}
}

func runCylinderTracking(ctx context.Context, req Request) (Result, error) {
	cylinder := req.String("roast_cylinder")
	machine := req.String("roasting_machine")
	operator := req.String("operator")

	var rows []map[string]any
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		batches := domain.List[domain.RoastBatch](v)
		sort.SliceStable(batches, func(i, j int) bool {
			if !batches[i].RoastDate.Equal(batches[j].RoastDate) {
				return batches[i].RoastDate.After(batches[j].RoastDate)
			}
			return batches[i].ID > batches[j].ID
		})
		for _, rb := range batches {
			if !inRange(rb.RoastDate, req) ||
				(machine != "" && rb.RoastingMachine != machine) ||
				(operator != "" && rb.Operator != operator) {
				continue
			}
			groups := map[string][]domain.RoastRound{}
			var order []string
			if len(rb.Rounds) == 0 {
				groups[rb.RoastCylinder] = nil
				order = append(order, rb.RoastCylinder)
			}
			for _, r := range rb.Rounds {
				c := r.RoastCylinder
				if c == "" {
					c = rb.RoastCylinder
				}
				if _, seen := groups[c]; !seen {
					order = append(order, c)
				}
				groups[c] = append(groups[c], r)
			}
			sort.Strings(order)
			for _, c := range order {
				if cylinder != "" && c != cylinder && rb.RoastCylinder != cylinder {
					continue
				}
				rows = append(rows, cylinderRow(c, rb, groups[c]))
			}
		}
		return nil
	})
	return Result{Rows: rows}, err
}

func cylinderRow(cylinder string, rb domain.RoastBatch, rounds []domain.RoastRound) map[string]any {
	row := map[string]any{
		"roast_cylinder": cylinder,
		"roast_date":     dateString(rb.RoastDate),
		"roast_batch":    rb.ID,
	}
	var in, out float64
	for _, g := range grades {
		var gi, gout float64
		for _, r := range rounds {
			if r.Grade == g {
				gi += r.InputQty
				gout += r.OutputQty
			}
		}
		row["green_"+strings.ToLower(g)] = roasting.Round3(gi)
		row["roast_"+strings.ToLower(g)] = roasting.Round3(gout)
	}
	for _, r := range rounds {
		in += r.InputQty
		out += r.OutputQty
	}
	row["total_input"] = roasting.Round3(in)
	row["total_output"] = roasting.Round3(out)
	row["total_loss"] = roasting.Round3(in - out)
	return row
}

func roastRoundsMachineData() Template {
	return Template{
		Key:         "roast_rounds_machine_data",
		Version:     "1",
		Title:       "Roast Rounds Machine Data",
		Description: "Roasting logs assigned to each round of a roast batch.",
		Parameters: []Parameter{
			{Name: "roast_batch", Type: "string", Required: true, Description: "Roast Batch name"},
		},
		Columns: []Column{
			{Name: "round_no", Label: "Round #", Type: "int"},
			{Name: "logs", Type: "int"},
			{Name: "start", Type: "datetime"},
			{Name: "end", Type: "datetime"},
			{Name: "duration_s", Label: "Duration (s)", Type: "int"},
		},
		Formats: allFormats,
		Run:     runRoastRoundsMachineData,
	}
}

func runRoastRoundsMachineData(ctx context.Context, req Request) (Result, error) {
	name := req.String("roast_batch")
	var rows []map[string]any
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		rb, err := domain.Get[domain.RoastBatch](v, name)
		if err != nil {
			return err
		}
		logs := domain.Select[domain.CoffeeRoastingLog](v, func(l domain.CoffeeRoastingLog) bool {
			return l.RoastBatch == rb.ID
		})
		byRound := roasting.RoundLogs(rb, logs)
		for rn := 1; rn <= len(rb.Rounds); rn++ {
			logs := byRound[rn]
			row := map[string]any{"round_no": rn, "logs": len(logs), "start": nil, "end": nil, "duration_s": 0}
			if len(logs) > 0 {
				start, end := logs[0].Timestamp, logs[len(logs)-1].Timestamp
				row["start"] = start.UTC().Format("2006-01-02 15:04:05")
				row["end"] = end.UTC().Format("2006-01-02 15:04:05")
				row["duration_s"] = int(end.Sub(start).Seconds())
			}
			rows = append(rows, row)
		}
		return nil
	})
	return Result{Rows: rows}, err
}

func roastBatchProfitability() Template {
	return Template{
		Key:         "roast_batch_profitability",
		Version:     "1",
		Title:       "Roast Batch Profitability",
		Description: "Yield, cost, revenue and margin per roast batch from its batch cost.",
		Parameters: withDateRange(
			Parameter{Name: "roast_batch", Type: "string"},
			Parameter{Name: "rb_docstatus", Type: "string", Enum: []string{"Draft", "Submitted", "Both"}, Default: "Both"},
			Parameter{Name: "only_submitted_batch_cost", Type: "boolean"},
		),
		Columns: []Column{
			{Name: "roast_batch", Type: "link"},
			{Name: "company", Type: "link"},
			{Name: "roast_date", Type: "date"},
			{Name: "input_qty", Label: "Input Qty (kg)", Type: "float", Unit: "kg"},
			{Name: "output_qty", Label: "Output Qty (kg)", Type: "float", Unit: "kg"},
			{Name: "yield_pct", Label: "Yield (%)", Type: "percent"},
			{Name: "unit_cost", Label: "Unit Cost (ETB/kg)", Type: "currency"},
			{Name: "total_cost", Label: "Total Cost (ETB)", Type: "currency"},
			{Name: "selling_rate", Label: "Selling Rate (ETB/kg)", Type: "currency"},
			{Name: "revenue", Label: "Revenue (ETB)", Type: "currency"},
			{Name: "profit", Label: "Profit (ETB)", Type: "currency"},
			{Name: "profit_margin", Label: "Profit Margin (%)", Type: "percent"},
		},
		Formats: allFormats,
		Run:     runRoastBatchProfitability,
	}
}

func runRoastBatchProfitability(ctx context.Context, req Request) (Result, error) {
	name := req.String("roast_batch")
	status := req.String("rb_docstatus")
	onlySubmittedCost := req.Bool("only_submitted_batch_cost")

	var rows []map[string]any
	var totOut, totCost, totRev, totProfit float64
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		costs := domain.List[domain.BatchCost](v)
		batches := domain.List[domain.RoastBatch](v)
		sort.SliceStable(batches, func(i, j int) bool {
			if !batches[i].RoastDate.Equal(batches[j].RoastDate) {
				return batches[i].RoastDate.After(batches[j].RoastDate)
			}
			return batches[i].ID > batches[j].ID
		})
		for _, rb := range batches {
			switch {
			case rb.DocStatus == domain.DocStatusCancelled,
				status == "Draft" && rb.DocStatus != domain.DocStatusDraft,
				status == "Submitted" && rb.DocStatus != domain.DocStatusSubmitted,
				name != "" && rb.ID != name,
				!inRange(rb.RoastDate, req):
				continue
			}
			bc, found := costFor(costs, rb.ID)
			if onlySubmittedCost && (!found || bc.DocStatus != domain.DocStatusSubmitted) {
				continue
			}
			_, in := roasting.FirstNumber(rb, "qty_to_roast", "input_qty", "input_weight")
			_, out := roasting.FirstNumber(rb, "output_qty", "output_weight", "finished_weight")

			totalCost, _ := bc.TotalBatchCost.Float64()
			unitCost, _ := bc.CostPerKg.Float64()
			if unitCost == 0 && out != 0 {
				unitCost = totalCost / out
			}
			rate, _ := bc.SellingRate.Float64()
			if rate == 0 {
				rate = sellingRate(v, rb)
			}
			revenue, _ := bc.Revenue.Float64()
			if revenue == 0 {
				revenue = rate * out
			}
			profit := revenue - totalCost
			var margin float64
			if revenue != 0 {
				margin = profit / revenue * 100
			}
			var yield any
			if in != 0 {
				yield = out / in * 100
			}
			rows = append(rows, map[string]any{
				"roast_batch":   rb.ID,
				"company":       rb.Company,
				"roast_date":    dateString(rb.RoastDate),
				"input_qty":     in,
				"output_qty":    out,
				"yield_pct":     yield,
				"unit_cost":     unitCost,
				"total_cost":    totalCost,
				"selling_rate":  rate,
				"revenue":       revenue,
				"profit":        profit,
				"profit_margin": margin,
			})
			totOut += out
			totCost += totalCost
			totRev += revenue
			totProfit += profit
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	var avgUnit, margin float64
	if totOut != 0 {
		avgUnit = totCost / totOut
	}
	if totRev != 0 {
		margin = totProfit / totRev * 100
	}
	return Result{Rows: rows, Summary: []SummaryItem{
		{Label: "Total Output (kg)", Value: totOut, Indicator: "blue"},
		{Label: "Total Cost (ETB)", Value: totCost, Indicator: "orange"},
		{Label: "Total Revenue (ETB)", Value: totRev, Indicator: "green"},
		{Label: "Total Profit (ETB)", Value: totProfit, Indicator: signIndicator(totProfit)},
		{Label: "Avg Unit Cost (ETB/kg)", Value: avgUnit, Indicator: "orange"},
		{Label: "Profit Margin (%)", Value: margin, Indicator: signIndicator(margin)},
	}}, nil
}

func signIndicator(v float64) string {
	if v < 0 {
		return "red"
	}
	return "green"
}

// costFor prefers the submitted batch cost of a roast batch and falls back
// to any non-cancelled one.
func costFor(costs []domain.BatchCost, rbID string) (domain.BatchCost, bool) {
	var fallback *domain.BatchCost
	for i := range costs {
		bc := costs[i]
		if bc.BatchNo != rbID || bc.DocStatus == domain.DocStatusCancelled {
			continue
		}
		if bc.DocStatus == domain.DocStatusSubmitted {
			return bc, true
		}
		if fallback == nil {
			fallback = &costs[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.BatchCost{}, false
}

// sellingRate looks for a rate on the batch, then the selling item price of
// the roasted item, restricted to the batch's price list when it names one.
func sellingRate(v domain.TransactionView, rb domain.RoastBatch) float64 {
	if _, rate := roasting.FirstNumber(rb, "selling_rate", "selling_price", "price_per_kg", "rate", "price"); rate != 0 {
		return rate
	}
	_, item := roasting.FirstText(rb, "roasted_item", "item_code", "product")
	if item == "" {
		return 0
	}
	priceList := rb.SellingPriceList
	if priceList == "" {
		_, priceList = roasting.FirstText(rb, "selling_price_list", "price_list")
	}
	for _, p := range domain.List[domain.ItemPrice](v) {
		if p.ItemCode == item && p.Selling && (priceList == "" || p.PriceList == priceList) {
			return p.PriceListRate
		}
	}
	return 0
}

func stockBalance() Template {
	return Template{
		Key:         "stock_balance",
		Version:     "1",
		Title:       "Stock Balance",
		Description: "On-hand quantity per item and warehouse from submitted stock entries.",
		Parameters: []Parameter{
			{Name: "item_code", Type: "string"},
			{Name: "warehouse", Type: "string"},
			{Name: "by_batch", Type: "boolean", Description: "split balances by batch"},
		},
		Columns: []Column{
			{Name: "item_code", Type: "link"},
			{Name: "warehouse", Type: "link"},
			{Name: "batch_no", Label: "Batch No", Type: "link"},
			{Name: "qty", Label: "Qty", Type: "float"},
		},
		Formats: allFormats,
		Run:     runStockBalance,
	}
}

func runStockBalance(ctx context.Context, req Request) (Result, error) {
	item, warehouse := req.String("item_code"), req.String("warehouse")
	var rows []map[string]any
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		for _, r := range stock.Build(v).Rows(req.Bool("by_batch")) {
			if (item != "" && r.Item != item) || (warehouse != "" && r.Warehouse != warehouse) {
				continue
			}
			rows = append(rows, map[string]any{
				"item_code": r.Item,
				"warehouse": r.Warehouse,
				"batch_no":  r.Batch,
				"qty":       roasting.Round3(r.Qty),
			})
		}
		return nil
	})
	return Result{Rows: rows}, err
}
