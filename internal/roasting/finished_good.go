package roasting

import (
	"encoding/json"
	"sort"
	"strings"

	"coffeeroaster/pkg/domain"
)

// FieldKind classifies a roast batch field for finished-good detection.
type FieldKind int

// Field kinds.
const (
	KindText FieldKind = iota
	KindItemLink
	KindNumber
	KindTable
)

// Field is one named value of a roast batch, either a typed field or a
// schema-variant attribute.
type Field struct {
	Name  string
	Kind  FieldKind
	Value any
}

// FinishedGood is the resolved output line of a roast batch.
type FinishedGood struct {
	ItemCode string
	Qty      float64
	UOM      string
	// Source names where the values were found, e.g. "parent:roasted_item"
	// or "child:outputs".
	Source string
}

// RawMaterialTables lists the child tables searched for consumed materials,
// in priority order.
var RawMaterialTables = []string{"roasting_materials", "raw_materials", "materials", "green_inputs", "ingredients", "rm_items", "items"}

// FinishedGoodWarehouseFields lists roast batch fields that may name the
// finished goods warehouse, in priority order.
var FinishedGoodWarehouseFields = []string{"fg_warehouse", "finished_goods_warehouse", "output_warehouse", "target_warehouse", "t_warehouse"}

// Rank scores a field name by how likely it holds finished-good data.
func Rank(name string) int {
	s := strings.ToLower(name)
	score := 0
	if strings.Contains(s, "fg") {
		score += 5
	}
	if strings.Contains(s, "finished") {
		score += 5
	}
	if strings.Contains(s, "output") {
		score += 4
	}
	if strings.Contains(s, "roast") {
		score += 2
	}
	if strings.Contains(s, "item") {
		score += 2
	}
	if strings.Contains(s, "qty") || strings.Contains(s, "weight") {
		score++
	}
	return score
}

// Fields flattens a roast batch into typed fields followed by attributes in
// key order.
func Fields(rb domain.RoastBatch) []Field {
	fields := []Field{
		{Name: "company", Kind: KindText, Value: rb.Company},
		{Name: "green_bean_item", Kind: KindItemLink, Value: rb.GreenBeanItem},
		{Name: "roasted_item", Kind: KindItemLink, Value: rb.RoastedItem},
		{Name: "source_warehouse", Kind: KindText, Value: rb.SourceWarehouse},
		{Name: "target_warehouse", Kind: KindText, Value: rb.TargetWarehouse},
		{Name: "roasting_machine", Kind: KindText, Value: rb.RoastingMachine},
		{Name: "roast_cylinder", Kind: KindText, Value: rb.RoastCylinder},
		{Name: "roast_profile", Kind: KindText, Value: rb.RoastProfile},
		{Name: "green_origin", Kind: KindText, Value: rb.GreenOrigin},
		{Name: "green_grade", Kind: KindText, Value: rb.GreenGrade},
		{Name: "quality_inspection", Kind: KindText, Value: rb.QualityInspection},
		{Name: "qty_to_roast", Kind: KindNumber, Value: rb.QtyToRoast},
		{Name: "output_qty", Kind: KindNumber, Value: rb.OutputQty},
		{Name: "qc_score", Kind: KindNumber, Value: float64(rb.QCScore)},
		{Name: "charge_temp", Kind: KindNumber, Value: rb.ChargeTempC},
		{Name: "drop_temp", Kind: KindNumber, Value: rb.DropTempC},
		{Name: "color_agtron", Kind: KindNumber, Value: rb.ColorAgtron},
		{Name: "selling_rate", Kind: KindNumber, Value: rb.SellingRate},
		{Name: "total_input_qty", Kind: KindNumber, Value: rb.TotalInputQty},
		{Name: "total_output_qty", Kind: KindNumber, Value: rb.TotalOutputQty},
		{Name: "total_loss_qty", Kind: KindNumber, Value: rb.TotalLossQty},
		{Name: "total_quacker", Kind: KindNumber, Value: rb.TotalQuacker},
		{Name: "rounds_count", Kind: KindNumber, Value: float64(rb.RoundsCount)},
		{Name: "weight_loss_percentage", Kind: KindNumber, Value: rb.WeightLossPercentage},
	}
	if len(rb.RawMaterials) > 0 {
		rows := make([]map[string]any, 0, len(rb.RawMaterials))
		for _, m := range rb.RawMaterials {
			rows = append(rows, map[string]any{
				"item_code":   m.ItemCode,
				"qty":         m.Qty,
				"uom":         m.UOM,
				"s_warehouse": m.SourceWarehouse,
			})
		}
		fields = append(fields, Field{Name: "roasting_materials", Kind: KindTable, Value: rows})
	}

	keys := make([]string, 0, len(rb.Attributes))
	for k := range rb.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f, ok := attributeField(k, rb.Attributes[k]); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func attributeField(name string, v any) (Field, bool) {
	if rows, ok := tableRows(v); ok {
		return Field{Name: name, Kind: KindTable, Value: rows}, true
	}
	if n, ok := ToFloat(v); ok {
		return Field{Name: name, Kind: KindNumber, Value: n}, true
	}
	if s, ok := v.(string); ok {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "item") && !strings.HasSuffix(lower, "uom") {
			return Field{Name: name, Kind: KindItemLink, Value: s}, true
		}
		return Field{Name: name, Kind: KindText, Value: s}, true
	}
	return Field{}, false
}

func tableRows(v any) ([]map[string]any, bool) {
	switch rows := v.(type) {
	case []map[string]any:
		return rows, true
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			m, ok := r.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}

// ToFloat converts the numeric representations found in decoded attributes.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func textOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

type ranked struct {
	name  string
	value any
	rank  int
}

func byRank(in []ranked) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].rank > in[j].rank })
}

// ResolveFinishedGood locates the finished-good item, quantity and unit on a
// roast batch. Parent item links and numbers are ranked by name; when the
// parent does not carry both, output-like child tables are searched.
// Raw material tables never supply the finished good.
func ResolveFinishedGood(rb domain.RoastBatch) (FinishedGood, error) {
	fields := Fields(rb)

	var items, qtys, uoms, tables []ranked
	for _, f := range fields {
		switch f.Kind {
		case KindItemLink:
			if s := textOf(f.Value); s != "" {
				items = append(items, ranked{f.Name, s, Rank(f.Name)})
			}
		case KindNumber:
			qtys = append(qtys, ranked{f.Name, f.Value, Rank(f.Name)})
		case KindText:
			if strings.HasSuffix(strings.ToLower(f.Name), "uom") {
				if s := textOf(f.Value); s != "" {
					uoms = append(uoms, ranked{f.Name, s, Rank(f.Name)})
				}
			}
		case KindTable:
			if isRawMaterialTable(f.Name) {
				continue
			}
			if rows, _ := f.Value.([]map[string]any); len(rows) > 0 {
				tables = append(tables, ranked{f.Name, rows, Rank(f.Name)})
			}
		}
	}
	byRank(items)
	byRank(qtys)
	byRank(uoms)
	byRank(tables)

	if len(items) > 0 && len(qtys) > 0 && qtys[0].value.(float64) > 0 {
		fg := FinishedGood{
			ItemCode: items[0].value.(string),
			Qty:      qtys[0].value.(float64),
			Source:   "parent:" + items[0].name,
		}
		if len(uoms) > 0 {
			fg.UOM = uoms[0].value.(string)
		}
		return fg, nil
	}

	for _, tbl := range tables {
		for _, row := range tbl.value.([]map[string]any) {
			fg, ok := finishedGoodFromRow(row)
			if !ok {
				continue
			}
			fg.Source = "child:" + tbl.name
			return checkQty(fg)
		}
	}

	if len(items) == 0 {
		return FinishedGood{}, domain.Invalidf("Could not auto-detect Finished Good item on Roast Batch.\n" +
			"Tip: add a Link-to-Item field (e.g., fg_item/finished_item/output_item) or an outputs child table with item+qty.\n" +
			"Detected Item links on parent: none")
	}
	return FinishedGood{}, domain.Invalidf("Could not auto-detect Finished Good qty on Roast Batch.")
}

func checkQty(fg FinishedGood) (FinishedGood, error) {
	if fg.Qty <= 0 {
		return FinishedGood{}, domain.Invalidf("Could not auto-detect Finished Good qty on Roast Batch.")
	}
	return fg, nil
}

func finishedGoodFromRow(row map[string]any) (FinishedGood, bool) {
	var itemKeys, qtyKeys []string
	for k, v := range row {
		lower := strings.ToLower(k)
		if _, isStr := v.(string); isStr && (lower == "item_code" || (strings.Contains(lower, "item") && !strings.HasSuffix(lower, "uom"))) {
			itemKeys = append(itemKeys, k)
		}
		if _, isNum := ToFloat(v); isNum && (strings.Contains(lower, "qty") || strings.Contains(lower, "weight") || strings.Contains(lower, "output")) {
			qtyKeys = append(qtyKeys, k)
		}
	}
	sortKeysByRank(itemKeys)
	sortKeysByRank(qtyKeys)

	var fg FinishedGood
	for _, k := range itemKeys {
		if s := textOf(row[k]); s != "" {
			fg.ItemCode = s
			break
		}
	}
	if fg.ItemCode == "" || len(qtyKeys) == 0 {
		return FinishedGood{}, false
	}
	fg.Qty, _ = ToFloat(row[qtyKeys[0]])
	fg.UOM = textOf(row["uom"])
	if fg.UOM == "" {
		fg.UOM = textOf(row["stock_uom"])
	}
	return fg, true
}

func sortKeysByRank(keys []string) {
	sort.Strings(keys)
	sort.SliceStable(keys, func(i, j int) bool { return Rank(keys[i]) > Rank(keys[j]) })
}

func isRawMaterialTable(name string) bool {
	for _, t := range RawMaterialTables {
		if t == name {
			return true
		}
	}
	return false
}

// FirstText returns the first non-empty text field among candidates.
func FirstText(rb domain.RoastBatch, candidates ...string) (string, string) {
	byName := make(map[string]Field)
	for _, f := range Fields(rb) {
		if _, seen := byName[f.Name]; !seen {
			byName[f.Name] = f
		}
	}
	for _, c := range candidates {
		if f, ok := byName[c]; ok {
			if s := textOf(f.Value); s != "" {
				return c, s
			}
		}
	}
	return "", ""
}

// FirstNumber returns the first non-zero numeric field among candidates.
func FirstNumber(rb domain.RoastBatch, candidates ...string) (string, float64) {
	byName := make(map[string]Field)
	for _, f := range Fields(rb) {
		if _, seen := byName[f.Name]; !seen && f.Kind == KindNumber {
			byName[f.Name] = f
		}
	}
	for _, c := range candidates {
		if f, ok := byName[c]; ok {
			if n, _ := ToFloat(f.Value); n != 0 {
				return c, n
			}
		}
	}
	return "", 0
}

// MaterialLines returns the raw material lines of the first non-empty
// material table. Row keys follow the common variants (item_code, rm_item,
// item; qty, rm_qty, quantity; uom, stock_uom; s_warehouse,
// source_warehouse, warehouse). Rows without item or quantity are skipped.
func MaterialLines(rb domain.RoastBatch) []domain.MaterialLine {
	tables := make(map[string][]map[string]any)
	for _, f := range Fields(rb) {
		if f.Kind != KindTable {
			continue
		}
		if _, seen := tables[f.Name]; seen {
			continue
		}
		tables[f.Name], _ = f.Value.([]map[string]any)
	}
	for _, name := range RawMaterialTables {
		var lines []domain.MaterialLine
		for _, row := range tables[name] {
			item := firstString(row, "item_code", "rm_item", "item")
			qty := firstNumber(row, "qty", "rm_qty", "quantity")
			if item == "" || qty == 0 {
				continue
			}
			lines = append(lines, domain.MaterialLine{
				ItemCode:        item,
				Qty:             qty,
				UOM:             firstString(row, "uom", "stock_uom"),
				SourceWarehouse: firstString(row, "s_warehouse", "source_warehouse", "warehouse"),
			})
		}
		if len(lines) > 0 {
			return lines
		}
	}
	return nil
}

func firstString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := textOf(row[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstNumber(row map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if n, ok := ToFloat(row[k]); ok && n != 0 {
			return n
		}
	}
	return 0
}
