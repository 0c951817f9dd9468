package domain

import "time"

// RoastRound is one drum load inside a roast batch.
type RoastRound struct {
	RoundNo       int     `json:"round_no"`
	Grade         string  `json:"grade"`
	RoastCylinder string  `json:"roast_cylinder"`
	InputQty      float64 `json:"input_qty"`
	OutputQty     float64 `json:"output_qty"`
	Quacker       float64 `json:"quacker"`
	LossQty       float64 `json:"loss_qty"`
	NetQty        float64 `json:"net_qty"`
}

// MaterialLine is a raw material consumed by a roast batch.
type MaterialLine struct {
	ItemCode        string  `json:"item_code"`
	Qty             float64 `json:"qty"`
	UOM             string  `json:"uom"`
	SourceWarehouse string  `json:"s_warehouse"`
}

// RoastBatch is the production document for one roasting session.
//
// Attributes holds fields from site-specific schema variants (for example
// fg_item, outputs or fg_warehouse). Finished-good resolution ranks them
// together with the typed fields.
type RoastBatch struct {
	Base
	Company              string         `json:"company"`
	RoastDate            time.Time      `json:"roast_date"`
	GreenBeanItem        string         `json:"green_bean_item"`
	RoastedItem          string         `json:"roasted_item"`
	SourceWarehouse      string         `json:"source_warehouse"`
	TargetWarehouse      string         `json:"target_warehouse"`
	QtyToRoast           float64        `json:"qty_to_roast"`
	OutputQty            float64        `json:"output_qty"`
	QCScore              int            `json:"qc_score"`
	RoastCylinder        string         `json:"roast_cylinder"`
	RoastingMachine      string         `json:"roasting_machine"`
	Operator             string         `json:"operator"`
	RoastProfile         string         `json:"roast_profile"`
	GreenOrigin          string         `json:"green_origin"`
	GreenGrade           string         `json:"green_grade"`
	ChargeTempC          float64        `json:"charge_temp"`
	DropTempC            float64        `json:"drop_temp"`
	ColorAgtron          float64        `json:"color_agtron"`
	QualityInspection    string         `json:"quality_inspection"`
	SellingRate          float64        `json:"selling_rate"`
	SellingPriceList     string         `json:"selling_price_list"`
	Rounds               []RoastRound   `json:"rounds"`
	RawMaterials         []MaterialLine `json:"roasting_materials"`
	TotalInputQty        float64        `json:"total_input_qty"`
	TotalOutputQty       float64        `json:"total_output_qty"`
	TotalLossQty         float64        `json:"total_loss_qty"`
	TotalQuacker         float64        `json:"total_quacker"`
	RoundsCount          int            `json:"rounds_count"`
	WeightLossPercentage float64        `json:"weight_loss_percentage"`
	ChargeStart          *time.Time     `json:"charge_start,omitempty"`
	ChargeEnd            *time.Time     `json:"charge_end,omitempty"`
	DevelopmentEnd       *time.Time     `json:"development_end,omitempty"`
	BatchNo              string         `json:"batch_no"`
	StockEntryCreated    bool           `json:"stock_entry_created"`
	StockEntry           string         `json:"stock_entry"`
	DocStatus            DocStatus      `json:"docstatus"`
	Attributes           map[string]any `json:"attributes,omitempty"`
}

// Entity implements Record.
func (RoastBatch) Entity() EntityType { return EntityRoastBatch }

func (r *RoastBatch) cloneRecord() Record {
	cp := *r
	cp.Rounds = append([]RoastRound(nil), r.Rounds...)
	cp.RawMaterials = append([]MaterialLine(nil), r.RawMaterials...)
	cp.ChargeStart = cloneTime(r.ChargeStart)
	cp.ChargeEnd = cloneTime(r.ChargeEnd)
	cp.DevelopmentEnd = cloneTime(r.DevelopmentEnd)
	cp.Attributes = cloneAttributes(r.Attributes)
	return &cp
}

// RoastedCoffee records finished coffee awaiting receipt into stock.
type RoastedCoffee struct {
	Base
	ItemCode             string  `json:"item"`
	Warehouse            string  `json:"warehouse"`
	Quantity             float64 `json:"quantity"`
	UOM                  string  `json:"uom"`
	InputWeight          float64 `json:"input_weight"`
	OutputWeight         float64 `json:"output_weight"`
	WeightLoss           float64 `json:"weight_loss"`
	WeightLossPercentage float64 `json:"weight_loss_percentage"`
	Status               string  `json:"status"`
	StockEntry           string  `json:"stock_entry"`
}

// Entity implements Record.
func (RoastedCoffee) Entity() EntityType { return EntityRoastedCoffee }

func (r *RoastedCoffee) cloneRecord() Record { cp := *r; return &cp }

// RoastPhase is one segment of a roast curve. Times are "mm:ss".
type RoastPhase struct {
	Phase        string   `json:"phase"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	Observations string   `json:"observations,omitempty"`
}

// Attachment references a file stored in blob storage.
type Attachment struct {
	Key        string    `json:"key"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CoffeeRoastingLog captures a roast curve and its derived phases.
type CoffeeRoastingLog struct {
	Base
	// LogName is the editable display name; a "-R<n>" suffix ties the log to
	// round n of its roast batch.
	LogName           string       `json:"log_name"`
	RoastBatch        string       `json:"roast_batch"`
	Timestamp         time.Time    `json:"timestamp"`
	RoastDate         time.Time    `json:"roast_date"`
	Company           string       `json:"company"`
	RoastedItem       string       `json:"roasted_item"`
	RoasterUsed       string       `json:"roaster_used"`
	RoastProfile      string       `json:"roast_profile"`
	GreenOrigin       string       `json:"green_origin"`
	GreenGrade        string       `json:"green_grade"`
	BatchWeightKg     float64      `json:"batch_weight_kg"`
	YieldKg           float64      `json:"yield_kg"`
	WeightLossPct     float64      `json:"weight_loss_pct"`
	ChargeTempC       float64      `json:"charge_temp_c"`
	FinalTempC        float64      `json:"final_temp_c"`
	ColorAgtron       float64      `json:"color_agtron"`
	QualityInspection string       `json:"quality_inspection"`
	Adapter           string       `json:"adapter"`
	PointCount        int          `json:"point_count"`
	EventCount        int          `json:"event_count"`
	DataJSON          string       `json:"data_json,omitempty"`
	Phases            []RoastPhase `json:"roast_phases"`
	FirstCrackStart   string       `json:"first_crack_start"`
	FirstCrackEnd     string       `json:"first_crack_end"`
	DevelopmentTime   string       `json:"development_time"`
	RoastTime         string       `json:"roast_time"`
	Attachments       []Attachment `json:"attachments"`
}

// Entity implements Record.
func (CoffeeRoastingLog) Entity() EntityType { return EntityRoastingLog }

func (l *CoffeeRoastingLog) cloneRecord() Record {
	cp := *l
	cp.Phases = make([]RoastPhase, len(l.Phases))
	for i, p := range l.Phases {
		if p.TemperatureC != nil {
			v := *p.TemperatureC
			p.TemperatureC = &v
		}
		cp.Phases[i] = p
	}
	if l.Phases == nil {
		cp.Phases = nil
	}
	cp.Attachments = append([]Attachment(nil), l.Attachments...)
	return &cp
}

// LatestAttachment returns the most recently uploaded attachment.
func (l CoffeeRoastingLog) LatestAttachment() (Attachment, bool) {
	var (
		latest Attachment
		found  bool
	)
	for _, a := range l.Attachments {
		if !found || a.UploadedAt.After(latest.UploadedAt) {
			latest = a
			found = true
		}
	}
	return latest, found
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneAttributes(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAttributes(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = cloneAttributes(item)
		}
		return out
	default:
		return val
	}
}
