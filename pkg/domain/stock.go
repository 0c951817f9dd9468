package domain

import "time"

// StockEntryType classifies inventory movements.
type StockEntryType string

// Supported stock entry purposes.
const (
	StockEntryManufacture      StockEntryType = "Manufacture"
	StockEntryMaterialReceipt  StockEntryType = "Material Receipt"
	StockEntryMaterialTransfer StockEntryType = "Material Transfer"
	StockEntryMaterialIssue    StockEntryType = "Material Issue"
)

// StockEntryDetail is one line of a stock entry. A line with a source
// warehouse consumes stock, a line with a target warehouse produces it.
type StockEntryDetail struct {
	ItemCode         string  `json:"item_code"`
	Qty              float64 `json:"qty"`
	UOM              string  `json:"uom"`
	ConversionFactor float64 `json:"conversion_factor"`
	SWarehouse       string  `json:"s_warehouse"`
	TWarehouse       string  `json:"t_warehouse"`
	BatchNo          string  `json:"batch_no"`
	IsFinishedItem   bool    `json:"is_finished_item"`
}

// StockEntry records physical inventory movement. Only submitted entries
// affect balances.
type StockEntry struct {
	Base
	StockEntryType StockEntryType     `json:"stock_entry_type"`
	Company        string             `json:"company"`
	PostingDate    time.Time          `json:"posting_date"`
	Remarks        string             `json:"remarks"`
	ReferenceType  EntityType         `json:"reference_type"`
	ReferenceName  string             `json:"reference_name"`
	DocStatus      DocStatus          `json:"docstatus"`
	Items          []StockEntryDetail `json:"items"`
}

// Entity implements Record.
func (StockEntry) Entity() EntityType { return EntityStockEntry }

func (s *StockEntry) cloneRecord() Record {
	cp := *s
	cp.Items = append([]StockEntryDetail(nil), s.Items...)
	return &cp
}
