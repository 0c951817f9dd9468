package domain

import "time"

// SettingsID is the fixed document name of the single settings record.
const SettingsID = "settings"

// Company is a legal entity that owns warehouses, accounts and documents.
type Company struct {
	Base
	CompanyName           string            `json:"company_name"`
	Abbr                  string            `json:"abbr"`
	DefaultCurrency       string            `json:"default_currency"`
	DefaultIncomeAccount  string            `json:"default_income_account"`
	TaxID                 string            `json:"tax_id"`
	VATRegistrationNumber string            `json:"vat_registration_number"`
	PhoneNo               string            `json:"phone_no"`
	Email                 string            `json:"email"`
	Address               Address           `json:"address"`
	Attributes            map[string]string `json:"attributes,omitempty"`
}

// Entity implements Record.
func (Company) Entity() EntityType { return EntityCompany }

func (c *Company) cloneRecord() Record {
	cp := *c
	cp.Attributes = cloneStringMap(c.Attributes)
	return &cp
}

// Account is a general ledger account.
type Account struct {
	Base
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	Company       string `json:"company"`
	RootType      string `json:"root_type"`
	AccountType   string `json:"account_type"`
	ParentAccount string `json:"parent_account"`
	IsGroup       bool   `json:"is_group"`
	Disabled      bool   `json:"disabled"`
}

// Entity implements Record.
func (Account) Entity() EntityType { return EntityAccount }

func (a *Account) cloneRecord() Record { cp := *a; return &cp }

// NumberOrName returns the account number when present, else the document name.
func (a Account) NumberOrName() string {
	if a.AccountNumber != "" {
		return a.AccountNumber
	}
	return a.ID
}

// Address is the primary postal address of a party.
type Address struct {
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email_id"`
	Display string `json:"address_display"`
}

// Contact holds fallback phone and email details for a party.
type Contact struct {
	MobileNo string `json:"mobile_no"`
	Phone    string `json:"phone"`
	Email    string `json:"email_id"`
}

// Customer is a buying party visited by the sales team.
type Customer struct {
	Base
	CustomerName    string  `json:"customer_name"`
	CustomerGroup   string  `json:"customer_group"`
	TaxID           string  `json:"tax_id"`
	DefaultCurrency string  `json:"default_currency"`
	Disabled        bool    `json:"disabled"`
	TaxExempt       bool    `json:"tax_exempt"`
	Address         Address `json:"address"`
	Contact         Contact `json:"contact"`
	SubCity         string  `json:"sub_city"`
	OutletType      string  `json:"outlet_type"`
	Outlet          string  `json:"outlet"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
}

// Entity implements Record.
func (Customer) Entity() EntityType { return EntityCustomer }

func (c *Customer) cloneRecord() Record { cp := *c; return &cp }

// Supplier is a selling party, typically a green coffee importer.
type Supplier struct {
	Base
	SupplierName    string  `json:"supplier_name"`
	TaxID           string  `json:"tax_id"`
	DefaultCurrency string  `json:"default_currency"`
	Disabled        bool    `json:"disabled"`
	Address         Address `json:"address"`
	Contact         Contact `json:"contact"`
}

// Entity implements Record.
func (Supplier) Entity() EntityType { return EntitySupplier }

func (s *Supplier) cloneRecord() Record { cp := *s; return &cp }

// ItemDefault carries per-company accounting and warehouse defaults for an item.
type ItemDefault struct {
	Company          string `json:"company"`
	DefaultWarehouse string `json:"default_warehouse"`
	IncomeAccount    string `json:"income_account"`
	ExpenseAccount   string `json:"expense_account"`
}

// Item is a stock or service item. ID is the item code.
type Item struct {
	Base
	ItemName          string        `json:"item_name"`
	ItemGroup         string        `json:"item_group"`
	Description       string        `json:"description"`
	StockUOM          string        `json:"stock_uom"`
	IsStockItem       bool          `json:"is_stock_item"`
	HasBatchNo        bool          `json:"has_batch_no"`
	BatchNumberSeries string        `json:"batch_number_series"`
	Disabled          bool          `json:"disabled"`
	DefaultWarehouse  string        `json:"default_warehouse"`
	Defaults          []ItemDefault `json:"item_defaults"`
}

// Entity implements Record.
func (Item) Entity() EntityType { return EntityItem }

func (i *Item) cloneRecord() Record {
	cp := *i
	cp.Defaults = append([]ItemDefault(nil), i.Defaults...)
	return &cp
}

// DefaultsFor returns the item default row for the company.
func (i Item) DefaultsFor(company string) (ItemDefault, bool) {
	for _, d := range i.Defaults {
		if d.Company == company {
			return d, true
		}
	}
	return ItemDefault{}, false
}

// ItemGroup groups items and provides a fallback income account.
type ItemGroup struct {
	Base
	ParentItemGroup      string `json:"parent_item_group"`
	DefaultIncomeAccount string `json:"default_income_account"`
}

// Entity implements Record.
func (ItemGroup) Entity() EntityType { return EntityItemGroup }

func (g *ItemGroup) cloneRecord() Record { cp := *g; return &cp }

// ItemPrice is a price list rate for an item.
type ItemPrice struct {
	Base
	ItemCode      string  `json:"item_code"`
	PriceList     string  `json:"price_list"`
	PriceListRate float64 `json:"price_list_rate"`
	Selling       bool    `json:"selling"`
	Buying        bool    `json:"buying"`
}

// Entity implements Record.
func (ItemPrice) Entity() EntityType { return EntityItemPrice }

func (p *ItemPrice) cloneRecord() Record { cp := *p; return &cp }

// Warehouse is a stock location owned by a company.
type Warehouse struct {
	Base
	WarehouseName   string `json:"warehouse_name"`
	Company         string `json:"company"`
	ParentWarehouse string `json:"parent_warehouse"`
	IsGroup         bool   `json:"is_group"`
	Disabled        bool   `json:"disabled"`
}

// Entity implements Record.
func (Warehouse) Entity() EntityType { return EntityWarehouse }

func (w *Warehouse) cloneRecord() Record { cp := *w; return &cp }

// Batch identifies a traceable lot of an item. ID is the batch id.
type Batch struct {
	Base
	ItemCode          string    `json:"item"`
	ManufacturingDate time.Time `json:"manufacturing_date"`
	ReferenceType     string    `json:"reference_doctype"`
	ReferenceName     string    `json:"reference_name"`
}

// Entity implements Record.
func (Batch) Entity() EntityType { return EntityBatch }

func (b *Batch) cloneRecord() Record { cp := *b; return &cp }

// Settings merges roaster, stock and global defaults into one document.
type Settings struct {
	Base
	DefaultCompany           string   `json:"default_company"`
	DefaultWarehouse         string   `json:"default_warehouse"`
	FinishedGoodsWarehouse   string   `json:"finished_goods_warehouse"`
	QCPendingWarehouse       string   `json:"qc_pending_warehouse"`
	QCAcceptedWarehouse      string   `json:"qc_accepted_warehouse"`
	QCRejectedWarehouse      string   `json:"qc_rejected_warehouse"`
	VATRate                  float64  `json:"vat_rate"`
	DefaultCurrency          string   `json:"default_currency"`
	StandardSellingPriceList string   `json:"standard_selling_price_list"`
	MachineWebhookToken      string   `json:"machine_webhook_token"`
	AutoCreateRoastLog       bool     `json:"auto_create_roast_log"`
	Distributor              string   `json:"distributor"`
	SageEmailRecipients      []string `json:"sage_email_recipients"`
}

// Entity implements Record.
func (Settings) Entity() EntityType { return EntitySettings }

func (s *Settings) cloneRecord() Record {
	cp := *s
	cp.SageEmailRecipients = append([]string(nil), s.SageEmailRecipients...)
	return &cp
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
