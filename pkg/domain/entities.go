// Package domain defines the documents managed by the roastery back office and
// the transactional contracts persistence implementations must satisfy.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the system.
type EntityType string

// Supported entity type identifiers. Values double as storage bucket names.
const (
	EntityCompany             EntityType = "company"
	EntityAccount             EntityType = "account"
	EntityCustomer            EntityType = "customer"
	EntitySupplier            EntityType = "supplier"
	EntityItem                EntityType = "item"
	EntityItemGroup           EntityType = "item_group"
	EntityItemPrice           EntityType = "item_price"
	EntityWarehouse           EntityType = "warehouse"
	EntityBatch               EntityType = "batch"
	EntityStockEntry          EntityType = "stock_entry"
	EntityRoastBatch          EntityType = "roast_batch"
	EntityRoastedCoffee       EntityType = "roasted_coffee"
	EntityBatchCost           EntityType = "batch_cost"
	EntityJournalEntry        EntityType = "journal_entry"
	EntitySalesInvoice        EntityType = "sales_invoice"
	EntityGreenBeanAssessment EntityType = "green_bean_assessment"
	EntityCuppingAssessment   EntityType = "cupping_assessment"
	EntityRoastingLog         EntityType = "coffee_roasting_log"
	EntityRTMAssignment       EntityType = "rtm_assignment"
	EntityRoutePlan           EntityType = "route_plan"
	EntityMasterRoutePlan     EntityType = "master_route_plan"
	EntitySettings            EntityType = "settings"
)

// DocStatus tracks the submit lifecycle shared by transactional documents.
type DocStatus int

// Document lifecycle states.
const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

func (s DocStatus) String() string {
	switch s {
	case DocStatusDraft:
		return "Draft"
	case DocStatusSubmitted:
		return "Submitted"
	case DocStatusCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("DocStatus(%d)", int(s))
	}
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. ID is the document name.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta exposes the embedded base for persistence bookkeeping.
func (b *Base) Meta() *Base { return b }

// Record is implemented by every persisted document type. The interface is
// sealed: only types declared in this package satisfy it.
type Record interface {
	Meta() *Base
	Entity() EntityType
	cloneRecord() Record
}

// CloneRecord returns a deep copy of the record.
func CloneRecord(r Record) Record {
	if r == nil {
		return nil
	}
	return r.cloneRecord()
}

var recordFactories = map[EntityType]func() Record{
	EntityCompany:             func() Record { return &Company{} },
	EntityAccount:             func() Record { return &Account{} },
	EntityCustomer:            func() Record { return &Customer{} },
	EntitySupplier:            func() Record { return &Supplier{} },
	EntityItem:                func() Record { return &Item{} },
	EntityItemGroup:           func() Record { return &ItemGroup{} },
	EntityItemPrice:           func() Record { return &ItemPrice{} },
	EntityWarehouse:           func() Record { return &Warehouse{} },
	EntityBatch:               func() Record { return &Batch{} },
	EntityStockEntry:          func() Record { return &StockEntry{} },
	EntityRoastBatch:          func() Record { return &RoastBatch{} },
	EntityRoastedCoffee:       func() Record { return &RoastedCoffee{} },
	EntityBatchCost:           func() Record { return &BatchCost{} },
	EntityJournalEntry:        func() Record { return &JournalEntry{} },
	EntitySalesInvoice:        func() Record { return &SalesInvoice{} },
	EntityGreenBeanAssessment: func() Record { return &GreenBeanAssessment{} },
	EntityCuppingAssessment:   func() Record { return &CuppingAssessment{} },
	EntityRoastingLog:         func() Record { return &CoffeeRoastingLog{} },
	EntityRTMAssignment:       func() Record { return &RTMAssignment{} },
	EntityRoutePlan:           func() Record { return &RoutePlan{} },
	EntityMasterRoutePlan:     func() Record { return &MasterRoutePlan{} },
	EntitySettings:            func() Record { return &Settings{} },
}

// NewRecord allocates an empty record for the entity type, used when decoding
// persisted snapshots.
func NewRecord(entity EntityType) (Record, error) {
	factory, ok := recordFactories[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", entity)
	}
	return factory(), nil
}

// EntityTypes lists every registered entity type in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntitySettings, EntityCompany, EntityAccount, EntityCustomer, EntitySupplier,
		EntityItemGroup, EntityItem, EntityItemPrice, EntityWarehouse, EntityBatch,
		EntityStockEntry, EntityRoastBatch, EntityRoastedCoffee, EntityBatchCost,
		EntityJournalEntry, EntitySalesInvoice, EntityGreenBeanAssessment,
		EntityCuppingAssessment, EntityRoastingLog, EntityRTMAssignment,
		EntityRoutePlan, EntityMasterRoutePlan,
	}
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before Record
	After  Record
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result collects the violations raised while evaluating a transaction.
type Result struct {
	Violations []Violation
}

func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// Blocking returns the violations that stop a commit.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

func (r Result) HasBlocking() bool { return len(r.Blocking()) > 0 }

// RuleViolationError aborts a transaction whose result has blocking
// violations. Its message lists them for the user.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "transaction blocked by rules"
	}
	msgs := make([]string, len(blocking))
	for i, v := range blocking {
		msgs[i] = v.Message
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}
