package domain

import "time"

// Visit frequencies for RTM assignments.
const (
	FrequencyDaily  = "Daily"
	FrequencyWeekly = "Weekly"
)

// RTMAssignment binds a customer to a visit day on a route-to-market plan.
type RTMAssignment struct {
	Base
	Company        string    `json:"company"`
	Customer       string    `json:"customer"`
	CustomerName   string    `json:"customer_name"`
	Day            string    `json:"day"`
	Frequency      string    `json:"frequency"`
	SubCity        string    `json:"sub_city"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DisplayAddress string    `json:"display_address"`
	RTMChannel     string    `json:"rtm_channel"`
	OutletType     string    `json:"outlet_type"`
	Marketer       string    `json:"marketer"`
	Priority       int       `json:"priority"`
	Active         bool      `json:"active"`
	DocStatus      DocStatus `json:"docstatus"`
}

// Entity implements Record.
func (RTMAssignment) Entity() EntityType { return EntityRTMAssignment }

func (r *RTMAssignment) cloneRecord() Record { cp := *r; return &cp }

// RoutePlanDetail is one planned customer visit.
type RoutePlanDetail struct {
	Customer      string  `json:"customer"`
	CustomerName  string  `json:"customer_name"`
	SubCity       string  `json:"sub_city"`
	Bucket        string  `json:"bucket"`
	OutletType    string  `json:"outlet_type"`
	Channel       string  `json:"channel"`
	RTMChannel    string  `json:"rtm_channel"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	OrderPriority int     `json:"order_priority"`
	Notes         string  `json:"notes"`
	Area          string  `json:"area"`
}

// RoutePlan is a dated delivery or sales round.
type RoutePlan struct {
	Base
	Company   string            `json:"company"`
	PlanDate  time.Time         `json:"plan_date"`
	Marketer  string            `json:"marketer"`
	DocStatus DocStatus         `json:"docstatus"`
	Details   []RoutePlanDetail `json:"details"`
}

// Entity implements Record.
func (RoutePlan) Entity() EntityType { return EntityRoutePlan }

func (r *RoutePlan) cloneRecord() Record {
	cp := *r
	cp.Details = append([]RoutePlanDetail(nil), r.Details...)
	return &cp
}

// MasterRoutePlan is a standing weekly route slot for a customer.
type MasterRoutePlan struct {
	Base
	RouteNo    string `json:"route_no"`
	Day        string `json:"day"`
	Customer   string `json:"customer"`
	RouteOrder int    `json:"route_order"`
}

// Entity implements Record.
func (MasterRoutePlan) Entity() EntityType { return EntityMasterRoutePlan }

func (m *MasterRoutePlan) cloneRecord() Record { cp := *m; return &cp }
