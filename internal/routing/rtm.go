package routing

import (
	"sort"
	"strings"

	"coffeeroaster/pkg/domain"
)

// Query selects the RTM assignments visited on one route.
type Query struct {
	SubCities []string
	// Weekday limits weekly visits to that day; empty keeps every
	// frequency and day.
	Weekday  string
	Marketer string
	Depot    *Point
}

// Stop is one ordered visit on a built route.
type Stop struct {
	Seq           int     `json:"seq"`
	RTMAssignment string  `json:"rtm_assignment"`
	Customer      string  `json:"customer"`
	CustomerName  string  `json:"customer_name"`
	SubCity       string  `json:"sub_city"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RTMChannel    string  `json:"rtm_channel"`
	OutletType    string  `json:"outlet_type"`
	Marketer      string  `json:"marketer"`
	Priority      int     `json:"priority"`
}

// Route is the result of BuildStops.
type Route struct {
	Weekday string `json:"weekday"`
	Stops   []Stop `json:"stops"`
}

// Eligible reports whether an assignment is visited under q, ignoring
// coordinates.
func (q Query) Eligible(a domain.RTMAssignment) bool {
	if !a.Active || a.DocStatus == domain.DocStatusCancelled {
		return false
	}
	if len(q.SubCities) > 0 && !containsFold(q.SubCities, a.SubCity) {
		return false
	}
	if q.Marketer != "" && a.Marketer != q.Marketer {
		return false
	}
	if q.Weekday == "" {
		return true
	}
	switch strings.TrimSpace(a.Frequency) {
	case domain.FrequencyDaily:
		return true
	case domain.FrequencyWeekly:
		return a.Day == q.Weekday
	default:
		return false
	}
}

// BuildStops filters the assignments, drops those without coordinates and
// orders the rest by nearest neighbour from the depot.
func BuildStops(assignments []domain.RTMAssignment, q Query) Route {
	var pts []domain.RTMAssignment
	for _, a := range assignments {
		if !q.Eligible(a) {
			continue
		}
		if !(Point{Lat: a.Latitude, Lng: a.Longitude}).Valid() {
			continue
		}
		pts = append(pts, a)
	}
	sort.SliceStable(pts, func(i, j int) bool {
		a, b := pts[i], pts[j]
		if a.SubCity != b.SubCity {
			return a.SubCity < b.SubCity
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.CustomerName < b.CustomerName
	})
	ordered := NearestNeighbor(pts, func(a domain.RTMAssignment) Point {
		return Point{Lat: a.Latitude, Lng: a.Longitude}
	}, q.Depot)

	route := Route{Weekday: q.Weekday, Stops: []Stop{}}
	for i, a := range ordered {
		route.Stops = append(route.Stops, Stop{
			Seq:           i + 1,
			RTMAssignment: a.ID,
			Customer:      a.Customer,
			CustomerName:  a.CustomerName,
			SubCity:       a.SubCity,
			Latitude:      a.Latitude,
			Longitude:     a.Longitude,
			RTMChannel:    a.RTMChannel,
			OutletType:    a.OutletType,
			Marketer:      a.Marketer,
			Priority:      a.Priority,
		})
	}
	return route
}

// Details converts stops into route plan rows.
func (r Route) Details() []domain.RoutePlanDetail {
	out := make([]domain.RoutePlanDetail, 0, len(r.Stops))
	for _, s := range r.Stops {
		out = append(out, domain.RoutePlanDetail{
			Customer:      s.Customer,
			CustomerName:  s.CustomerName,
			SubCity:       s.SubCity,
			Bucket:        BucketFromText(FirstNonEmpty(s.OutletType, s.RTMChannel)),
			OutletType:    s.OutletType,
			RTMChannel:    s.RTMChannel,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
			OrderPriority: s.Seq,
		})
	}
	return out
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), v) {
			return true
		}
	}
	return false
}
