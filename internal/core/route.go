package core

import (
	"context"
	"strings"
	"time"

	"coffeeroaster/internal/routing"
	"coffeeroaster/pkg/domain"
)

// RouteRequest selects the assignments of one delivery round.
type RouteRequest struct {
	SubCities []string `json:"sub_cities"`
	// Date is an ISO date; empty keeps every assignment regardless of day.
	Date     string   `json:"date"`
	Marketer string   `json:"marketer"`
	DepotLat *float64 `json:"depot_lat,omitempty"`
	DepotLng *float64 `json:"depot_lng,omitempty"`
	// Save stores the route as a draft Route Plan.
	Save    bool   `json:"save"`
	Company string `json:"company"`
}

// RouteResult is the ordered route and the stored plan, if any.
type RouteResult struct {
	routing.Route
	RoutePlan string `json:"route_plan,omitempty"`
}

// BuildRouteFromRTM orders the matching active assignments by nearest
// neighbour from the depot.
func (s *Service) BuildRouteFromRTM(ctx context.Context, req RouteRequest) (RouteResult, error) {
	q := routing.Query{SubCities: req.SubCities, Marketer: strings.TrimSpace(req.Marketer)}
	var planDate time.Time
	if d := strings.TrimSpace(req.Date); d != "" {
		t, err := time.Parse(routing.DateLayout, d)
		if err != nil {
			return RouteResult{}, domain.Invalidf("Invalid date %q, expected YYYY-MM-DD.", req.Date)
		}
		planDate = t
		q.Weekday = routing.WeekdayName(t)
	}
	if req.DepotLat != nil && req.DepotLng != nil {
		q.Depot = &routing.Point{Lat: *req.DepotLat, Lng: *req.DepotLng}
	}

	var out RouteResult
	if !req.Save {
		ctx, done := s.observe(ctx, "build_route_from_rtm", domain.EntityRTMAssignment, "")
		err := s.store.View(ctx, func(v domain.TransactionView) error {
			out.Route = routing.BuildStops(domain.List[domain.RTMAssignment](v), q)
			return nil
		})
		done("", err)
		return out, err
	}

	_, err := s.run(ctx, "build_route_plan", domain.EntityRoutePlan, domain.ActionCreate, func(tx domain.Transaction) error {
		out.Route = routing.BuildStops(domain.List[domain.RTMAssignment](tx), q)
		if planDate.IsZero() {
			planDate = s.today()
		}
		plan, err := insert(s, tx, domain.RoutePlan{
			Company:  s.companyFor(tx, req.Company),
			PlanDate: planDate,
			Marketer: q.Marketer,
			Details:  out.Route.Details(),
		})
		out.RoutePlan = plan.ID
		return err
	}, func() string { return out.RoutePlan })
	if err == nil {
		s.logger.Info("route plan saved", "route_plan", out.RoutePlan, "stops", len(out.Stops))
	}
	return out, err
}
