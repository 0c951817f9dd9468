package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"coffeeroaster/internal/geocode"
	"coffeeroaster/pkg/domain"
)

type fakeGeocoder struct {
	place geocode.Place
	err   error
	calls int
}

func (f *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (geocode.Place, error) {
	f.calls++
	return f.place, f.err
}

func seedOutlets(t *testing.T, svc *Service) {
	t.Helper()
	mustCreate(t, svc, domain.Company{Base: domain.Base{ID: testCompany}, CompanyName: testCompany})
	customers := []domain.Customer{
		{Base: domain.Base{ID: "C-BOLE"}, CustomerName: "Bole Cafe", SubCity: "Bole", OutletType: "Cafe", Latitude: 9.00, Longitude: 38.80},
		{Base: domain.Base{ID: "C-HILTON"}, CustomerName: "Hilton", SubCity: "Bole", OutletType: "Hotel", Latitude: 9.10, Longitude: 38.90},
		{Base: domain.Base{ID: "C-EMB"}, CustomerName: "Embassy", SubCity: "Bole", Latitude: 9.02, Longitude: 38.82},
		{Base: domain.Base{ID: "C-PIAZZA"}, CustomerName: "Piazza Market", SubCity: "Arada", OutletType: "Supermarket", Latitude: 9.03, Longitude: 38.75},
	}
	for _, c := range customers {
		mustCreate(t, svc, c)
	}
}

func TestRTMAssignmentDefaultsFromCustomer(t *testing.T) {
	svc := newTestService(t)
	seedOutlets(t, svc)
	a := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: " thursday", Active: true})
	want := domain.RTMAssignment{
		Base:         a.Base,
		Company:      testCompany,
		Customer:     "C-BOLE",
		CustomerName: "Bole Cafe",
		Day:          "Thursday",
		Frequency:    domain.FrequencyWeekly,
		SubCity:      "Bole",
		OutletType:   "Cafe",
		Latitude:     9.00,
		Longitude:    38.80,
		Active:       true,
		DocStatus:    domain.DocStatusDraft,
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Fatalf("assignment mismatch (-want +got):\n%s", diff)
	}
	if a.ID != "RTM-00001" {
		t.Fatalf("expected series name, got %s", a.ID)
	}
}

func TestRTMAssignmentNeedsACompany(t *testing.T) {
	svc := newTestService(t)
	_, _, err := Create(context.Background(), svc, domain.RTMAssignment{Customer: "C-1", Day: "Monday"})
	if err == nil || !strings.HasPrefix(err.Error(), "Please set Company") {
		t.Fatalf("expected company error, got %v", err)
	}
}

func TestRTMAssignmentFallsBackToFirstCompany(t *testing.T) {
	svc := newTestService(t, WithSettingsDefaults(domain.Settings{DefaultCompany: "Gone Ltd"}))
	mustCreate(t, svc, domain.Company{Base: domain.Base{ID: "Beta Coffee"}, CompanyName: "Beta Coffee"})
	a := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-1", Day: "Monday"})
	if a.Company != "Beta Coffee" || a.CustomerName != "C-1" {
		t.Fatalf("unexpected fallback company=%q name=%q", a.Company, a.CustomerName)
	}
}

func TestRTMUniqueDayRule(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedOutlets(t, svc)
	first := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: "Monday", Active: true})
	if _, _, err := Create(ctx, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: "monday", Active: true}); err == nil ||
		!strings.Contains(err.Error(), "Another RTM Assignment already exists for C-BOLE on Monday.") {
		t.Fatalf("expected duplicate day violation, got %v", err)
	}
	mustCreate(t, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: "Tuesday", Active: true})
	if _, err := Delete[domain.RTMAssignment](ctx, svc, first.ID); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	mustCreate(t, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: "Monday", Active: true})
}

func TestGeocodeRTMAssignment(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{place: geocode.Place{DisplayName: "Bole Road, Addis Ababa", SubCity: "Bole"}}
	svc := newTestService(t, WithGeocoder(geo))
	seedOutlets(t, svc)
	a := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-1", Day: "Friday", Latitude: 9.01, Longitude: 38.78})

	got, _, err := svc.GeocodeRTMAssignment(ctx, a.ID)
	if err != nil {
		t.Fatalf("geocode: %v", err)
	}
	if got.DisplayAddress != "Bole Road, Addis Ababa" || got.SubCity != "Bole" || geo.calls != 1 {
		t.Fatalf("unexpected geocoded assignment %+v (calls=%d)", got, geo.calls)
	}

	noCoords := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-2", Day: "Friday"})
	if _, _, err := svc.GeocodeRTMAssignment(ctx, noCoords.ID); err == nil || !domain.IsValidation(err) {
		t.Fatalf("expected validation error without coordinates, got %v", err)
	}

	geo.err = errors.New("upstream 503")
	if _, err := svc.ReverseGeocode(ctx, 9, 38); err == nil || err.Error() != "upstream 503" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestReverseGeocodeDisabled(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.ReverseGeocode(context.Background(), 9, 38); !errors.Is(err, ErrGeocodingDisabled) {
		t.Fatalf("expected ErrGeocodingDisabled, got %v", err)
	}
}

func TestBuildRouteFromRTM(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedOutlets(t, svc)
	for _, a := range []domain.RTMAssignment{
		{Customer: "C-BOLE", Day: "Thursday", Active: true, Marketer: "abebe"},
		{Customer: "C-HILTON", Day: "Thursday", Active: true, Marketer: "abebe"},
		{Customer: "C-EMB", Frequency: domain.FrequencyDaily, Active: true, Marketer: "abebe", RTMChannel: "Embassy"},
		{Customer: "C-PIAZZA", Day: "Thursday", Active: true, Marketer: "abebe"},
		{Customer: "C-BOLE", Day: "Friday", Active: true, Marketer: "abebe"},
		{Customer: "C-HILTON", Day: "Monday", Active: false, Marketer: "abebe"},
	} {
		mustCreate(t, svc, a)
	}

	depotLat, depotLng := 8.99, 38.79
	res, err := svc.BuildRouteFromRTM(ctx, RouteRequest{
		SubCities: []string{"bole"},
		Date:      "2024-03-14",
		Marketer:  " abebe ",
		DepotLat:  &depotLat,
		DepotLng:  &depotLng,
	})
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if res.Weekday != "Thursday" || res.RoutePlan != "" {
		t.Fatalf("unexpected route header %+v", res)
	}
	var order []string
	for _, s := range res.Stops {
		order = append(order, s.Customer)
	}
	if diff := cmp.Diff([]string{"C-BOLE", "C-EMB", "C-HILTON"}, order); diff != "" {
		t.Fatalf("stop order mismatch (-want +got):\n%s", diff)
	}

	all, err := svc.BuildRouteFromRTM(ctx, RouteRequest{})
	if err != nil {
		t.Fatalf("build unfiltered route: %v", err)
	}
	if len(all.Stops) != 5 {
		t.Fatalf("expected every active assignment without a date, got %d", len(all.Stops))
	}
}

func TestBuildRouteFromRTMSavesPlan(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedOutlets(t, svc)
	mustCreate(t, svc, domain.RTMAssignment{Customer: "C-EMB", Frequency: domain.FrequencyDaily, Active: true, RTMChannel: "Embassy"})
	mustCreate(t, svc, domain.RTMAssignment{Customer: "C-PIAZZA", Frequency: domain.FrequencyDaily, Active: true})

	res, err := svc.BuildRouteFromRTM(ctx, RouteRequest{Date: "2024-03-15", Save: true})
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	plan := mustGet[domain.RoutePlan](t, svc, res.RoutePlan)
	if plan.Company != testCompany || plan.PlanDate.Format("2006-01-02") != "2024-03-15" || plan.DocStatus != domain.DocStatusDraft {
		t.Fatalf("unexpected plan %+v", plan)
	}
	buckets := map[string]string{}
	for _, d := range plan.Details {
		buckets[d.Customer] = d.Bucket
	}
	if diff := cmp.Diff(map[string]string{"C-EMB": "EMB", "C-PIAZZA": "SMKT"}, buckets); diff != "" {
		t.Fatalf("bucket mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.BuildRouteFromRTM(ctx, RouteRequest{Date: "14/03/2024"}); err == nil || !domain.IsValidation(err) {
		t.Fatalf("expected invalid date error, got %v", err)
	}
}

func TestSubmitRTMAssignment(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedOutlets(t, svc)
	a := mustCreate(t, svc, domain.RTMAssignment{Customer: "C-BOLE", Day: "Monday"})
	if _, _, err := svc.SubmitRTMAssignment(ctx, a.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := svc.SubmitRTMAssignment(ctx, a.ID); err == nil {
		t.Fatalf("expected second submit to fail")
	}
	if _, _, err := Update(ctx, svc, a.ID, func(cur *domain.RTMAssignment) error {
		cur.Day = "Tuesday"
		return nil
	}); err == nil || !strings.HasPrefix(err.Error(), "Cannot edit") {
		t.Fatalf("expected submitted assignment to be read-only, got %v", err)
	}
}
