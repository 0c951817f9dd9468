package routing

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"coffeeroaster/pkg/domain"
)

func TestBucketFromText(t *testing.T) {
	cases := map[string]string{
		"":                    "RETAIL",
		"hotel":               "HOTEL",
		"Company":             "RETAIL",
		"head office":         "RETAIL",
		"Super Market":        "RETAIL",
		"Hypermarket":         "SMKT",
		"ws":                  "DIST",
		"Wholesaler":          "DIST",
		"Café Lounge":         "CAF",
		"Coffee House":        "CAF",
		"Italian Restaurant":  "REST",
		"Ministry of Health":  "GOV",
		"Charity Foundation":  "NGO",
		"Embassy of Kenya":    "EMB",
		"Addis University":    "EDU",
		"Resort & Spa":        "HOTEL",
		"Corporate Client":    "CORP",
		"Mini Market":         "RETAIL",
		"something unrelated": "RETAIL",
	}
	for in, want := range cases {
		if got := BucketFromText(in); got != want {
			t.Fatalf("BucketFromText(%q)=%s want %s", in, got, want)
		}
	}
}

func TestWeekdayHelpers(t *testing.T) {
	if got := WeekdayOf("2025-03-12"); got != "Wednesday" {
		t.Fatalf("expected Wednesday, got %s", got)
	}
	if got := WeekdayOf("not-a-date"); got != "Monday" {
		t.Fatalf("expected Monday fallback, got %s", got)
	}
	if got := WeekdayName(time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)); got != "Sunday" {
		t.Fatalf("expected Sunday, got %s", got)
	}
	if NormalizeDay(" tuesday ") != "Tuesday" || NormalizeDay("payday") != "payday" {
		t.Fatalf("unexpected day normalisation")
	}
	if WeekdayIndex("Sunday") != 6 || WeekdayIndex("x") != 7 {
		t.Fatalf("unexpected weekday index")
	}
	if diff := cmp.Diff([]string{"Bole", "Kirkos", "Yeka"}, SplitList("Bole, Kirkos\n,Yeka,")); diff != "" {
		t.Fatalf("split mismatch (-want +got):\n%s", diff)
	}
}

type named struct {
	name string
	p    Point
}

func TestNearestNeighbor(t *testing.T) {
	pts := []named{
		{"a", Point{0, 0}},
		{"far", Point{10, 10}},
		{"b", Point{1, 0}},
		{"c", Point{2, 1}},
	}
	loc := func(n named) Point { return n.p }
	names := func(in []named) []string {
		var out []string
		for _, n := range in {
			out = append(out, n.name)
		}
		return out
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "far"}, names(NearestNeighbor(pts, loc, nil))); diff != "" {
		t.Fatalf("route mismatch (-want +got):\n%s", diff)
	}
	depot := &Point{9, 9}
	if diff := cmp.Diff([]string{"far", "c", "b", "a"}, names(NearestNeighbor(pts, loc, depot))); diff != "" {
		t.Fatalf("depot route mismatch (-want +got):\n%s", diff)
	}
	if NearestNeighbor[named](nil, loc, nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestBuildStopsFiltersAndOrders(t *testing.T) {
	rtm := func(id, sub, freq, day string, lat, lng float64) domain.RTMAssignment {
		return domain.RTMAssignment{
			Base: domain.Base{ID: id}, Customer: "C-" + id, CustomerName: id, SubCity: sub,
			Frequency: freq, Day: day, Latitude: lat, Longitude: lng, Active: true, Marketer: "abebe",
			OutletType: "Cafe",
		}
	}
	inactive := rtm("inactive", "Bole", domain.FrequencyDaily, "", 9.01, 38.76)
	inactive.Active = false
	other := rtm("other-marketer", "Bole", domain.FrequencyDaily, "", 9.01, 38.76)
	other.Marketer = "kebede"
	all := []domain.RTMAssignment{
		rtm("daily", "Bole", domain.FrequencyDaily, "", 9.00, 38.80),
		rtm("wed", "Bole", domain.FrequencyWeekly, "Wednesday", 9.02, 38.78),
		rtm("thu", "Bole", domain.FrequencyWeekly, "Thursday", 9.02, 38.78),
		rtm("nogeo", "Bole", domain.FrequencyDaily, "", 0, 38.78),
		rtm("kirkos", "Kirkos", domain.FrequencyDaily, "", 9.01, 38.75),
		rtm("yeka", "Yeka", domain.FrequencyDaily, "", 9.05, 38.85),
		inactive,
		other,
	}
	route := BuildStops(all, Query{
		SubCities: []string{"bole", "Kirkos"},
		Weekday:   "Wednesday",
		Marketer:  "abebe",
		Depot:     &Point{Lat: 9.011, Lng: 38.751},
	})
	var got []string
	for _, s := range route.Stops {
		got = append(got, s.RTMAssignment)
	}
	if diff := cmp.Diff([]string{"kirkos", "wed", "daily"}, got); diff != "" {
		t.Fatalf("stops mismatch (-want +got):\n%s", diff)
	}
	if route.Weekday != "Wednesday" || route.Stops[2].Seq != 3 {
		t.Fatalf("unexpected route %+v", route)
	}
	details := route.Details()
	if len(details) != 3 || details[0].Bucket != "CAF" || details[0].OrderPriority != 1 {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestBuildStopsEmpty(t *testing.T) {
	route := BuildStops(nil, Query{Weekday: "Monday"})
	if route.Stops == nil || len(route.Stops) != 0 {
		t.Fatalf("expected empty non-nil stops, got %+v", route.Stops)
	}
}
