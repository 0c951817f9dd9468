// Package routing orders customer visits into delivery rounds and sorts
// outlets into the fixed route plan buckets.
package routing

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DateLayout is the ISO date format accepted for plan dates.
const DateLayout = "2006-01-02"

// Weekdays lists visit days in route order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayName returns the English weekday of t.
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// WeekdayOf parses an ISO date and returns its weekday. Unparseable or empty
// input yields Monday.
func WeekdayOf(date string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "Monday"
	}
	return WeekdayName(t)
}

// WeekdayIndex returns the position of day in Weekdays, or len(Weekdays)
// for anything else so unknown days sort last.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return len(Weekdays)
}

// NormalizeDay title-cases a weekday name ("monday " becomes "Monday").
// Values that are not weekdays are returned unchanged.
func NormalizeDay(day string) string {
	d := strings.ToLower(strings.TrimSpace(day))
	for _, w := range Weekdays {
		if strings.ToLower(w) == d {
			// Casers carry state, so one is built per call.
			return cases.Title(language.English).String(d)
		}
	}
	return day
}

// SplitList accepts a comma or newline separated list and returns the
// trimmed non-empty parts.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are set. A zero latitude or
// longitude means the location was never captured.
func (p Point) Valid() bool { return p.Lat != 0 && p.Lng != 0 }

func distance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// NearestNeighbor orders items greedily, always visiting the closest
// unvisited item next. The tour begins at the item closest to start, or at
// the first item when start is nil. Ties keep input order.
func NearestNeighbor[T any](items []T, loc func(T) Point, start *Point) []T {
	if len(items) == 0 {
		return nil
	}
	unvisited := append([]T(nil), items...)
	route := make([]T, 0, len(items))

	next := 0
	if start != nil {
		next = closest(unvisited, loc, *start)
	}
	for {
		cur := unvisited[next]
		route = append(route, cur)
		unvisited = append(unvisited[:next], unvisited[next+1:]...)
		if len(unvisited) == 0 {
			return route
		}
		next = closest(unvisited, loc, loc(cur))
	}
}

func closest[T any](items []T, loc func(T) Point, from Point) int {
	best, bestDist := 0, math.Inf(1)
	for i, it := range items {
		if d := distance(from, loc(it)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
