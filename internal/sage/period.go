package sage

import (
	"fmt"
	"time"
)

// Period is one calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod validates year and month.
func NewPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year %d", year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// ParsePeriod accepts "YYYY-MM" or "YYYYMM".
func ParsePeriod(s string) (Period, error) {
	for _, layout := range []string{"2006-01", "200601"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Period{Year: t.Year(), Month: t.Month()}, nil
		}
	}
	return Period{}, fmt.Errorf("invalid period %q (want YYYY-MM)", s)
}

// PreviousMonth returns the month before the one containing now.
func PreviousMonth(now time.Time) Period {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prev := first.AddDate(0, 0, -1)
	return Period{Year: prev.Year(), Month: prev.Month()}
}

// YYYYMM renders the period as used in file names.
func (p Period) YYYYMM() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Bounds returns the first and last day of the month in UTC.
func (p Period) Bounds() (first, last time.Time) {
	first = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// Contains reports whether t falls on a day of the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}
