package roasting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SeriesPrefix expands a naming series such as "RB-.YYYY.-.#####" into the
// literal prefix for now and the width of the counter. Date tokens YYYY, YY,
// MM and DD are substituted; a series without a hash part gets five digits.
func SeriesPrefix(series string, now time.Time) (prefix string, digits int) {
	var b strings.Builder
	for _, part := range strings.Split(series, ".") {
		switch {
		case part == "":
		case strings.Trim(part, "#") == "":
			digits = len(part)
		case part == "YYYY":
			b.WriteString(now.Format("2006"))
		case part == "YY":
			b.WriteString(now.Format("06"))
		case part == "MM":
			b.WriteString(now.Format("01"))
		case part == "DD":
			b.WriteString(now.Format("02"))
		default:
			b.WriteString(part)
		}
	}
	if digits == 0 {
		digits = 5
	}
	return b.String(), digits
}

// NextInSeries returns the next name in series given the names already used.
func NextInSeries(series string, now time.Time, existing []string) string {
	prefix, digits := SeriesPrefix(series, now)
	next := 1
	for _, name := range existing {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, digits, next)
}

// FallbackBatchID names a finished-good batch when the item has no series.
func FallbackBatchID(itemCode string, now time.Time) string {
	return fmt.Sprintf("%s-BATCH-%s", itemCode, now.Format("20060102150405"))
}
