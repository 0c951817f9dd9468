package roasting

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"coffeeroaster/pkg/domain"
)

var roundSuffix = regexp.MustCompile(`-R(\d{1,2})$`)

// RoundLogs assigns roasting logs to the rounds of a batch. Logs whose
// LogName ends in "-R<n>" are grouped by that suffix. Without any tagged log the span
// from charge start to development end (or charge end) is split into equal
// windows, one per round, and logs are placed by timestamp. The result has
// an entry for every round.
func RoundLogs(rb domain.RoastBatch, logs []domain.CoffeeRoastingLog) map[int][]domain.CoffeeRoastingLog {
	n := len(rb.Rounds)
	out := make(map[int][]domain.CoffeeRoastingLog, n)
	for i := 1; i <= n; i++ {
		out[i] = nil
	}
	if n == 0 {
		return out
	}
	logs = append([]domain.CoffeeRoastingLog(nil), logs...)
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })

	tagged := false
	for _, l := range logs {
		m := roundSuffix.FindStringSubmatch(strings.TrimSpace(l.LogName))
		if m == nil {
			continue
		}
		rn, _ := strconv.Atoi(m[1])
		if rn >= 1 && rn <= n {
			out[rn] = append(out[rn], l)
			tagged = true
		}
	}
	if tagged {
		return out
	}

	start := rb.RoastDate
	if rb.ChargeStart != nil {
		start = *rb.ChargeStart
	}
	end := rb.RoastDate
	switch {
	case rb.DevelopmentEnd != nil:
		end = *rb.DevelopmentEnd
	case rb.ChargeEnd != nil:
		end = *rb.ChargeEnd
	}
	total := end.Sub(start)
	if start.IsZero() || total <= 0 {
		return out
	}
	for _, l := range logs {
		rn := bucket(l.Timestamp, start, total, n)
		out[rn] = append(out[rn], l)
	}
	return out
}

func bucket(ts, start time.Time, total time.Duration, n int) int {
	rel := float64(ts.Sub(start)) / float64(total)
	idx := int(rel * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx + 1
}
