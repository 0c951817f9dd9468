package roasting

import (
	"strings"
	"time"

	"coffeeroaster/pkg/domain"
)

// Machine event states understood by ApplyMachineEvent.
const (
	EventStart  = "start"
	EventFinish = "finish"
)

// ApplyMachineEvent maps a roaster start/finish signal onto the batch
// timestamps. The first start sets the charge start; the finish of the last
// round sets the development end. Existing values are never overwritten.
// It reports whether the batch changed.
func ApplyMachineEvent(rb *domain.RoastBatch, roundNo int, state string, ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(state)) {
	case EventStart:
		if rb.ChargeStart == nil {
			rb.ChargeStart = &ts
			return true
		}
	case EventFinish:
		n := len(rb.Rounds)
		if n > 0 && roundNo == n && rb.DevelopmentEnd == nil {
			rb.DevelopmentEnd = &ts
			return true
		}
	}
	return false
}
