package core

import (
	"context"

	"coffeeroaster/internal/machines"
	"coffeeroaster/pkg/domain"
)

// NewPhaseTimesRule requires every fully timed roast phase to end after it
// starts.
func NewPhaseTimesRule() domain.Rule {
	return phaseTimesRule{}
}

type phaseTimesRule struct{}

func (phaseTimesRule) Name() string { return "phase_times" }

func (phaseTimesRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityRoastingLog}
}

func (r phaseTimesRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, id := range domain.TouchedIDs(changes, domain.EntityRoastingLog) {
		log, ok := domain.Find[domain.CoffeeRoastingLog](view, id)
		if !ok {
			continue
		}
		for _, p := range log.Phases {
			start := machines.ParseSeconds(p.StartTime)
			end := machines.ParseSeconds(p.EndTime)
			if start == nil || end == nil {
				continue
			}
			if *end <= *start {
				res.Violations = append(res.Violations, block(r.Name(), domain.EntityRoastingLog, id, "End Time must be after Start Time"))
				break
			}
		}
	}
	return res, nil
}
