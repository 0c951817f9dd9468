package core

import (
	"context"
	"fmt"
	"strings"

	"coffeeroaster/pkg/domain"
)

// NewRTMUniqueDayRule allows one open RTM assignment per customer and day.
func NewRTMUniqueDayRule() domain.Rule {
	return rtmUniqueDayRule{}
}

type rtmUniqueDayRule struct{}

func (rtmUniqueDayRule) Name() string { return "rtm_unique_day" }

func (rtmUniqueDayRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityRTMAssignment}
}

func (r rtmUniqueDayRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := domain.TouchedIDs(changes, domain.EntityRTMAssignment)
	if len(touched) == 0 {
		return domain.Result{}, nil
	}
	type slot struct{ customer, day string }
	owners := make(map[slot][]string)
	for _, a := range domain.List[domain.RTMAssignment](view) {
		if a.DocStatus == domain.DocStatusCancelled || a.Customer == "" || a.Day == "" {
			continue
		}
		k := slot{a.Customer, strings.ToLower(a.Day)}
		owners[k] = append(owners[k], a.ID)
	}
	var res domain.Result
	for _, id := range touched {
		a, ok := domain.Find[domain.RTMAssignment](view, id)
		if !ok || a.DocStatus == domain.DocStatusCancelled || a.Customer == "" || a.Day == "" {
			continue
		}
		if len(owners[slot{a.Customer, strings.ToLower(a.Day)}]) > 1 {
			res.Violations = append(res.Violations, block(r.Name(), domain.EntityRTMAssignment, id,
				fmt.Sprintf("Another RTM Assignment already exists for %s on %s.", a.Customer, a.Day)))
		}
	}
	return res, nil
}
