package core

import (
	"context"
	"errors"

	"coffeeroaster/internal/roasting"
	"coffeeroaster/pkg/domain"
)

// NewRoastBatchWeightsRule re-checks the roast batch header and round sums
// at commit so documents written outside the save hook stay consistent.
func NewRoastBatchWeightsRule() domain.Rule {
	return roastBatchWeightsRule{}
}

type roastBatchWeightsRule struct{}

func (roastBatchWeightsRule) Name() string { return "roast_batch_weights" }

func (roastBatchWeightsRule) Watches() []domain.EntityType {
	return []domain.EntityType{domain.EntityRoastBatch}
}

func (r roastBatchWeightsRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, id := range domain.TouchedIDs(changes, domain.EntityRoastBatch) {
		rb, ok := domain.Find[domain.RoastBatch](view, id)
		if !ok {
			continue
		}
		err := roasting.Validate(rb)
		if err == nil {
			err = roasting.CheckConsistency(rb)
		}
		if err == nil {
			continue
		}
		var verr domain.ValidationError
		if !errors.As(err, &verr) {
			return domain.Result{}, err
		}
		res.Violations = append(res.Violations, block(r.Name(), domain.EntityRoastBatch, id, verr.Message))
	}
	return res, nil
}
