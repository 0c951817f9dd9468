package core

import "coffeeroaster/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewItemDefaultWarehouseRule())
	engine.Register(NewWarehouseCompanyRule())
	engine.Register(NewWarehouseEmptyRule())
	engine.Register(NewRoastBatchWeightsRule())
	engine.Register(NewPhaseTimesRule())
	engine.Register(NewJournalBalancedRule())
	engine.Register(NewRTMUniqueDayRule())
	engine.Register(NewStockNonNegativeRule())
	return engine
}

func block(rule string, entity domain.EntityType, id, msg string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   entity,
		EntityID: id,
	}
}
