package domain

import (
	"context"
	"fmt"
	"slices"
)

// RuleView is the committed-plus-pending state a rule inspects.
type RuleView = TransactionView

// Rule checks a transaction's changes before they are committed.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// ScopedRule is a Rule that only cares about some entity types. The engine
// skips it for transactions that change none of them.
type ScopedRule interface {
	Rule
	Watches() []EntityType
}

// RulesEngine runs the registered rules in registration order.
type RulesEngine struct {
	rules []Rule
}

func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules lists the registered rule names.
func (e *RulesEngine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate merges the results of every rule that applies to changes.
// Violations without a rule name are attributed to the rule that raised them.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		if !applies(rule, changes) {
			continue
		}
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		for i := range res.Violations {
			if res.Violations[i].Rule == "" {
				res.Violations[i].Rule = rule.Name()
			}
		}
		combined.Merge(res)
	}
	return combined, nil
}

func applies(rule Rule, changes []Change) bool {
	scoped, ok := rule.(ScopedRule)
	if !ok {
		return true
	}
	watched := scoped.Watches()
	for _, c := range changes {
		if slices.Contains(watched, c.Entity) {
			return true
		}
	}
	return false
}
