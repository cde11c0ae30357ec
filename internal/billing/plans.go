// Package billing provides plan limits, plan upgrades and Pro checkout.
package billing

import "tubepost/internal/types"

// PlanLimits describes what a plan allows per calendar day.
type PlanLimits struct {
	DailyLimit int
	// ConsumesCredits is true when each action spends one credit.
	ConsumesCredits bool
}

// PlanRegistry defines the authoritative limits for each plan.
type PlanRegistry interface {
	// GetLimits returns the limits for plan. Unknown plans get the free
	// limits.
	GetLimits(plan types.Plan) PlanLimits
}

type staticPlanRegistry struct {
	limits map[types.Plan]PlanLimits
}

//	| Plan | Actions/Day | Credits |
//	|------|-------------|---------|
//	| Free | 10          | spent   |
//	| Pro  | 200         | never   |
var planDefaults = map[types.Plan]PlanLimits{
	types.PlanFree: {DailyLimit: 10, ConsumesCredits: true},
	types.PlanPro:  {DailyLimit: 200, ConsumesCredits: false},
}

var freeLimits = planDefaults[types.PlanFree]

// NewStaticPlanRegistry returns the built-in plan table.
func NewStaticPlanRegistry() PlanRegistry {
	m := make(map[types.Plan]PlanLimits, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticPlanRegistry{limits: m}
}

func (r *staticPlanRegistry) GetLimits(plan types.Plan) PlanLimits {
	if limits, ok := r.limits[plan]; ok {
		return limits
	}
	return freeLimits
}
