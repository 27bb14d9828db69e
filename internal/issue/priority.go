package issue

import "fmt"

// Factor weights for the three priority dimensions. The dimension weights sum
// to 1.0 so the final score stays on the same 0-10 scale as the raw factors.
const (
	weightImpact      = 0.45
	weightUrgency     = 0.35
	weightFeasibility = 0.20
)

// ImpactFactors capture how much the issue matters if addressed.
// Each factor is scored 0-10 by the signal triage step.
type ImpactFactors struct {
	UserReach      float64 `json:"user_reach" yaml:"user_reach"`
	EcosystemValue float64 `json:"ecosystem_value" yaml:"ecosystem_value"`
	StrategicFit   float64 `json:"strategic_fit" yaml:"strategic_fit"`
}

// UrgencyFactors capture how quickly the issue must be addressed.
type UrgencyFactors struct {
	Deadline          float64 `json:"deadline" yaml:"deadline"`
	RiskOfInaction    float64 `json:"risk_of_inaction" yaml:"risk_of_inaction"`
	CommunityMomentum float64 `json:"community_momentum" yaml:"community_momentum"`
}

// FeasibilityFactors capture how tractable the issue is. Complexity and cost
// are scored inverted: 10 means trivially cheap, 0 means intractable.
type FeasibilityFactors struct {
	TechnicalSimplicity float64 `json:"technical_simplicity" yaml:"technical_simplicity"`
	ResourceAffordance  float64 `json:"resource_affordance" yaml:"resource_affordance"`
	Clarity             float64 `json:"clarity" yaml:"clarity"`
}

// PriorityScore is the weighted combination of impact, urgency, and
// feasibility. Total is on a 0-10 scale.
type PriorityScore struct {
	Impact      float64 `json:"impact"`
	Urgency     float64 `json:"urgency"`
	Feasibility float64 `json:"feasibility"`
	Total       float64 `json:"total"`
}

// factor weights within each dimension.
var (
	impactWeights      = [3]float64{0.4, 0.35, 0.25} // reach, value, fit
	urgencyWeights     = [3]float64{0.4, 0.4, 0.2}   // deadline, risk, momentum
	feasibilityWeights = [3]float64{0.4, 0.3, 0.3}   // simplicity, affordance, clarity
)

// Score computes the priority score from the three factor sets and stores it
// on the issue. Factors outside [0,10] are rejected rather than clamped so
// that upstream scoring bugs surface immediately.
func (i *Issue) Score(impact ImpactFactors, urgency UrgencyFactors, feasibility FeasibilityFactors) (PriorityScore, error) {
	factors := []float64{
		impact.UserReach, impact.EcosystemValue, impact.StrategicFit,
		urgency.Deadline, urgency.RiskOfInaction, urgency.CommunityMomentum,
		feasibility.TechnicalSimplicity, feasibility.ResourceAffordance, feasibility.Clarity,
	}
	for _, f := range factors {
		if f < 0 || f > 10 {
			return PriorityScore{}, fmt.Errorf("priority factor %v out of range [0,10]", f)
		}
	}

	score := PriorityScore{
		Impact: impactWeights[0]*impact.UserReach +
			impactWeights[1]*impact.EcosystemValue +
			impactWeights[2]*impact.StrategicFit,
		Urgency: urgencyWeights[0]*urgency.Deadline +
			urgencyWeights[1]*urgency.RiskOfInaction +
			urgencyWeights[2]*urgency.CommunityMomentum,
		Feasibility: feasibilityWeights[0]*feasibility.TechnicalSimplicity +
			feasibilityWeights[1]*feasibility.ResourceAffordance +
			feasibilityWeights[2]*feasibility.Clarity,
	}
	score.Total = weightImpact*score.Impact +
		weightUrgency*score.Urgency +
		weightFeasibility*score.Feasibility

	i.Priority = score
	return score, nil
}
