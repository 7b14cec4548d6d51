package memory

import (
	"context"
	"strings"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
)

// DurationPrediction is the return shape of predict_duration (spec §4.5).
type DurationPrediction struct {
	ExpectedHours float64  `json:"expected_h"`
	CILow         float64  `json:"ci_low"`
	CIHigh        float64  `json:"ci_high"`
	Factors       []string `json:"factors"`
	Confidence    float64  `json:"confidence"`
}

// PredictDuration: baseline = task.estimated_hours, adjusted by the
// agent's estimation_accuracy and the average actual/planned ratio on
// historical tasks sharing a label; CI widens as sample size shrinks.
func (s *Service) PredictDuration(ctx context.Context, a domainagent.Agent, t domaintask.Task, profile domainagent.Profile) DurationPrediction {
	baseline := 1.0
	if t.EstimatedHours != nil {
		baseline = *t.EstimatedHours
	}

	outcomes, _ := s.outcomesForAgent(ctx, a.ID)
	n := 0
	ratioSum := 0.0
	var factors []string
	for _, o := range outcomes {
		if o.Result != ResultSuccess || o.PlannedHours <= 0 {
			continue
		}
		if !sharesLabel(o.Labels, t.Labels) {
			continue
		}
		n++
		ratioSum += o.ActualHours / o.PlannedHours
	}

	adjust := profile.EstimationAccuracy
	if adjust == 0 {
		adjust = 1.0
	}
	factors = append(factors, "baseline_estimate")
	if n > 0 {
		avgRatio := ratioSum / float64(n)
		adjust = (adjust + avgRatio) / 2
		factors = append(factors, "historical_same_label_ratio")
	}
	factors = append(factors, "agent_estimation_accuracy")

	expected := baseline * adjust
	conf := confidence(n)

	// CI widens as sample size shrinks: spread is inversely proportional
	// to confidence, narrowing toward 0 as n grows.
	spread := expected * (1 - conf) * 0.5
	return DurationPrediction{
		ExpectedHours: expected,
		CILow:         clampNonNegative(expected - spread),
		CIHigh:        expected + spread,
		Factors:       factors,
		Confidence:    conf,
	}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func sharesLabel(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	for _, l := range b {
		if _, ok := set[l]; ok {
			return true
		}
	}
	return false
}

// BlockagePrediction is the return shape of predict_blockage (spec §4.5).
type BlockagePrediction struct {
	OverallRisk        float64            `json:"overall_risk"`
	ByCategory         map[string]float64 `json:"by_category"`
	PreventiveMeasures []string           `json:"preventive_measures"`
}

var riskKeywords = map[string]string{
	"auth":      "auth",
	"integrate": "integration",
	"deploy":    "dependencies",
}

// PredictBlockage: risk = weighted sum of label-specific blockage rates,
// boosted by risk keywords in the task content, boosted again if any
// dependency has a historical blocker.
func (s *Service) PredictBlockage(profile domainagent.Profile, t domaintask.Task, anyDependencyHasBlocker bool) BlockagePrediction {
	byCategory := map[string]float64{"auth": 0, "integration": 0, "dependencies": 0, "unknown": 0}

	base := 0.0
	n := 0
	for _, l := range t.Labels {
		if rate, ok := profile.BlockageRateByLabel[l]; ok {
			base += rate
			n++
		}
	}
	if n > 0 {
		base /= float64(n)
	}

	var preventive []string
	keywords := strings.ToLower(t.Name + " " + t.Description)
	boost := 0.0
	for kw, category := range riskKeywords {
		if strings.Contains(keywords, kw) {
			byCategory[category] += 0.3
			boost += 0.15
			preventive = append(preventive, preventiveMeasureFor(category))
		}
	}

	if anyDependencyHasBlocker {
		boost += 0.2
		byCategory["dependencies"] += 0.2
		preventive = append(preventive, "review predecessor blocker history before starting")
	}

	risk := clamp(base+boost, 0, 1)
	if n == 0 && boost == 0 {
		byCategory["unknown"] = risk
	}

	if len(preventive) == 0 {
		preventive = []string{"no elevated risk signals detected"}
	}

	return BlockagePrediction{
		OverallRisk:        risk,
		ByCategory:         byCategory,
		PreventiveMeasures: preventive,
	}
}

func preventiveMeasureFor(category string) string {
	switch category {
	case "auth":
		return "confirm auth/session handling with a reviewer before implementation"
	case "integration":
		return "validate the integration contract against a sandbox before coding"
	case "dependencies":
		return "verify upstream dependency readiness before starting"
	default:
		return "flag risk early to the assigning agent"
	}
}

// Trajectory is the return shape of trajectory(agent) (spec §4.5).
type Trajectory struct {
	Improving       []string `json:"improving"`
	Struggling      []string `json:"struggling"`
	Recommendations []string `json:"recommendations"`
}

func (s *Service) Trajectory(profile domainagent.Profile) Trajectory {
	var recs []string
	for _, l := range profile.StrugglingLabels {
		recs = append(recs, "pair or review closely on "+l+" tasks")
	}
	if len(recs) == 0 {
		recs = []string{"no corrective action indicated"}
	}
	return Trajectory{
		Improving:       profile.ImprovingLabels,
		Struggling:      profile.StrugglingLabels,
		Recommendations: recs,
	}
}
