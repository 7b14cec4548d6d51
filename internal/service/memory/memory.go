// Package memory implements the Memory / Outcome Store (spec §4.5): the
// working/episodic/semantic tiers and the pure predictive functions the
// assignment engine and context builder consume.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	portagent "github.com/marcusai/marcus/internal/port/agent"
	"github.com/marcusai/marcus/internal/port/kv"
)

// Outcome is one episodic record: what happened the last time a given
// agent worked a task of these labels.
type Outcome struct {
	AgentID        string   `json:"agent_id"`
	TaskID         string   `json:"task_id"`
	Labels         []string `json:"labels"`
	PlannedHours   float64  `json:"planned_h"`
	ActualHours    float64  `json:"actual_h"`
	Result         string   `json:"result"` // success | blocked | abandoned | expired
	BlockerCategory string  `json:"blocker_category,omitempty"`
}

const (
	ResultSuccess   = "success"
	ResultBlocked   = "blocked"
	ResultAbandoned = "abandoned"
	ResultExpired   = "expired"
)

type Service struct {
	store    kv.Store
	profiles portagent.ProfileRepository
}

func NewService(store kv.Store, profiles portagent.ProfileRepository) *Service {
	return &Service{store: store, profiles: profiles}
}

// RecordOutcome appends an episodic outcome and updates the agent's
// derived semantic profile (spec §4.5: "Semantic tier updated after
// each episodic write").
func (s *Service) RecordOutcome(ctx context.Context, o Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	key := fmt.Sprintf("%s:%s", o.AgentID, o.TaskID)
	if err := s.store.Put(ctx, kv.CollectionTaskOutcome, key, data); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return s.updateProfile(ctx, o)
}

func (s *Service) outcomesForAgent(ctx context.Context, agentID string) ([]Outcome, error) {
	raw, err := s.store.Scan(ctx, kv.CollectionTaskOutcome, kv.ScanFilter{KeyPrefix: agentID + ":"})
	if err != nil {
		return nil, fmt.Errorf("scan outcomes: %w", err)
	}
	out := make([]Outcome, 0, len(raw))
	for _, v := range raw {
		var o Outcome
		if err := json.Unmarshal(v, &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Service) updateProfile(ctx context.Context, o Outcome) error {
	profile, err := s.profiles.Get(ctx, o.AgentID)
	if err != nil {
		profile = domainagent.NewProfile(o.AgentID)
	}

	if o.Result == ResultSuccess {
		profile.CompletedCount++
		if o.PlannedHours > 0 {
			ratio := o.ActualHours / o.PlannedHours
			for _, l := range o.Labels {
				prev, ok := profile.AvgDurationByLabel[l]
				if !ok {
					profile.AvgDurationByLabel[l] = ratio
				} else {
					profile.AvgDurationByLabel[l] = (prev + ratio) / 2
				}
			}
		}
	} else {
		for _, l := range o.Labels {
			prev := profile.BlockageRateByLabel[l]
			profile.BlockageRateByLabel[l] = (prev + 1) / 2
		}
	}

	recalcEstimationAccuracy(&profile)
	recalcTrends(&profile)

	return s.profiles.Put(ctx, profile)
}

func recalcEstimationAccuracy(p *domainagent.Profile) {
	if len(p.AvgDurationByLabel) == 0 {
		return
	}
	sum := 0.0
	for _, v := range p.AvgDurationByLabel {
		sum += v
	}
	avg := sum / float64(len(p.AvgDurationByLabel))
	// estimation_accuracy ∈ [0,2]: 1.0 means actual matched planned exactly.
	p.EstimationAccuracy = clamp(avg, 0, 2)
}

func recalcTrends(p *domainagent.Profile) {
	var improving, struggling []string
	for label, rate := range p.BlockageRateByLabel {
		if rate >= 0.5 {
			struggling = append(struggling, label)
		}
	}
	for label, ratio := range p.AvgDurationByLabel {
		if ratio <= 1.0 {
			improving = append(improving, label)
		}
	}
	sort.Strings(improving)
	sort.Strings(struggling)
	p.ImprovingLabels = improving
	p.StrugglingLabels = struggling
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// confidence implements spec §4.5's sample-size function:
// min(1, n/10) with a floor of 0.2 when n=0.
func confidence(n int) float64 {
	if n == 0 {
		return 0.2
	}
	c := float64(n) / 10.0
	if c > 1 {
		return 1
	}
	return c
}
