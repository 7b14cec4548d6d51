// Package agent holds the Agent aggregate and its derived AgentProfile
// (spec §3): identity, skill set, liveness status, and the rolling
// performance statistics the assignment engine and context builder read.
package agent

import "time"

type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
	StatusOffline Status = "offline"
)

// Agent is the registered worker identity. ID is opaque: assigned at
// registration, stable across reconnects.
type Agent struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	Skills         []string  `json:"skills"`
	Status         Status    `json:"status"`
	CurrentTaskIDs []string  `json:"current_task_ids,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
}

func New(id, projectID, name string, skills []string) Agent {
	if skills == nil {
		skills = []string{}
	}
	return Agent{
		ID:             id,
		ProjectID:      projectID,
		Name:           name,
		Skills:         skills,
		Status:         StatusIdle,
		CurrentTaskIDs: []string{},
		RegisteredAt:   time.Now().UTC(),
	}
}

func (a *Agent) HasSkill(skill string) bool {
	for _, s := range a.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

func (a *Agent) MatchesAnySkill(required []string) bool {
	for _, req := range required {
		if a.HasSkill(req) {
			return true
		}
	}
	return false
}

// SkillOverlap returns the Jaccard similarity between the agent's skill
// set and a task's keyword/label set, the skill_match term of the
// assignment score (spec §4.7).
func (a *Agent) SkillOverlap(keywords []string) float64 {
	if len(a.Skills) == 0 || len(keywords) == 0 {
		return 0
	}
	skillSet := make(map[string]struct{}, len(a.Skills))
	for _, s := range a.Skills {
		skillSet[s] = struct{}{}
	}
	kwSet := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		kwSet[k] = struct{}{}
	}
	intersection := 0
	for k := range kwSet {
		if _, ok := skillSet[k]; ok {
			intersection++
		}
	}
	union := len(skillSet) + len(kwSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// AtCapacity reports whether the agent already holds maxConcurrent active
// assignments (spec I6, default max_tasks_per_agent=3).
func (a *Agent) AtCapacity(maxConcurrent int) bool {
	return len(a.CurrentTaskIDs) >= maxConcurrent
}

func (a *Agent) AssignTask(taskID string) {
	a.CurrentTaskIDs = append(a.CurrentTaskIDs, taskID)
	a.Status = StatusWorking
}

func (a *Agent) ReleaseTask(taskID string) {
	out := a.CurrentTaskIDs[:0]
	for _, id := range a.CurrentTaskIDs {
		if id != taskID {
			out = append(out, id)
		}
	}
	a.CurrentTaskIDs = out
	if len(a.CurrentTaskIDs) == 0 {
		a.Status = StatusIdle
	}
}

type ListFilters struct {
	ProjectID *string
	Status    *Status
	Skill     *string
}

// Profile is the derived, per-agent rolling performance record (spec §3),
// recomputed after every terminal task event (done/expired/abandoned).
type Profile struct {
	AgentID              string             `json:"agent_id"`
	CompletedCount       int                `json:"completed_count"`
	AvgDurationByLabel   map[string]float64 `json:"avg_duration_by_label"`
	EstimationAccuracy   float64            `json:"estimation_accuracy"`
	BlockageRateByLabel  map[string]float64 `json:"blockage_rate_by_label"`
	ImprovingLabels      []string           `json:"improving_labels"`
	StrugglingLabels     []string           `json:"struggling_labels"`
	// Reliability is a visibility-only score, decayed on lease expiry and
	// nudged up on on-time completion (spec §12.2 supplement). It does not
	// gate assignment scoring.
	Reliability float64 `json:"reliability"`
}

func NewProfile(agentID string) Profile {
	return Profile{
		AgentID:             agentID,
		AvgDurationByLabel:  map[string]float64{},
		EstimationAccuracy:  1.0,
		BlockageRateByLabel: map[string]float64{},
		ImprovingLabels:     []string{},
		StrugglingLabels:    []string{},
		Reliability:         1.0,
	}
}

const (
	reliabilityDecayOnExpiry  = 0.9
	reliabilityBumpOnCompletion = 1.02
)

func (p *Profile) DecayOnExpiry() {
	p.Reliability *= reliabilityDecayOnExpiry
}

func (p *Profile) BumpOnCompletion() {
	p.Reliability *= reliabilityBumpOnCompletion
	if p.Reliability > 1.0 {
		p.Reliability = 1.0
	}
}
