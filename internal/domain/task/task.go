// Package task holds the Task aggregate: identity, mutable status, and the
// invariant-checked status state machine (spec I2/I3, lifecycle in spec §3).
package task

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

var validTransitions = map[Status][]Status{
	StatusTodo:       {StatusInProgress},
	StatusInProgress: {StatusDone, StatusTodo, StatusBlocked},
	StatusBlocked:    {StatusTodo, StatusInProgress},
	StatusDone:       {},
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Weight implements the priority_weight term of the assignment score (spec §4.7).
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 1.0
	case PriorityHigh:
		return 0.75
	case PriorityMedium:
		return 0.5
	case PriorityLow:
		return 0.25
	default:
		return 0.5
	}
}

// Task is immutable identity plus mutable status; other fields are treated
// immutable after planner emission except via explicit edit (spec §3).
// ID is an opaque string — UUID for planner-minted tasks, or the board's
// native ID once reconciled against the board (spec §5).
type Task struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Labels         []string  `json:"labels"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Dependencies   []string  `json:"dependencies"`
	EstimatedHours *float64  `json:"estimated_hours,omitempty"`
	BoardRef       string    `json:"board_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func New(id, projectID, name, description string, priority Priority, deps []string) Task {
	now := time.Now().UTC()
	if deps == nil {
		deps = []string{}
	}
	return Task{
		ID:           id,
		ProjectID:    projectID,
		Name:         name,
		Description:  description,
		Labels:       []string{},
		Priority:     priority,
		Status:       StatusTodo,
		Dependencies: deps,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ErrInvalidTransition is returned by TransitionTo whenever a requested
// status change violates the state machine (spec I2/I3).
type ErrInvalidTransition struct {
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

func (t *Task) TransitionTo(target Status) error {
	if !t.Status.CanTransitionTo(target) {
		return &ErrInvalidTransition{From: t.Status, To: target}
	}
	t.Status = target
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Keywords returns normalized content words from name+description+labels.
// Used both by dependency inference (spec §4.4) and skill_match (spec §4.7).
func (t Task) Keywords() []string {
	set := make(map[string]struct{})
	for _, l := range t.Labels {
		set[normalizeWord(l)] = struct{}{}
	}
	for _, w := range splitWords(t.Name + " " + t.Description) {
		set[w] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

type Dependency struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
}

type ListFilters struct {
	ProjectID  *string
	Status     *Status
	Priority   *Priority
	AssignedTo *string
	Labels     []string
}
