// Package assignment holds the Assignment aggregate (spec §3): the lease
// binding one agent to one task, its renewal bookkeeping, and the state
// machine the lease manager drives.
package assignment

import (
	"fmt"
	"time"
)

type State string

const (
	StateActive    State = "active"
	StateExpired   State = "expired"
	StateCompleted State = "completed"
	StateAbandoned State = "abandoned"
)

var validTransitions = map[State][]State{
	StateActive:    {StateExpired, StateCompleted, StateAbandoned},
	StateExpired:   {},
	StateCompleted: {},
	StateAbandoned: {},
}

func (s State) CanTransitionTo(target State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Assignment binds exactly one Agent to one Task for the duration of a
// lease (spec I4: exactly one active Assignment per task_id).
type Assignment struct {
	ID              string    `json:"id"`
	TaskID          string    `json:"task_id"`
	AgentID         string    `json:"agent_id"`
	ProjectID       string    `json:"project_id"`
	AssignedAt      time.Time `json:"assigned_at"`
	LeaseExpiresAt  time.Time `json:"lease_expires_at"`
	Renewals        int       `json:"renewals"`
	LastProgressAt  time.Time `json:"last_progress_at"`
	LastProgressPct int       `json:"last_progress_pct"`
	State           State     `json:"state"`
	// PreviousAssignmentID links a retry back to the attempt it recycled
	// from, driving the "previously attempted" instructions marker.
	PreviousAssignmentID string `json:"previous_assignment_id,omitempty"`
}

func New(id, taskID, agentID, projectID string, now time.Time, leaseDuration time.Duration) Assignment {
	return Assignment{
		ID:             id,
		TaskID:         taskID,
		AgentID:        agentID,
		ProjectID:      projectID,
		AssignedAt:     now,
		LeaseExpiresAt: now.Add(leaseDuration),
		Renewals:       0,
		LastProgressAt: now,
		State:          StateActive,
	}
}

type ErrInvalidTransition struct {
	From, To State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid assignment transition from %s to %s", e.From, e.To)
}

func (a *Assignment) TransitionTo(target State) error {
	if !a.State.CanTransitionTo(target) {
		return &ErrInvalidTransition{From: a.State, To: target}
	}
	a.State = target
	return nil
}

// Renew pushes the lease out by leaseDuration from now and records progress.
func (a *Assignment) Renew(now time.Time, leaseDuration time.Duration, progressPct int) {
	a.Renewals++
	a.LastProgressAt = now
	a.LastProgressPct = progressPct
	a.LeaseExpiresAt = now.Add(leaseDuration)
}

func (a *Assignment) IsExpired(now time.Time) bool {
	return now.After(a.LeaseExpiresAt)
}

// WarningDue reports whether now falls within warningWindow of expiry.
func (a *Assignment) WarningDue(now time.Time, warningWindow time.Duration) bool {
	return !now.Before(a.LeaseExpiresAt.Add(-warningWindow)) && now.Before(a.LeaseExpiresAt)
}

// IsStuck reports whether the assignment has been renewed at least
// stuckThresholdRenewals times without the task ever reaching done — the
// operator-escalation signal of spec §4.8.
func (a *Assignment) IsStuck(stuckThresholdRenewals int) bool {
	return a.State == StateActive && a.Renewals >= stuckThresholdRenewals
}

type ListFilters struct {
	ProjectID *string
	AgentID   *string
	TaskID    *string
	State     *State
}
