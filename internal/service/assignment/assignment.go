// Package assignment implements the Assignment Engine (spec §4.7):
// frontier computation, weighted scoring, tie-breaking, and atomic
// Assignment creation.
package assignment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	"github.com/marcusai/marcus/internal/metrics"
	portagent "github.com/marcusai/marcus/internal/port/agent"
	portassignment "github.com/marcusai/marcus/internal/port/assignment"
	porttask "github.com/marcusai/marcus/internal/port/task"
)

const (
	skillMatchWeight      = 0.40
	priorityWeightWeight  = 0.30
	unblockingValueWeight = 0.20
	agentPreferenceWeight = 0.10
)

// DependencyGraph is the narrow slice of the dependency service the
// engine needs to compute the assignable frontier and unblocking value.
type DependencyGraph interface {
	IsAssignable(projectID, taskID string, doneSet map[string]bool) bool
	DependentsOf(projectID, taskID string) []string
	MaxDependents(projectID string, taskIDs []string) int
}

// Scored is a candidate task with its computed score, for tie-breaking
// and explainability.
type Scored struct {
	Task  domaintask.Task
	Score float64
}

type Engine struct {
	tasks       porttask.Repository
	assignments portassignment.Repository
	agents      portagent.Repository
	graph       DependencyGraph
}

func NewEngine(tasks porttask.Repository, assignments portassignment.Repository, agents portagent.Repository, graph DependencyGraph) *Engine {
	return &Engine{tasks: tasks, assignments: assignments, agents: agents, graph: graph}
}

// Frontier computes tasks in status=todo whose effective predecessors
// are all done and which are not already under an active Assignment
// (spec §4.7 step 2).
func (e *Engine) Frontier(ctx context.Context, projectID string) ([]domaintask.Task, error) {
	status := domaintask.StatusTodo
	todo, err := e.tasks.List(ctx, domaintask.ListFilters{ProjectID: &projectID, Status: &status})
	if err != nil {
		return nil, fmt.Errorf("list todo tasks: %w", err)
	}

	all, err := e.tasks.List(ctx, domaintask.ListFilters{ProjectID: &projectID})
	if err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	doneSet := map[string]bool{}
	for _, t := range all {
		if t.Status == domaintask.StatusDone {
			doneSet[t.ID] = true
		}
	}

	active, err := e.assignments.List(ctx, domainassignment.ListFilters{ProjectID: &projectID})
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	underAssignment := map[string]bool{}
	for _, a := range active {
		if a.State == domainassignment.StateActive {
			underAssignment[a.TaskID] = true
		}
	}

	var frontier []domaintask.Task
	for _, t := range todo {
		if underAssignment[t.ID] {
			continue
		}
		if !e.graph.IsAssignable(projectID, t.ID, doneSet) {
			continue
		}
		frontier = append(frontier, t)
	}
	return frontier, nil
}

// Score computes score(T, agent) per spec §4.7 step 4.
func (e *Engine) Score(projectID string, t domaintask.Task, a domainagent.Agent, profile domainagent.Profile, maxDependents int) float64 {
	skillMatch := a.SkillOverlap(t.Keywords())
	priorityWeight := t.Priority.Weight()

	dependents := len(e.graph.DependentsOf(projectID, t.ID))
	unblockingValue := 0.0
	if maxDependents > 0 {
		unblockingValue = float64(dependents) / float64(maxDependents)
	}

	agentPreference := agentPreferenceScore(t, profile)

	return skillMatchWeight*skillMatch +
		priorityWeightWeight*priorityWeight +
		unblockingValueWeight*unblockingValue +
		agentPreferenceWeight*agentPreference
}

// agentPreferenceScore averages exp(-|ratio-1|) over the task's labels for
// which the agent has an actual/planned duration ratio, and returns 0.5
// when there is no such history. How recent the completions were does not
// affect the score.
func agentPreferenceScore(t domaintask.Task, profile domainagent.Profile) float64 {
	if len(profile.AvgDurationByLabel) == 0 {
		return 0.5 // no history: neutral preference
	}
	var sum float64
	var n int
	for _, l := range t.Labels {
		if ratio, ok := profile.AvgDurationByLabel[l]; ok {
			// ratio of 1.0 (on estimate) -> 1.0 preference; decays smoothly
			// as actual/planned drifts away from 1 in either direction.
			sum += math.Exp(-math.Abs(ratio - 1))
			n++
		}
	}
	if n == 0 {
		return 0.5
	}
	return sum / float64(n)
}

// RankFrontier scores and sorts the frontier for one agent, applying the
// tie-break order from spec §4.7 step 5: higher unblocking_value, then
// earlier created_at, then lexicographic task_id.
func (e *Engine) RankFrontier(projectID string, frontier []domaintask.Task, a domainagent.Agent, profile domainagent.Profile) []Scored {
	start := time.Now()
	defer func() { metrics.AssignmentScoreDuration.Observe(time.Since(start).Seconds()) }()

	ids := make([]string, len(frontier))
	for i, t := range frontier {
		ids[i] = t.ID
	}
	maxDependents := e.graph.MaxDependents(projectID, ids)
	if maxDependents == 0 {
		maxDependents = 1
	}

	scored := make([]Scored, len(frontier))
	for i, t := range frontier {
		scored[i] = Scored{Task: t, Score: e.Score(projectID, t, a, profile, maxDependents)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		di := len(e.graph.DependentsOf(projectID, scored[i].Task.ID))
		dj := len(e.graph.DependentsOf(projectID, scored[j].Task.ID))
		if di != dj {
			return di > dj
		}
		if !scored[i].Task.CreatedAt.Equal(scored[j].Task.CreatedAt) {
			return scored[i].Task.CreatedAt.Before(scored[j].Task.CreatedAt)
		}
		return scored[i].Task.ID < scored[j].Task.ID
	})
	return scored
}

// RetryAfter computes the backoff returned when the frontier is empty
// but work remains (spec §4.7 step 3): min(60, base_backoff * jitter).
func RetryAfter(baseBackoffSeconds float64, jitter float64) time.Duration {
	if jitter <= 0 {
		jitter = 1
	}
	seconds := math.Min(60, baseBackoffSeconds*jitter)
	return time.Duration(seconds * float64(time.Second))
}
