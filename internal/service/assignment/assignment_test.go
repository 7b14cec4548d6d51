package assignment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	. "github.com/marcusai/marcus/internal/service/assignment"
)

type fakeGraph struct {
	dependents map[string][]string
}

func (f *fakeGraph) IsAssignable(projectID, taskID string, doneSet map[string]bool) bool { return true }
func (f *fakeGraph) DependentsOf(projectID, taskID string) []string                      { return f.dependents[taskID] }
func (f *fakeGraph) MaxDependents(projectID string, taskIDs []string) int {
	max := 0
	for _, id := range taskIDs {
		if n := len(f.dependents[id]); n > max {
			max = n
		}
	}
	return max
}

func TestRankFrontierTieBreakByUnblockingValue(t *testing.T) {
	// scenario 4 from spec §8: Tx (priority high, 0 dependents) vs Ty
	// (priority high, 5 dependents); agent matches both equally.
	graph := &fakeGraph{dependents: map[string][]string{
		"Ty": {"d1", "d2", "d3", "d4", "d5"},
	}}
	engine := NewEngine(nil, nil, nil, graph)

	tx := domaintask.New("Tx", "proj_1", "Implement backend widget", "", domaintask.PriorityHigh, nil)
	ty := domaintask.New("Ty", "proj_1", "Implement backend service", "", domaintask.PriorityHigh, nil)
	a := domainagent.New("agent_1", "proj_1", "alice", []string{"backend"})
	profile := domainagent.NewProfile("agent_1")

	ranked := engine.RankFrontier("proj_1", []domaintask.Task{tx, ty}, a, profile)
	assert.Equal(t, "Ty", ranked[0].Task.ID)
}

func TestScoreWeights(t *testing.T) {
	graph := &fakeGraph{dependents: map[string][]string{}}
	engine := NewEngine(nil, nil, nil, graph)

	tsk := domaintask.New("T1", "proj_1", "Implement login API", "oauth login flow", domaintask.PriorityCritical, nil)
	tsk.Labels = []string{"backend"}
	a := domainagent.New("agent_1", "proj_1", "alice", []string{"backend"})
	profile := domainagent.NewProfile("agent_1")

	score := engine.Score("proj_1", tsk, a, profile, 1)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestRetryAfterCapped(t *testing.T) {
	d := RetryAfter(1000, 1)
	assert.Equal(t, float64(60), d.Seconds())
}
