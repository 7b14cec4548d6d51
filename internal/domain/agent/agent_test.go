package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/marcusai/marcus/internal/domain/agent"
)

func TestSkillOverlap(t *testing.T) {
	a := New("agent_1", "proj_1", "alice", []string{"backend", "api"})

	assert.Equal(t, 0.0, a.SkillOverlap(nil))

	overlap := a.SkillOverlap([]string{"backend", "frontend"})
	assert.InDelta(t, 1.0/3.0, overlap, 0.0001)

	full := a.SkillOverlap([]string{"backend", "api"})
	assert.Equal(t, 1.0, full)
}

func TestAssignAndReleaseTask(t *testing.T) {
	a := New("agent_1", "proj_1", "alice", []string{"backend"})
	assert.Equal(t, StatusIdle, a.Status)
	assert.False(t, a.AtCapacity(3))

	a.AssignTask("task_1")
	assert.Equal(t, StatusWorking, a.Status)
	assert.Len(t, a.CurrentTaskIDs, 1)

	a.AssignTask("task_2")
	a.AssignTask("task_3")
	assert.True(t, a.AtCapacity(3))

	a.ReleaseTask("task_2")
	assert.ElementsMatch(t, []string{"task_1", "task_3"}, a.CurrentTaskIDs)

	a.ReleaseTask("task_1")
	a.ReleaseTask("task_3")
	assert.Equal(t, StatusIdle, a.Status)
}

func TestProfileReliability(t *testing.T) {
	p := NewProfile("agent_1")
	assert.Equal(t, 1.0, p.Reliability)

	p.DecayOnExpiry()
	assert.InDelta(t, 0.9, p.Reliability, 0.0001)

	p.BumpOnCompletion()
	assert.Less(t, p.Reliability, 1.0)

	for i := 0; i < 50; i++ {
		p.BumpOnCompletion()
	}
	assert.Equal(t, 1.0, p.Reliability)
}
