package assignment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/marcusai/marcus/internal/domain/assignment"
)

func TestNewAndRenew(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := New("asg_1", "task_1", "agent_1", "proj_1", now, 2*time.Hour)

	assert.Equal(t, StateActive, a.State)
	assert.Equal(t, now.Add(2*time.Hour), a.LeaseExpiresAt)
	assert.False(t, a.IsExpired(now.Add(90*time.Minute)))
	assert.True(t, a.IsExpired(now.Add(150*time.Minute)))

	a.Renew(now.Add(time.Hour), 2*time.Hour, 50)
	assert.Equal(t, 1, a.Renewals)
	assert.Equal(t, 50, a.LastProgressPct)
	assert.Equal(t, now.Add(3*time.Hour), a.LeaseExpiresAt)
}

func TestWarningDue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := New("asg_1", "task_1", "agent_1", "proj_1", now, 2*time.Hour)

	assert.False(t, a.WarningDue(now.Add(30*time.Minute), 30*time.Minute))
	assert.True(t, a.WarningDue(now.Add(100*time.Minute), 30*time.Minute))
	assert.False(t, a.WarningDue(now.Add(2*time.Hour), 30*time.Minute))
}

func TestTransitionTo(t *testing.T) {
	now := time.Now()
	a := New("asg_1", "task_1", "agent_1", "proj_1", now, time.Hour)

	assert.NoError(t, a.TransitionTo(StateCompleted))
	assert.Equal(t, StateCompleted, a.State)

	err := a.TransitionTo(StateActive)
	assert.Error(t, err)
}

func TestIsStuck(t *testing.T) {
	now := time.Now()
	a := New("asg_1", "task_1", "agent_1", "proj_1", now, time.Hour)
	assert.False(t, a.IsStuck(3))

	a.Renewals = 3
	assert.True(t, a.IsStuck(3))
}
