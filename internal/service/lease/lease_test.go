package lease_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
	"github.com/marcusai/marcus/internal/domain/event"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	"github.com/marcusai/marcus/internal/clock"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	. "github.com/marcusai/marcus/internal/service/lease"
)

type fakeAssignments struct {
	byID map[string]domainassignment.Assignment
}

func (f *fakeAssignments) Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error) {
	f.byID[a.ID] = a
	return a, nil
}
func (f *fakeAssignments) GetByID(ctx context.Context, id string) (domainassignment.Assignment, error) {
	a, ok := f.byID[id]
	if !ok {
		return domainassignment.Assignment{}, fmt.Errorf("not found")
	}
	return a, nil
}
func (f *fakeAssignments) GetActiveForTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error) {
	for _, a := range f.byID {
		if a.TaskID == taskID && a.State == domainassignment.StateActive {
			return a, true, nil
		}
	}
	return domainassignment.Assignment{}, false, nil
}
func (f *fakeAssignments) List(ctx context.Context, filters domainassignment.ListFilters) ([]domainassignment.Assignment, error) {
	var out []domainassignment.Assignment
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, nil
}
func (f *fakeAssignments) Update(ctx context.Context, a domainassignment.Assignment) error {
	f.byID[a.ID] = a
	return nil
}

type fakeTasks struct {
	byID map[string]domaintask.Task
}

func (f *fakeTasks) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	f.byID[t.ID] = t
	return t, nil
}
func (f *fakeTasks) GetByID(ctx context.Context, id string) (domaintask.Task, error) {
	return f.byID[id], nil
}
func (f *fakeTasks) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	var out []domaintask.Task
	for _, t := range f.byID {
		out = append(out, t)
	}
	return out, nil
}
func (f *fakeTasks) Update(ctx context.Context, t domaintask.Task) error {
	f.byID[t.ID] = t
	return nil
}
func (f *fakeTasks) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}
func (f *fakeTasks) UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error {
	t := f.byID[id]
	if t.Status != from {
		return fmt.Errorf("status mismatch")
	}
	t.Status = to
	f.byID[id] = t
	return nil
}

type fakeAgents struct {
	byID map[string]domainagent.Agent
}

func (f *fakeAgents) Create(ctx context.Context, a domainagent.Agent) (domainagent.Agent, error) {
	f.byID[a.ID] = a
	return a, nil
}
func (f *fakeAgents) GetByID(ctx context.Context, id string) (domainagent.Agent, error) {
	return f.byID[id], nil
}
func (f *fakeAgents) List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error) {
	return nil, nil
}
func (f *fakeAgents) Update(ctx context.Context, a domainagent.Agent) error {
	f.byID[a.ID] = a
	return nil
}
func (f *fakeAgents) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeAgents) UpdateStatus(ctx context.Context, id string, status domainagent.Status) error {
	a := f.byID[id]
	a.Status = status
	f.byID[id] = a
	return nil
}
func (f *fakeAgents) AssignTask(ctx context.Context, agentID, taskID string) error {
	a := f.byID[agentID]
	a.AssignTask(taskID)
	f.byID[agentID] = a
	return nil
}
func (f *fakeAgents) ReleaseTask(ctx context.Context, agentID, taskID string) error {
	a := f.byID[agentID]
	a.ReleaseTask(taskID)
	f.byID[agentID] = a
	return nil
}

type fakeProfiles struct {
	byID map[string]domainagent.Profile
}

func (f *fakeProfiles) Get(ctx context.Context, agentID string) (domainagent.Profile, error) {
	p, ok := f.byID[agentID]
	if !ok {
		return domainagent.Profile{}, fmt.Errorf("not found")
	}
	return p, nil
}
func (f *fakeProfiles) Put(ctx context.Context, p domainagent.Profile) error {
	f.byID[p.AgentID] = p
	return nil
}

type fakeBus struct {
	published []event.Event
}

func (b *fakeBus) Publish(ctx context.Context, e event.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *fakeBus) PublishNoWait(ctx context.Context, e event.Event) { b.published = append(b.published, e) }
func (b *fakeBus) Subscribe(ctx context.Context, eventType event.Type, handler portbus.Handler) (portbus.Subscription, error) {
	return nil, nil
}
func (b *fakeBus) WaitFor(ctx context.Context, eventType event.Type, pred portbus.Predicate, timeout time.Duration) (event.Event, error) {
	return event.Event{}, nil
}
func (b *fakeBus) History(filter event.Filter, limit int) []event.Event { return b.published }

func TestLeaseExpiryAndRecycling(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	assignments := &fakeAssignments{byID: map[string]domainassignment.Assignment{}}
	tasks := &fakeTasks{byID: map[string]domaintask.Task{}}
	agents := &fakeAgents{byID: map[string]domainagent.Agent{}}
	profiles := &fakeProfiles{byID: map[string]domainagent.Profile{}}
	bus := &fakeBus{}

	tsk := domaintask.New("T1", "proj_1", "Implement POST /users", "", domaintask.PriorityHigh, nil)
	tsk.TransitionTo(domaintask.StatusInProgress)
	tasks.byID["T1"] = tsk

	a := domainagent.New("agent_A", "proj_1", "A", []string{"backend"})
	a.AssignTask("T1")
	agents.byID["agent_A"] = a
	profiles.byID["agent_A"] = domainagent.NewProfile("agent_A")

	cfg := Config{
		DefaultHours:           2.0,
		MinHours:               0.5,
		MaxHours:               8.0,
		WarningHours:           0.5,
		GracePeriodMinutes:     30,
		RenewalDecayFactor:     0.9,
		StuckThresholdRenewals: 5,
	}

	mgr := NewManager(cfg, fc, assignments, tasks, agents, profiles, bus)

	now := fc.Now()
	leaseDuration := mgr.Duration(tsk)
	asg := domainassignment.New("asg_1", "T1", "agent_A", "proj_1", now, leaseDuration)
	asg.LastProgressPct = 25
	assignments.byID["asg_1"] = asg

	mgr.Start(context.Background(), asg, leaseDuration)

	// Lease is 2h * 0.75 (high priority) = 1.5h. First advance fires the
	// expiry timer, which schedules a 30min grace-period timer relative to
	// the new clock position; a second advance is needed to fire that one,
	// since a timer registered mid-tick isn't visible to the tick that
	// spawned it.
	fc.Advance(100 * time.Minute)
	fc.Advance(40 * time.Minute)

	updated, err := assignments.GetByID(context.Background(), "asg_1")
	require.NoError(t, err)
	assert.Equal(t, domainassignment.StateExpired, updated.State)

	recycled, err := tasks.GetByID(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusTodo, recycled.Status)

	released := agents.byID["agent_A"]
	assert.NotContains(t, released.CurrentTaskIDs, "T1")

	profile := profiles.byID["agent_A"]
	assert.Less(t, profile.Reliability, 1.0)

	foundRecycleEvent := false
	for _, e := range bus.published {
		if e.Type == event.TypeLeaseExpired {
			foundRecycleEvent = true
		}
	}
	assert.True(t, foundRecycleEvent)
}

func TestDurationClipping(t *testing.T) {
	fc := clock.NewFake(time.Now())
	mgr := NewManager(Config{DefaultHours: 2.0, MinHours: 0.5, MaxHours: 8.0}, fc, nil, nil, nil, nil, nil)

	critical := domaintask.New("T1", "proj_1", "x", "", domaintask.PriorityCritical, nil)
	d := mgr.Duration(critical)
	assert.Equal(t, time.Hour, d) // 2.0 * 0.5 = 1.0h

	epic := domaintask.New("T2", "proj_1", "x", "", domaintask.PriorityLow, nil)
	epic.Labels = []string{"epic"}
	d2 := mgr.Duration(epic)
	assert.Equal(t, 8*time.Hour, d2) // 2.0 * 1.5 * 3.0 = 9h, clipped to 8h max
}
