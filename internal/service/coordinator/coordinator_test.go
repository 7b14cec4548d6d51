package coordinator_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
	"github.com/marcusai/marcus/internal/domain/event"
	domainproject "github.com/marcusai/marcus/internal/domain/project"
	domaintask "github.com/marcusai/marcus/internal/domain/task"

	"github.com/marcusai/marcus/internal/clock"
	"github.com/marcusai/marcus/internal/port/kv"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	portconversationlog "github.com/marcusai/marcus/internal/port/conversationlog"
	portllm "github.com/marcusai/marcus/internal/port/llm"

	assignmentsvc "github.com/marcusai/marcus/internal/service/assignment"
	"github.com/marcusai/marcus/internal/service/contextbuilder"
	. "github.com/marcusai/marcus/internal/service/coordinator"
	dependencysvc "github.com/marcusai/marcus/internal/service/dependency"
	leasesvc "github.com/marcusai/marcus/internal/service/lease"
	memorysvc "github.com/marcusai/marcus/internal/service/memory"
	"github.com/marcusai/marcus/internal/service/registry"
)

// ---- in-memory fakes implementing every port the coordinator depends on ----

type memTasks struct {
	mu   sync.Mutex
	byID map[string]domaintask.Task
}

func newMemTasks() *memTasks { return &memTasks{byID: map[string]domaintask.Task{}} }

func (m *memTasks) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
	return t, nil
}
func (m *memTasks) GetByID(ctx context.Context, id string) (domaintask.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return domaintask.Task{}, fmt.Errorf("task %s not found", id)
	}
	return t, nil
}
func (m *memTasks) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domaintask.Task
	for _, t := range m.byID {
		if filters.ProjectID != nil && t.ProjectID != *filters.ProjectID {
			continue
		}
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
func (m *memTasks) Update(ctx context.Context, t domaintask.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
	return nil
}
func (m *memTasks) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}
func (m *memTasks) UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	if t.Status != from {
		return fmt.Errorf("task %s: expected status %s, got %s", id, from, t.Status)
	}
	if err := t.TransitionTo(to); err != nil {
		return err
	}
	m.byID[id] = t
	return nil
}

type memAgents struct {
	mu   sync.Mutex
	byID map[string]domainagent.Agent
}

func newMemAgents() *memAgents { return &memAgents{byID: map[string]domainagent.Agent{}} }

func (m *memAgents) Create(ctx context.Context, a domainagent.Agent) (domainagent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	return a, nil
}
func (m *memAgents) GetByID(ctx context.Context, id string) (domainagent.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domainagent.Agent{}, fmt.Errorf("agent %s not found", id)
	}
	return a, nil
}
func (m *memAgents) List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error) {
	return nil, nil
}
func (m *memAgents) Update(ctx context.Context, a domainagent.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	return nil
}
func (m *memAgents) Delete(ctx context.Context, id string) error { return nil }
func (m *memAgents) UpdateStatus(ctx context.Context, id string, status domainagent.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[id]
	a.Status = status
	m.byID[id] = a
	return nil
}
func (m *memAgents) AssignTask(ctx context.Context, agentID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[agentID]
	a.AssignTask(taskID)
	m.byID[agentID] = a
	return nil
}
func (m *memAgents) ReleaseTask(ctx context.Context, agentID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.byID[agentID]
	a.ReleaseTask(taskID)
	m.byID[agentID] = a
	return nil
}

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]domainagent.Profile
}

func newMemProfiles() *memProfiles { return &memProfiles{byID: map[string]domainagent.Profile{}} }

func (m *memProfiles) Get(ctx context.Context, agentID string) (domainagent.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[agentID]
	if !ok {
		return domainagent.Profile{}, fmt.Errorf("profile %s not found", agentID)
	}
	return p, nil
}
func (m *memProfiles) Put(ctx context.Context, p domainagent.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.AgentID] = p
	return nil
}

type memProjects struct {
	mu   sync.Mutex
	byID map[string]domainproject.Project
}

func newMemProjects() *memProjects { return &memProjects{byID: map[string]domainproject.Project{}} }

func (m *memProjects) Create(ctx context.Context, p domainproject.Project) (domainproject.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	return p, nil
}
func (m *memProjects) GetByID(ctx context.Context, id string) (domainproject.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domainproject.Project{}, fmt.Errorf("project %s not found", id)
	}
	return p, nil
}
func (m *memProjects) List(ctx context.Context) ([]domainproject.Project, error) { return nil, nil }
func (m *memProjects) Update(ctx context.Context, p domainproject.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	return nil
}
func (m *memProjects) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type memAssignments struct {
	mu   sync.Mutex
	byID map[string]domainassignment.Assignment
}

func newMemAssignments() *memAssignments {
	return &memAssignments{byID: map[string]domainassignment.Assignment{}}
}

func (m *memAssignments) Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	return a, nil
}
func (m *memAssignments) GetByID(ctx context.Context, id string) (domainassignment.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domainassignment.Assignment{}, fmt.Errorf("assignment %s not found", id)
	}
	return a, nil
}
func (m *memAssignments) GetActiveForTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.TaskID == taskID && a.State == domainassignment.StateActive {
			return a, true, nil
		}
	}
	return domainassignment.Assignment{}, false, nil
}
func (m *memAssignments) List(ctx context.Context, filters domainassignment.ListFilters) ([]domainassignment.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainassignment.Assignment
	for _, a := range m.byID {
		if filters.ProjectID != nil && a.ProjectID != *filters.ProjectID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
func (m *memAssignments) Update(ctx context.Context, a domainassignment.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = a
	return nil
}

type memDecisions struct {
	mu   sync.Mutex
	list []domaindecision.Decision
}

func (m *memDecisions) Create(ctx context.Context, d domaindecision.Decision) (domaindecision.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, d)
	return d, nil
}
func (m *memDecisions) List(ctx context.Context, filters domaindecision.ListFilters) ([]domaindecision.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domaindecision.Decision{}, m.list...), nil
}

type memArtifacts struct {
	mu   sync.Mutex
	list []domainartifact.Artifact
}

func (m *memArtifacts) Create(ctx context.Context, a domainartifact.Artifact) (domainartifact.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, a)
	return a, nil
}
func (m *memArtifacts) List(ctx context.Context, filters domainartifact.ListFilters) ([]domainartifact.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domainartifact.Artifact
	for _, a := range m.list {
		if filters.TaskID != nil && a.TaskID != *filters.TaskID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type memKV struct {
	mu   sync.Mutex
	data map[kv.Collection]map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[kv.Collection]map[string][]byte{}} }

func (m *memKV) Get(ctx context.Context, collection kv.Collection, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[collection]
	if !ok {
		return nil, false, nil
	}
	v, ok := bucket[key]
	return v, ok, nil
}
func (m *memKV) Put(ctx context.Context, collection kv.Collection, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = map[string][]byte{}
	}
	m.data[collection][key] = value
	return nil
}
func (m *memKV) Delete(ctx context.Context, collection kv.Collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], key)
	return nil
}
func (m *memKV) Scan(ctx context.Context, collection kv.Collection, filter kv.ScanFilter) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]byte{}
	for k, v := range m.data[collection] {
		if filter.KeyPrefix != "" && !strings.HasPrefix(k, filter.KeyPrefix) {
			continue
		}
		out[k] = v
	}
	return out, nil
}

type memLog struct {
	mu      sync.Mutex
	records []portconversationlog.Record
}

func (l *memLog) Append(ctx context.Context, r portconversationlog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}
func (l *memLog) Replay(ctx context.Context) ([]portconversationlog.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]portconversationlog.Record{}, l.records...), nil
}

type memBus struct {
	mu        sync.Mutex
	published []event.Event
}

func (b *memBus) Publish(ctx context.Context, e event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
	return nil
}
func (b *memBus) PublishNoWait(ctx context.Context, e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}
func (b *memBus) Subscribe(ctx context.Context, eventType event.Type, handler portbus.Handler) (portbus.Subscription, error) {
	return nil, nil
}
func (b *memBus) WaitFor(ctx context.Context, eventType event.Type, pred portbus.Predicate, timeout time.Duration) (event.Event, error) {
	return event.Event{}, nil
}
func (b *memBus) History(filter event.Filter, limit int) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event{}, b.published...)
}
func (b *memBus) eventTypes() []event.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Type
	for _, e := range b.published {
		out = append(out, e.Type)
	}
	return out
}

type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestRegisterAgentAndRequestNextTask(t *testing.T) {
	tasks := newMemTasks()
	agents := newMemAgents()
	profiles := newMemProfiles()
	projects := newMemProjects()
	assignments := newMemAssignments()
	decisions := &memDecisions{}
	artifacts := &memArtifacts{}
	kvStore := newMemKV()
	log := &memLog{}
	bus := &memBus{}

	reg := registry.NewService(tasks, projects, bus, nil)
	deps := dependencysvc.NewService(tasks, 0.8, 0.7)
	mem := memorysvc.NewService(kvStore, profiles)
	ctxBuilder := contextbuilder.NewService(tasks, decisions, artifacts, deps, nil)
	engine := assignmentsvc.NewEngine(tasks, assignments, agents, deps)
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	leases := leasesvc.NewManager(leasesvc.Config{
		DefaultHours:           2.0,
		MinHours:               0.5,
		MaxHours:               8.0,
		WarningHours:           0.25,
		GracePeriodMinutes:     30,
		RenewalDecayFactor:     0.9,
		StuckThresholdRenewals: 5,
	}, fc, assignments, tasks, agents, profiles, bus)

	coord := New(reg, deps, mem, ctxBuilder, engine, leases, agents, profiles, assignments, decisions, artifacts, bus, log, noopLocker{}, kvStore, nil, 3)

	ctx := context.Background()
	projectID := "proj_1"
	_, err := projects.Create(ctx, domainproject.New(projectID, "Launch", domainproject.BoardBinding{}))
	require.NoError(t, err)

	_, err = reg.AddTasks(ctx, projectID, []domaintask.Task{
		domaintask.New("T1", projectID, "Implement login API", "oauth backend flow", domaintask.PriorityHigh, nil),
	})
	require.NoError(t, err)
	require.NoError(t, deps.Rebuild(ctx, projectID))

	agent, err := coord.RegisterAgent(ctx, projectID, "alice", []string{"backend"})
	require.NoError(t, err)
	assert.NotEmpty(t, agent.ID)

	next, err := coord.RequestNextTask(ctx, projectID, agent.ID, "")
	require.NoError(t, err)
	require.False(t, next.NoTaskReady)
	assert.Equal(t, "T1", next.Task.ID)
	assert.Equal(t, domaintask.StatusInProgress, next.Task.Status)
	assert.NotEmpty(t, next.Assignment.ID)
	assert.NotEmpty(t, next.Instructions)

	storedTask, err := tasks.GetByID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusInProgress, storedTask.Status)

	storedAgent, err := agents.GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Contains(t, storedAgent.CurrentTaskIDs, "T1")

	require.NoError(t, coord.ReportProgress(ctx, agent.ID, "T1", ProgressCompleted, 100, "done"))

	doneTask, err := tasks.GetByID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusDone, doneTask.Status)

	completedAsg, err := assignments.GetByID(ctx, next.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domainassignment.StateCompleted, completedAsg.State)

	types := bus.eventTypes()
	assert.Contains(t, types, event.TypeAgentRegistered)
	assert.Contains(t, types, event.TypeTaskAssigned)
	assert.Contains(t, types, event.TypeTaskCompleted)
}

func TestRequestNextTaskNoFrontierReturnsRetryAfter(t *testing.T) {
	tasks := newMemTasks()
	agents := newMemAgents()
	profiles := newMemProfiles()
	projects := newMemProjects()
	assignments := newMemAssignments()
	decisions := &memDecisions{}
	artifacts := &memArtifacts{}
	kvStore := newMemKV()
	log := &memLog{}
	bus := &memBus{}

	reg := registry.NewService(tasks, projects, bus, nil)
	deps := dependencysvc.NewService(tasks, 0.8, 0.7)
	mem := memorysvc.NewService(kvStore, profiles)
	ctxBuilder := contextbuilder.NewService(tasks, decisions, artifacts, deps, nil)
	engine := assignmentsvc.NewEngine(tasks, assignments, agents, deps)
	fc := clock.NewFake(time.Now())
	leases := leasesvc.NewManager(leasesvc.Config{DefaultHours: 2, MinHours: 0.5, MaxHours: 8}, fc, assignments, tasks, agents, profiles, bus)

	coord := New(reg, deps, mem, ctxBuilder, engine, leases, agents, profiles, assignments, decisions, artifacts, bus, log, noopLocker{}, kvStore, nil, 3)

	ctx := context.Background()
	projectID := "proj_empty"
	_, err := projects.Create(ctx, domainproject.New(projectID, "Empty", domainproject.BoardBinding{}))
	require.NoError(t, err)

	agent, err := coord.RegisterAgent(ctx, projectID, "bob", []string{"backend"})
	require.NoError(t, err)

	next, err := coord.RequestNextTask(ctx, projectID, agent.ID, "")
	require.NoError(t, err)
	assert.True(t, next.NoTaskReady)
	assert.Greater(t, next.RetryAfter, time.Duration(0))
}

type fakeModel struct {
	text string
}

func (f *fakeModel) Complete(ctx context.Context, req portllm.CompletionRequest) (portllm.CompletionResponse, error) {
	return portllm.CompletionResponse{Text: f.text}, nil
}

func TestReportProgressBlockedAbandonsAssignmentAndReportBlockerDoesNotTransition(t *testing.T) {
	tasks := newMemTasks()
	agents := newMemAgents()
	profiles := newMemProfiles()
	projects := newMemProjects()
	assignments := newMemAssignments()
	decisions := &memDecisions{}
	artifacts := &memArtifacts{}
	kvStore := newMemKV()
	log := &memLog{}
	bus := &memBus{}

	reg := registry.NewService(tasks, projects, bus, nil)
	deps := dependencysvc.NewService(tasks, 0.8, 0.7)
	mem := memorysvc.NewService(kvStore, profiles)
	ctxBuilder := contextbuilder.NewService(tasks, decisions, artifacts, deps, nil)
	engine := assignmentsvc.NewEngine(tasks, assignments, agents, deps)
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	leases := leasesvc.NewManager(leasesvc.Config{DefaultHours: 2, MinHours: 0.5, MaxHours: 8}, fc, assignments, tasks, agents, profiles, bus)
	model := &fakeModel{text: "Re-check the credentials\nAsk the platform team for access"}

	coord := New(reg, deps, mem, ctxBuilder, engine, leases, agents, profiles, assignments, decisions, artifacts, bus, log, noopLocker{}, kvStore, model, 3)

	ctx := context.Background()
	projectID := "proj_1"
	_, err := projects.Create(ctx, domainproject.New(projectID, "Launch", domainproject.BoardBinding{}))
	require.NoError(t, err)
	_, err = reg.AddTasks(ctx, projectID, []domaintask.Task{
		domaintask.New("T1", projectID, "Implement login API", "oauth backend flow", domaintask.PriorityHigh, nil),
	})
	require.NoError(t, err)
	require.NoError(t, deps.Rebuild(ctx, projectID))

	agent, err := coord.RegisterAgent(ctx, projectID, "alice", []string{"backend"})
	require.NoError(t, err)
	next, err := coord.RequestNextTask(ctx, projectID, agent.ID, "")
	require.NoError(t, err)
	require.False(t, next.NoTaskReady)

	report, err := coord.ReportBlocker(ctx, projectID, "T1", agent.ID, "waiting on credentials")
	require.NoError(t, err)
	assert.Equal(t, []string{"Re-check the credentials", "Ask the platform team for access"}, report.Suggestions)

	stillInProgress, err := tasks.GetByID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusInProgress, stillInProgress.Status, "report_blocker must not transition the task")

	stillActive, err := assignments.GetByID(ctx, next.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domainassignment.StateActive, stillActive.State, "report_blocker must not abandon the assignment")

	require.NoError(t, coord.ReportProgress(ctx, agent.ID, "T1", ProgressBlocked, 0, "waiting on credentials"))

	blockedTask, err := tasks.GetByID(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusBlocked, blockedTask.Status)

	abandoned, err := assignments.GetByID(ctx, next.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domainassignment.StateAbandoned, abandoned.State)

	decisionsLogged, err := decisions.List(ctx, domaindecision.ListFilters{})
	require.NoError(t, err)
	require.Len(t, decisionsLogged, 1)
	assert.Equal(t, "blocker: waiting on credentials", decisionsLogged[0].Text)
}
