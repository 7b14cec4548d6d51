// Package coordinator wires the registry, dependency graph, memory store,
// context builder, assignment engine, and lease manager into the nine
// Coordinator API operations (spec §4.9): the only layer an MCP tool or
// HTTP handler calls into. request_next_task and the blocked transition of
// report_task_progress run inside the per-project advisory lock;
// request_next_task is also idempotency-keyed against the KV store. The
// other mutating operations take neither the lock nor an idempotency key.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcusai/marcus/internal/apperr"
	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
	"github.com/marcusai/marcus/internal/domain/event"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	assignmentsvc "github.com/marcusai/marcus/internal/service/assignment"
	"github.com/marcusai/marcus/internal/service/contextbuilder"
	dependencysvc "github.com/marcusai/marcus/internal/service/dependency"
	leasesvc "github.com/marcusai/marcus/internal/service/lease"
	memorysvc "github.com/marcusai/marcus/internal/service/memory"
	"github.com/marcusai/marcus/internal/service/registry"

	portagent "github.com/marcusai/marcus/internal/port/agent"
	portartifact "github.com/marcusai/marcus/internal/port/artifact"
	portassignment "github.com/marcusai/marcus/internal/port/assignment"
	portconversationlog "github.com/marcusai/marcus/internal/port/conversationlog"
	portdecision "github.com/marcusai/marcus/internal/port/decision"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	"github.com/marcusai/marcus/internal/port/kv"
	portllm "github.com/marcusai/marcus/internal/port/llm"
	"github.com/marcusai/marcus/internal/port/locker"
	"github.com/marcusai/marcus/internal/metrics"
)

// Progress status values accepted by report_task_progress (spec §4.9/§6).
const (
	ProgressInProgress = "in_progress"
	ProgressBlocked    = "blocked"
	ProgressCompleted  = "completed"
)

// Coordinator implements spec §4.9's nine operations over the services
// built in internal/service/*.
type Coordinator struct {
	registry    *registry.Service
	deps        *dependencysvc.Service
	mem         *memorysvc.Service
	ctxBuilder  *contextbuilder.Service
	engine      *assignmentsvc.Engine
	leases      *leasesvc.Manager
	agents      portagent.Repository
	profiles    portagent.ProfileRepository
	assignments portassignment.Repository
	decisions   portdecision.Repository
	artifacts   portartifact.Repository
	bus         portbus.EventBus
	convLog     portconversationlog.Log
	locker      locker.AdvisoryLocker
	kvStore     kv.Store
	model       portllm.Model

	maxTasksPerAgent int
}

func New(
	reg *registry.Service,
	deps *dependencysvc.Service,
	mem *memorysvc.Service,
	ctxBuilder *contextbuilder.Service,
	engine *assignmentsvc.Engine,
	leases *leasesvc.Manager,
	agents portagent.Repository,
	profiles portagent.ProfileRepository,
	assignments portassignment.Repository,
	decisions portdecision.Repository,
	artifacts portartifact.Repository,
	bus portbus.EventBus,
	convLog portconversationlog.Log,
	lock locker.AdvisoryLocker,
	kvStore kv.Store,
	model portllm.Model,
	maxTasksPerAgent int,
) *Coordinator {
	if maxTasksPerAgent <= 0 {
		maxTasksPerAgent = 3
	}
	return &Coordinator{
		registry:         reg,
		deps:             deps,
		mem:              mem,
		ctxBuilder:       ctxBuilder,
		engine:           engine,
		leases:           leases,
		agents:           agents,
		profiles:         profiles,
		assignments:      assignments,
		decisions:        decisions,
		artifacts:        artifacts,
		bus:              bus,
		convLog:          convLog,
		locker:           lock,
		kvStore:          kvStore,
		model:            model,
		maxTasksPerAgent: maxTasksPerAgent,
	}
}

// advisoryKey hashes a project ID to a stable int64 for pg_advisory_lock,
// serialising every mutating Coordinator call for that project.
func advisoryKey(projectID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(projectID))
	return int64(h.Sum64())
}

// withIdempotency checks the KV idempotency collection before running fn,
// returning a previously-cached result verbatim on replay (spec §12.2).
// fn's result is marshaled to JSON and must be a value, not a pointer,
// whose JSON shape is stable across calls.
func withIdempotency[T any](ctx context.Context, store kv.Store, key string, fn func() (T, error)) (T, error) {
	var zero T
	if key == "" {
		return fn()
	}
	if cached, ok, err := store.Get(ctx, kv.CollectionIdempotency, key); err == nil && ok {
		var out T
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}
	result, err := fn()
	if err != nil {
		return zero, err
	}
	if data, err := json.Marshal(result); err == nil {
		if err := store.Put(ctx, kv.CollectionIdempotency, key, data); err != nil {
			slog.ErrorContext(ctx, "coordinator: failed to persist idempotency record", "key", key, "error", err)
		}
	}
	return result, nil
}

func (c *Coordinator) appendLog(ctx context.Context, e event.Event) {
	r := portconversationlog.Record{
		EventID:   e.EventID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		Source:    e.Source,
		ProjectID: e.ProjectID,
		TaskID:    e.TaskID,
		AgentID:   e.AgentID,
		Data:      e.Data,
		Metadata:  e.Metadata,
	}
	if err := c.convLog.Append(ctx, r); err != nil {
		slog.ErrorContext(ctx, "coordinator: failed to append conversation log record", "event_id", e.EventID, "error", err)
		unpersisted := event.New(event.TypeEventNotPersisted, "coordinator", map[string]any{"original_event_id": e.EventID})
		c.bus.PublishNoWait(ctx, unpersisted)
	}
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
}

func (c *Coordinator) publish(ctx context.Context, e event.Event) {
	if err := c.bus.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "coordinator: failed to publish event", "event_id", e.EventID, "type", e.Type, "error", err)
	}
	c.appendLog(ctx, e)
}

// RegisterAgent is register_agent (spec §4.9): mints an Agent and
// publishes agent_registered.
func (c *Coordinator) RegisterAgent(ctx context.Context, projectID, name string, skills []string) (domainagent.Agent, error) {
	a := domainagent.New(uuid.NewString(), projectID, name, skills)
	created, err := c.agents.Create(ctx, a)
	if err != nil {
		return domainagent.Agent{}, apperr.Internal("create agent", err)
	}
	if err := c.profiles.Put(ctx, domainagent.NewProfile(created.ID)); err != nil {
		slog.ErrorContext(ctx, "coordinator: failed to seed agent profile", "agent_id", created.ID, "error", err)
	}
	evt := event.New(event.TypeAgentRegistered, "coordinator", map[string]any{"name": name, "skills": skills}).
		WithProject(projectID).WithAgent(created.ID)
	c.publish(ctx, evt)
	return created, nil
}

// NextTask is the result of request_next_task (spec §4.9): an assigned
// task plus the instructions context the agent needs to begin work.
type NextTask struct {
	Assignment   domainassignment.Assignment  `json:"assignment"`
	Task         domaintask.Task              `json:"task"`
	Instructions string                       `json:"instructions,omitempty"`
	Context      contextbuilder.BuildResult   `json:"context"`
	Duration     time.Duration                `json:"-"`
	RetryAfter   time.Duration                `json:"retry_after,omitempty"`
	NoTaskReady  bool                         `json:"no_task_ready"`
	Prediction   memorysvc.DurationPrediction `json:"duration_prediction"`
	Blockage     memorysvc.BlockagePrediction `json:"blockage_prediction"`
}

// RequestNextTask is request_next_task (spec §4.9 step-by-step): compute
// the assignable frontier, rank it for this agent, and atomically create
// the Assignment for the top candidate — serialized per-project so two
// concurrent requests never double-assign the same task (spec I4).
func (c *Coordinator) RequestNextTask(ctx context.Context, projectID, agentID, idempotencyKey string) (NextTask, error) {
	return withIdempotency(ctx, c.kvStore, idempotencyKey, func() (NextTask, error) {
		var result NextTask
		err := c.locker.WithLock(ctx, advisoryKey(projectID), func(ctx context.Context) error {
			a, err := c.agents.GetByID(ctx, agentID)
			if err != nil {
				return apperr.NotFound("agent", agentID)
			}
			if a.AtCapacity(c.maxTasksPerAgent) {
				return apperr.Conflict(fmt.Sprintf("agent %s is at capacity (%d tasks)", agentID, c.maxTasksPerAgent))
			}

			frontier, err := c.engine.Frontier(ctx, projectID)
			if err != nil {
				return apperr.Internal("compute frontier", err)
			}
			if len(frontier) == 0 {
				result = NextTask{NoTaskReady: true, RetryAfter: assignmentsvc.RetryAfter(5, 1)}
				return nil
			}

			profile, err := c.profiles.Get(ctx, agentID)
			if err != nil {
				profile = domainagent.NewProfile(agentID)
			}
			ranked := c.engine.RankFrontier(projectID, frontier, a, profile)
			chosen := ranked[0].Task

			now := time.Now().UTC()
			duration := c.leases.Duration(chosen)
			asg := domainassignment.New(uuid.NewString(), chosen.ID, agentID, projectID, now, duration)
			created, err := c.assignments.Create(ctx, asg)
			if err != nil {
				return apperr.Internal("create assignment", err)
			}

			if err := c.registry.UpdateStatus(ctx, chosen.ID, chosen.Status, domaintask.StatusInProgress); err != nil {
				return apperr.Internal("transition task to in_progress", err)
			}
			chosen.Status = domaintask.StatusInProgress
			if err := c.agents.AssignTask(ctx, agentID, chosen.ID); err != nil {
				slog.ErrorContext(ctx, "coordinator: failed to record agent assignment", "agent_id", agentID, "task_id", chosen.ID, "error", err)
			}

			c.leases.Start(ctx, created, duration)

			buildResult, err := c.ctxBuilder.Build(ctx, projectID, chosen)
			if err != nil {
				slog.ErrorContext(ctx, "coordinator: context build failed", "task_id", chosen.ID, "error", err)
			}
			instructions := c.ctxBuilder.SynthesizeInstructions(ctx, chosen, buildResult)

			metrics.AssignmentsMade.WithLabelValues(projectID).Inc()
			evt := event.New(event.TypeTaskAssigned, "coordinator", map[string]any{
				"assignment_id": created.ID,
				"score":         ranked[0].Score,
			}).WithProject(projectID).WithTask(chosen.ID).WithAgent(agentID)
			c.publish(ctx, evt)

			result = NextTask{
				Assignment:   created,
				Task:         chosen,
				Instructions: instructions,
				Context:      buildResult,
				Duration:     duration,
				Prediction:   c.mem.PredictDuration(ctx, a, chosen, profile),
				Blockage:     c.mem.PredictBlockage(profile, chosen, c.anyPredecessorBlocked(projectID, chosen.ID)),
			}
			return nil
		})
		return result, err
	})
}

func (c *Coordinator) anyPredecessorBlocked(projectID, taskID string) bool {
	for _, predID := range c.deps.PredecessorsOf(projectID, taskID) {
		if t, err := c.registry.GetTask(context.Background(), predID); err == nil && t.Status == domaintask.StatusBlocked {
			return true
		}
	}
	return false
}

// ReportProgress is report_task_progress (spec §4.9/§6): agent_id must
// still hold the task's active Assignment. status="completed" (with
// progress=100) finishes the task; status="blocked" moves the task to
// blocked, abandons the assignment, and records the outcome — the
// transition report_blocker does NOT perform; any other status
// ("in_progress") renews the lease with the reported progress.
func (c *Coordinator) ReportProgress(ctx context.Context, agentID, taskID, status string, progressPct int, message string) error {
	asg, ok, err := c.assignments.GetActiveForTask(ctx, taskID)
	if err != nil || !ok {
		return apperr.NotFound("assignment for task", taskID)
	}
	if asg.AgentID != agentID {
		return apperr.Conflict(fmt.Sprintf("agent %s does not hold the active assignment for task %s", agentID, taskID))
	}
	if asg.State != domainassignment.StateActive {
		return apperr.Conflict(fmt.Sprintf("assignment %s is no longer active", asg.ID))
	}

	switch status {
	case ProgressCompleted:
		if progressPct < 100 {
			return apperr.Wrap(apperr.KindInvalidTransition, "report progress", fmt.Errorf("status completed requires progress=100, got %d", progressPct))
		}
		return c.completeAssignment(ctx, asg.ID)
	case ProgressBlocked:
		return c.blockAssignment(ctx, asg, message)
	default:
		if err := c.leases.Renew(ctx, asg.ID, progressPct); err != nil {
			return apperr.Wrap(apperr.KindConflict, "renew lease", err)
		}
		evt := event.New(event.TypeTaskProgress, "coordinator", map[string]any{
			"assignment_id": asg.ID, "progress_pct": progressPct, "message": message,
		}).WithProject(asg.ProjectID).WithTask(asg.TaskID).WithAgent(asg.AgentID)
		c.publish(ctx, evt)
		return nil
	}
}

func (c *Coordinator) completeAssignment(ctx context.Context, assignmentID string) error {
	a, err := c.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return apperr.NotFound("assignment", assignmentID)
	}
	if err := c.registry.UpdateStatus(ctx, a.TaskID, domaintask.StatusInProgress, domaintask.StatusDone); err != nil {
		return apperr.Wrap(apperr.KindInvalidTransition, "transition task to done", err)
	}
	if err := c.leases.Complete(ctx, assignmentID); err != nil {
		return apperr.Internal("complete lease", err)
	}
	if err := c.agents.ReleaseTask(ctx, a.AgentID, a.TaskID); err != nil {
		slog.ErrorContext(ctx, "coordinator: failed to release agent task on completion", "agent_id", a.AgentID, "task_id", a.TaskID, "error", err)
	}

	t, err := c.registry.GetTask(ctx, a.TaskID)
	plannedHours := 0.0
	if err == nil && t.EstimatedHours != nil {
		plannedHours = *t.EstimatedHours
	}
	actualHours := time.Since(a.AssignedAt).Hours()
	if recErr := c.mem.RecordOutcome(ctx, memorysvc.Outcome{
		AgentID:      a.AgentID,
		TaskID:       a.TaskID,
		Labels:       t.Labels,
		PlannedHours: plannedHours,
		ActualHours:  actualHours,
		Result:       memorysvc.ResultSuccess,
	}); recErr != nil {
		slog.ErrorContext(ctx, "coordinator: failed to record completion outcome", "assignment_id", assignmentID, "error", recErr)
	}

	if rebErr := c.deps.Rebuild(ctx, a.ProjectID); rebErr != nil {
		slog.ErrorContext(ctx, "coordinator: failed to rebuild dependency graph after completion", "project_id", a.ProjectID, "error", rebErr)
	}

	evt := event.New(event.TypeTaskCompleted, "coordinator", map[string]any{"assignment_id": assignmentID}).
		WithProject(a.ProjectID).WithTask(a.TaskID).WithAgent(a.AgentID)
	c.publish(ctx, evt)
	return nil
}

// blockAssignment performs the blocked-transition this package drives from
// report_task_progress(status=blocked): the task moves to blocked, its
// Assignment is abandoned, and the episodic outcome store records a
// blocked attempt. report_blocker itself never calls this — see
// ReportBlocker.
func (c *Coordinator) blockAssignment(ctx context.Context, asg domainassignment.Assignment, reason string) error {
	return c.locker.WithLock(ctx, advisoryKey(asg.ProjectID), func(ctx context.Context) error {
		t, err := c.registry.GetTask(ctx, asg.TaskID)
		if err != nil {
			return apperr.NotFound("task", asg.TaskID)
		}
		if err := c.registry.UpdateStatus(ctx, asg.TaskID, t.Status, domaintask.StatusBlocked); err != nil {
			return apperr.Wrap(apperr.KindInvalidTransition, "transition task to blocked", err)
		}

		fresh, err := c.assignments.GetByID(ctx, asg.ID)
		if err != nil {
			fresh = asg
		}
		if tErr := fresh.TransitionTo(domainassignment.StateAbandoned); tErr == nil {
			if err := c.assignments.Update(ctx, fresh); err != nil {
				slog.ErrorContext(ctx, "coordinator: failed to persist abandoned assignment", "assignment_id", fresh.ID, "error", err)
			}
		}
		if err := c.agents.ReleaseTask(ctx, fresh.AgentID, fresh.TaskID); err != nil {
			slog.ErrorContext(ctx, "coordinator: failed to release agent task on blocker", "agent_id", fresh.AgentID, "task_id", fresh.TaskID, "error", err)
		}

		actualHours := time.Since(fresh.AssignedAt).Hours()
		plannedHours := 0.0
		if t.EstimatedHours != nil {
			plannedHours = *t.EstimatedHours
		}
		if recErr := c.mem.RecordOutcome(ctx, memorysvc.Outcome{
			AgentID:         fresh.AgentID,
			TaskID:          fresh.TaskID,
			Labels:          t.Labels,
			PlannedHours:    plannedHours,
			ActualHours:     actualHours,
			Result:          memorysvc.ResultBlocked,
			BlockerCategory: categorizeBlocker(reason),
		}); recErr != nil {
			slog.ErrorContext(ctx, "coordinator: failed to record blocked outcome", "task_id", fresh.TaskID, "error", recErr)
		}

		evt := event.New(event.TypeTaskProgress, "coordinator", map[string]any{
			"assignment_id": fresh.ID, "status": ProgressBlocked, "message": reason,
		}).WithProject(asg.ProjectID).WithTask(fresh.TaskID).WithAgent(fresh.AgentID)
		c.publish(ctx, evt)
		blockedEvt := event.New(event.TypeTaskBlocked, "coordinator", map[string]any{"reason": reason}).
			WithProject(asg.ProjectID).WithTask(fresh.TaskID).WithAgent(fresh.AgentID)
		c.publish(ctx, blockedEvt)
		return nil
	})
}

func categorizeBlocker(reason string) string {
	if reason == "" {
		return "unspecified"
	}
	return "reported"
}

// BlockerReport is the result of report_blocker (spec §4.9/§6).
type BlockerReport struct {
	Suggestions []string `json:"suggestions"`
}

// ReportBlocker is report_blocker (spec §4.9): invokes the LanguageModel
// for unblocking suggestions and persists a Decision describing the
// blocker. It performs NO task or assignment transition — an agent still
// reports progress separately via report_task_progress(status=blocked)
// once it gives up on the task.
func (c *Coordinator) ReportBlocker(ctx context.Context, projectID, taskID, agentID, description string) (BlockerReport, error) {
	t, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return BlockerReport{}, apperr.NotFound("task", taskID)
	}

	d := domaindecision.New(uuid.NewString(), taskID, agentID, "blocker: "+description, nil)
	if _, err := c.decisions.Create(ctx, d); err != nil {
		slog.ErrorContext(ctx, "coordinator: failed to persist blocker decision", "task_id", taskID, "error", err)
	}

	suggestions := c.suggestUnblock(ctx, t, description)

	evt := event.New(event.TypeBlockerReported, "coordinator", map[string]any{
		"description": description, "suggestions": suggestions,
	}).WithProject(projectID).WithTask(taskID).WithAgent(agentID)
	c.publish(ctx, evt)

	return BlockerReport{Suggestions: suggestions}, nil
}

// suggestUnblock asks the LanguageModel for short next steps to unblock
// taskID. With a null model, or an empty or failing completion, it
// degrades to no suggestions (spec §9) rather than failing the call.
func (c *Coordinator) suggestUnblock(ctx context.Context, t domaintask.Task, description string) []string {
	if c.model == nil {
		return []string{}
	}
	resp, err := c.model.Complete(ctx, portllm.CompletionRequest{
		SystemPrompt: "You suggest concrete, short next steps to unblock a stuck engineering task. Reply with one suggestion per line, no numbering or preamble.",
		Prompt:       fmt.Sprintf("Task: %s\n%s\n\nBlocker: %s", t.Name, t.Description, description),
		MaxTokens:    300,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return []string{}
	}
	return splitSuggestions(resp.Text)
}

func splitSuggestions(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "-*• "))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// GetTaskContext is get_task_context (spec §4.9 / §4.6).
func (c *Coordinator) GetTaskContext(ctx context.Context, projectID, taskID string) (contextbuilder.BuildResult, error) {
	t, err := c.registry.GetTask(ctx, taskID)
	if err != nil {
		return contextbuilder.BuildResult{}, apperr.NotFound("task", taskID)
	}
	result, err := c.ctxBuilder.Build(ctx, projectID, t)
	if err != nil {
		return contextbuilder.BuildResult{}, apperr.Internal("build task context", err)
	}
	return result, nil
}

// LogDecision is log_decision (spec §4.9): append-only, propagated to
// direct dependents only (the indirect ones pick it up transitively via
// their own context-builder query at assignment time — OQ2).
func (c *Coordinator) LogDecision(ctx context.Context, projectID, taskID, agentID, text string) (domaindecision.Decision, error) {
	affects := c.deps.DependentsOf(projectID, taskID)
	d := domaindecision.New(uuid.NewString(), taskID, agentID, text, affects)
	created, err := c.decisions.Create(ctx, d)
	if err != nil {
		return domaindecision.Decision{}, apperr.Internal("log decision", err)
	}
	evt := event.New(event.TypeDecisionLogged, "coordinator", map[string]any{"decision_id": created.ID, "affects": affects}).
		WithProject(projectID).WithTask(taskID).WithAgent(agentID)
	c.publish(ctx, evt)
	return created, nil
}

// LogArtifact is log_artifact (spec §4.9): append-only metadata, no
// content storage.
func (c *Coordinator) LogArtifact(ctx context.Context, projectID, taskID, agentID, filename string, artifactType domainartifact.Type, location, description string) (domainartifact.Artifact, error) {
	art := domainartifact.New(uuid.NewString(), taskID, agentID, filename, artifactType, location, description)
	created, err := c.artifacts.Create(ctx, art)
	if err != nil {
		return domainartifact.Artifact{}, apperr.Internal("log artifact", err)
	}
	evt := event.New(event.TypeArtifactLogged, "coordinator", map[string]any{"artifact_id": created.ID, "filename": filename}).
		WithProject(projectID).WithTask(taskID).WithAgent(agentID)
	c.publish(ctx, evt)
	return created, nil
}

// ProjectStatus is the return shape of get_project_status (spec §4.9).
type ProjectStatus struct {
	ProjectID        string         `json:"project_id"`
	TaskCountByStatus map[string]int `json:"task_count_by_status"`
	ActiveAgents     int            `json:"active_agents"`
	StuckAssignments int            `json:"stuck_assignments"`
}

// GetProjectStatus is get_project_status (spec §4.9): a point-in-time
// rollup of task counts by status, active agents, and stuck assignments.
func (c *Coordinator) GetProjectStatus(ctx context.Context, projectID string) (ProjectStatus, error) {
	tasks, err := c.registry.ListTasks(ctx, domaintask.ListFilters{ProjectID: &projectID})
	if err != nil {
		return ProjectStatus{}, apperr.Internal("list tasks", err)
	}
	counts := map[string]int{}
	for _, t := range tasks {
		counts[string(t.Status)]++
	}

	active, err := c.assignments.List(ctx, domainassignment.ListFilters{ProjectID: &projectID})
	if err != nil {
		return ProjectStatus{}, apperr.Internal("list assignments", err)
	}
	activeAgents := map[string]bool{}
	stuck := 0
	for _, a := range active {
		if a.State != domainassignment.StateActive {
			continue
		}
		activeAgents[a.AgentID] = true
		if a.IsStuck(5) {
			stuck++
		}
	}

	return ProjectStatus{
		ProjectID:         projectID,
		TaskCountByStatus: counts,
		ActiveAgents:      len(activeAgents),
		StuckAssignments:  stuck,
	}, nil
}

// CheckBoardHealth is check_board_health (spec §4.9 / §6).
func (c *Coordinator) CheckBoardHealth(ctx context.Context, projectID string) (registry.BoardHealth, error) {
	health, err := c.registry.CheckBoardHealth(ctx, projectID)
	if err != nil {
		return health, apperr.Wrap(apperr.KindExternalFailure, "check board health", err)
	}
	return health, nil
}
