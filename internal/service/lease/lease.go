// Package lease implements the Lease Manager (spec §4.8): adaptive lease
// duration, renewal/warning/expiry/grace-period/stuck-detection timers.
// Grounded on the teacher's per-agent grace-period timer map
// (internal/wire's startReaper), generalized to key by Assignment ID
// instead of Agent ID, driven through an injectable clock so lease
// expiry can be observed deterministically in tests (spec §8 scenario 2).
package lease

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
	"github.com/marcusai/marcus/internal/domain/event"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	"github.com/marcusai/marcus/internal/clock"
	"github.com/marcusai/marcus/internal/metrics"
	portagent "github.com/marcusai/marcus/internal/port/agent"
	portassignment "github.com/marcusai/marcus/internal/port/assignment"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	porttask "github.com/marcusai/marcus/internal/port/task"
)

var priorityMultiplier = map[domaintask.Priority]float64{
	domaintask.PriorityCritical: 0.5,
	domaintask.PriorityHigh:     0.75,
	domaintask.PriorityMedium:   1.0,
	domaintask.PriorityLow:      1.5,
}

var complexityMultiplier = map[string]float64{
	"simple":   0.5,
	"complex":  1.5,
	"research": 2.0,
	"epic":     3.0,
}

// Config is the task_lease.* configuration surface (spec §6).
type Config struct {
	DefaultHours           float64
	MinHours               float64
	MaxHours               float64
	WarningHours           float64
	GracePeriodMinutes     float64
	RenewalDecayFactor     float64
	StuckThresholdRenewals int
}

type Manager struct {
	cfg         Config
	clk         clock.Clock
	assignments portassignment.Repository
	tasks       porttask.Repository
	agents      portagent.Repository
	profiles    portagent.ProfileRepository
	bus         portbus.EventBus

	mu     sync.Mutex
	timers map[string]clock.Timer // assignment_id -> expiry timer
}

func NewManager(cfg Config, clk clock.Clock, assignments portassignment.Repository, tasks porttask.Repository, agents portagent.Repository, profiles portagent.ProfileRepository, bus portbus.EventBus) *Manager {
	return &Manager{
		cfg:         cfg,
		clk:         clk,
		assignments: assignments,
		tasks:       tasks,
		agents:      agents,
		profiles:    profiles,
		bus:         bus,
		timers:      map[string]clock.Timer{},
	}
}

// Duration computes the adaptive lease duration for a task (spec §4.8):
// default * priority_multiplier * complexity_multiplier, clipped to
// [min_lease_hours, max_lease_hours].
func (m *Manager) Duration(t domaintask.Task) time.Duration {
	mult := priorityMultiplier[t.Priority]
	if mult == 0 {
		mult = 1.0
	}
	complexity := 1.0
	for _, l := range t.Labels {
		if cm, ok := complexityMultiplier[l]; ok {
			complexity = cm
			break
		}
	}
	hours := m.cfg.DefaultHours * mult * complexity
	if hours < m.cfg.MinHours {
		hours = m.cfg.MinHours
	}
	if hours > m.cfg.MaxHours {
		hours = m.cfg.MaxHours
	}
	return time.Duration(hours * float64(time.Hour))
}

// Start creates the lease timers for a newly-created Assignment:
// a warning timer (warning_hours before expiry) and an expiry timer.
func (m *Manager) Start(ctx context.Context, a domainassignment.Assignment, leaseDuration time.Duration) {
	m.scheduleExpiry(ctx, a.ID, leaseDuration)

	warningAt := leaseDuration - time.Duration(m.cfg.WarningHours*float64(time.Hour))
	if warningAt > 0 {
		m.clk.AfterFunc(warningAt, func() {
			m.emitWarning(ctx, a.ID)
		})
	}
}

func (m *Manager) scheduleExpiry(ctx context.Context, assignmentID string, d time.Duration) {
	t := m.clk.AfterFunc(d, func() {
		m.onExpiry(context.Background(), assignmentID)
	})
	m.mu.Lock()
	if old, ok := m.timers[assignmentID]; ok {
		old.Stop()
	}
	m.timers[assignmentID] = t
	m.mu.Unlock()
}

func (m *Manager) emitWarning(ctx context.Context, assignmentID string) {
	a, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil || a.State != domainassignment.StateActive {
		return
	}
	evt := event.New(event.TypeLeaseWarning, "lease_manager", map[string]any{"assignment_id": assignmentID}).
		WithProject(a.ProjectID).WithTask(a.TaskID).WithAgent(a.AgentID)
	if err := m.bus.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to publish lease_warning", "assignment_id", assignmentID, "error", err)
	}
}

// Renew resets the timer on strictly-increasing progress, shrinking the
// next interval by renewal_decay_factor toward min_lease_hours (spec §4.8).
func (m *Manager) Renew(ctx context.Context, assignmentID string, progressPct int) error {
	a, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("renew lease: get assignment: %w", err)
	}
	if progressPct <= a.LastProgressPct {
		return fmt.Errorf("renew lease: progress %d is not strictly increasing over %d", progressPct, a.LastProgressPct)
	}

	now := m.clk.Now()
	currentInterval := a.LeaseExpiresAt.Sub(a.LastProgressAt)
	nextInterval := m.decayToward(currentInterval, m.cfg.RenewalDecayFactor, m.cfg.MinHours)

	a.Renew(now, nextInterval, progressPct)
	if err := m.assignments.Update(ctx, a); err != nil {
		return fmt.Errorf("renew lease: update assignment: %w", err)
	}

	m.scheduleExpiry(ctx, assignmentID, nextInterval)

	if a.IsStuck(m.cfg.StuckThresholdRenewals) {
		m.publishStuck(ctx, a)
	}

	return nil
}

func (m *Manager) decayToward(current time.Duration, factor, minHours float64) time.Duration {
	minDur := time.Duration(minHours * float64(time.Hour))
	shrunk := time.Duration(float64(current) * factor)
	if shrunk < minDur {
		return minDur
	}
	return shrunk
}

func (m *Manager) publishStuck(ctx context.Context, a domainassignment.Assignment) {
	metrics.TasksStuck.WithLabelValues(a.ProjectID).Inc()
	evt := event.New(event.TypeTaskStuck, "lease_manager", map[string]any{"assignment_id": a.ID, "renewals": a.Renewals}).
		WithProject(a.ProjectID).WithTask(a.TaskID).WithAgent(a.AgentID)
	if err := m.bus.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to publish task_stuck", "assignment_id", a.ID, "error", err)
	}
}

// onExpiry applies the grace period, then — if still no progress —
// expires the assignment: task returns to todo, a lease_expired event is
// published, and the agent's reliability score decays (spec §4.8). No
// event named task_recycled is published.
func (m *Manager) onExpiry(ctx context.Context, assignmentID string) {
	a, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		slog.ErrorContext(ctx, "lease manager: expiry lookup failed", "assignment_id", assignmentID, "error", err)
		return
	}
	if a.State != domainassignment.StateActive {
		return
	}

	grace := time.Duration(m.cfg.GracePeriodMinutes * float64(time.Minute))
	progressAtExpiry := a.LastProgressPct
	m.clk.AfterFunc(grace, func() {
		m.afterGrace(context.Background(), assignmentID, progressAtExpiry)
	})
}

func (m *Manager) afterGrace(ctx context.Context, assignmentID string, progressAtExpiry int) {
	a, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil || a.State != domainassignment.StateActive {
		return
	}
	if a.LastProgressPct > progressAtExpiry {
		return // progress was made during grace; renewal already rescheduled the timer
	}

	if err := a.TransitionTo(domainassignment.StateExpired); err != nil {
		slog.ErrorContext(ctx, "lease manager: invalid expiry transition", "assignment_id", assignmentID, "error", err)
		return
	}
	if err := m.assignments.Update(ctx, a); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to persist expiry", "assignment_id", assignmentID, "error", err)
		return
	}

	if err := m.tasks.UpdateStatus(ctx, a.TaskID, domaintask.StatusInProgress, domaintask.StatusTodo); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to reset task to todo", "task_id", a.TaskID, "error", err)
	}
	if err := m.agents.ReleaseTask(ctx, a.AgentID, a.TaskID); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to release agent task", "agent_id", a.AgentID, "error", err)
	}

	profile, err := m.profiles.Get(ctx, a.AgentID)
	if err != nil {
		profile = domainagent.NewProfile(a.AgentID)
	}
	profile.DecayOnExpiry()
	if err := m.profiles.Put(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to persist reliability decay", "agent_id", a.AgentID, "error", err)
	}

	metrics.LeasesExpired.WithLabelValues(a.ProjectID).Inc()
	evt := event.New(event.TypeLeaseExpired, "lease_manager", map[string]any{"assignment_id": a.ID, "previous_assignment_id": a.ID}).
		WithProject(a.ProjectID).WithTask(a.TaskID).WithAgent(a.AgentID)
	if err := m.bus.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to publish lease_expired", "assignment_id", a.ID, "error", err)
	}
}

// Complete terminates the lease on explicit 100%-progress completion
// (spec §4.8): assignment -> completed, reliability bump, task_completed
// published. It does not change the task's status; the caller moves the
// task to done.
func (m *Manager) Complete(ctx context.Context, assignmentID string) error {
	a, err := m.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("complete lease: get assignment: %w", err)
	}

	m.mu.Lock()
	if t, ok := m.timers[assignmentID]; ok {
		t.Stop()
		delete(m.timers, assignmentID)
	}
	m.mu.Unlock()

	if err := a.TransitionTo(domainassignment.StateCompleted); err != nil {
		return fmt.Errorf("complete lease: %w", err)
	}
	if err := m.assignments.Update(ctx, a); err != nil {
		return fmt.Errorf("complete lease: update assignment: %w", err)
	}

	profile, err := m.profiles.Get(ctx, a.AgentID)
	if err != nil {
		profile = domainagent.NewProfile(a.AgentID)
	}
	profile.BumpOnCompletion()
	if err := m.profiles.Put(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to persist reliability bump", "agent_id", a.AgentID, "error", err)
	}

	evt := event.New(event.TypeTaskCompleted, "lease_manager", map[string]any{"assignment_id": a.ID}).
		WithProject(a.ProjectID).WithTask(a.TaskID).WithAgent(a.AgentID)
	if err := m.bus.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "lease manager: failed to publish task_completed", "assignment_id", a.ID, "error", err)
	}
	return nil
}
