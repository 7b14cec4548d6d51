// Package registry implements the Task Model & Project Registry (spec
// §4.3): task identity, per-project task sets, active-project selection,
// and board reconciliation (spec §5, §12.2).
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcusai/marcus/internal/apperr"
	"github.com/marcusai/marcus/internal/domain/event"
	domainproject "github.com/marcusai/marcus/internal/domain/project"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	"github.com/marcusai/marcus/internal/metrics"
	"github.com/marcusai/marcus/internal/port/board"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
	portproject "github.com/marcusai/marcus/internal/port/project"
	porttask "github.com/marcusai/marcus/internal/port/task"
)

type Service struct {
	tasks    porttask.Repository
	projects portproject.Repository
	bus      portbus.EventBus
	boards   map[string]board.Provider // provider key -> adapter

	mu            sync.Mutex
	activeProject map[string]string // session/client key -> project_id
}

func NewService(tasks porttask.Repository, projects portproject.Repository, bus portbus.EventBus, boards map[string]board.Provider) *Service {
	return &Service{
		tasks:         tasks,
		projects:      projects,
		bus:           bus,
		boards:        boards,
		activeProject: map[string]string{},
	}
}

func (s *Service) RegisterProject(ctx context.Context, p domainproject.Project) (domainproject.Project, error) {
	created, err := s.projects.Create(ctx, p)
	if err != nil {
		return domainproject.Project{}, fmt.Errorf("register project: %w", err)
	}
	return created, nil
}

func (s *Service) RemoveProject(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove project: %w", err)
	}
	s.mu.Lock()
	for k, v := range s.activeProject {
		if v == id {
			delete(s.activeProject, k)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) SelectActiveProject(client, projectID string) {
	s.mu.Lock()
	s.activeProject[client] = projectID
	s.mu.Unlock()
}

func (s *Service) ActiveProject(client string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.activeProject[client]
	return id, ok
}

func (s *Service) GetProject(ctx context.Context, id string) (domainproject.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return domainproject.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (domaintask.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	tasks, err := s.tasks.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// AddTasks registers the given tasks against a project, used after planning.
func (s *Service) AddTasks(ctx context.Context, projectID string, tasks []domaintask.Task) ([]domaintask.Task, error) {
	created := make([]domaintask.Task, 0, len(tasks))
	for _, t := range tasks {
		t.ProjectID = projectID
		out, err := s.tasks.Create(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("add task %s: %w", t.ID, err)
		}
		created = append(created, out)

		evt := event.New(event.TypeTaskCreated, "registry", map[string]any{"task_id": out.ID}).
			WithProject(projectID).WithTask(out.ID)
		if err := s.bus.Publish(ctx, evt); err != nil {
			slog.ErrorContext(ctx, "failed to publish TaskCreated event", "task_id", out.ID, "error", err)
		}
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err == nil {
		for _, t := range created {
			p.AddTask(t.ID)
		}
		if err := s.projects.Update(ctx, p); err != nil {
			slog.ErrorContext(ctx, "failed to update project task set", "project_id", projectID, "error", err)
		}
	}

	return created, nil
}

// UpdateStatus validates and applies a task status transition (I2/I3),
// rejecting with *domaintask.ErrInvalidTransition otherwise.
func (s *Service) UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error {
	if err := s.tasks.UpdateStatus(ctx, id, from, to); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// ReconcileWithBoard pulls the board's task list for a project and merges
// it with local state: the board wins for task existence/title/labels,
// local wins for status of any task currently under an active Assignment
// (spec §5, §12.2). activeTaskIDs names tasks with a live Assignment.
func (s *Service) ReconcileWithBoard(ctx context.Context, projectID string, activeTaskIDs map[string]bool) error {
	start := time.Now()
	defer func() { metrics.BoardReconcileDuration.Observe(time.Since(start).Seconds()) }()

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("reconcile: get project: %w", err)
	}
	provider, ok := s.boards[p.BoardBinding.Provider]
	if !ok {
		return nil // no board bound, nothing to reconcile
	}

	boardTasks, err := provider.ListTasks(ctx, p.BoardBinding.BoardID)
	if err != nil {
		return fmt.Errorf("reconcile: list board tasks: %w", err)
	}

	local, err := s.tasks.List(ctx, domaintask.ListFilters{ProjectID: &projectID})
	if err != nil {
		return fmt.Errorf("reconcile: list local tasks: %w", err)
	}
	byBoardRef := make(map[string]domaintask.Task, len(local))
	for _, t := range local {
		if t.BoardRef != "" {
			byBoardRef[t.BoardRef] = t
		}
	}

	for _, bt := range boardTasks {
		existing, found := byBoardRef[bt.BoardID]
		if !found {
			t := domaintask.New(bt.BoardID, projectID, bt.Title, "", domaintask.PriorityMedium, nil)
			t.BoardRef = bt.BoardID
			t.Labels = bt.Labels
			if _, err := s.tasks.Create(ctx, t); err != nil {
				slog.ErrorContext(ctx, "reconcile: failed to create task from board", "board_id", bt.BoardID, "error", err)
			}
			continue
		}

		existing.Name = bt.Title
		existing.Labels = bt.Labels
		if !activeTaskIDs[existing.ID] {
			if boardStatus := domaintask.Status(bt.Status); boardStatus != "" && boardStatus != existing.Status {
				existing.Status = boardStatus
			}
		}
		if err := s.tasks.Update(ctx, existing); err != nil {
			slog.ErrorContext(ctx, "reconcile: failed to update task from board", "task_id", existing.ID, "error", err)
		}
	}

	return nil
}

// BoardHealth is the result of a single health probe against a project's
// bound board provider (spec §6's check_board_health operation).
type BoardHealth struct {
	Bound     bool          `json:"bound"`
	Provider  string        `json:"provider,omitempty"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
}

// CheckBoardHealth pings the project's bound board provider with the
// cheapest read it exposes (ListProjects) and reports round-trip latency.
// A project with no board binding is reported as unbound, not an error.
func (s *Service) CheckBoardHealth(ctx context.Context, projectID string) (BoardHealth, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return BoardHealth{}, fmt.Errorf("check board health: get project: %w", err)
	}
	if p.BoardBinding.Provider == "" {
		return BoardHealth{Bound: false}, nil
	}
	provider, ok := s.boards[p.BoardBinding.Provider]
	if !ok {
		return BoardHealth{Bound: true, Provider: p.BoardBinding.Provider, Reachable: false}, nil
	}

	start := time.Now()
	_, err = provider.ListProjects(ctx)
	latency := time.Since(start)
	if err != nil {
		evt := event.New(event.TypeKanbanError, "registry", map[string]any{"error": err.Error()}).WithProject(projectID)
		if pubErr := s.bus.Publish(ctx, evt); pubErr != nil {
			slog.ErrorContext(ctx, "failed to publish kanban_error event", "project_id", projectID, "error", pubErr)
		}
		return BoardHealth{Bound: true, Provider: p.BoardBinding.Provider, Reachable: false, Latency: latency},
			apperr.ExternalFailure("board provider unreachable", err)
	}
	return BoardHealth{Bound: true, Provider: p.BoardBinding.Provider, Reachable: true, Latency: latency}, nil
}
