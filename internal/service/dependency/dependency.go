// Package dependency implements the Dependency Graph service (spec §4.4):
// explicit + inferred edge overlays composed per project, cycle policy,
// and the dependents/predecessors/assignable/cascade queries.
package dependency

import (
	"context"
	"fmt"
	"sync"

	domaindep "github.com/marcusai/marcus/internal/domain/dependency"
	domaintask "github.com/marcusai/marcus/internal/domain/task"
	"github.com/marcusai/marcus/internal/apperr"
	porttask "github.com/marcusai/marcus/internal/port/task"
)

type Service struct {
	tasks porttask.Repository

	mu     sync.Mutex
	graphs map[string]*domaindep.Graph // project_id -> graph

	propagationFactor   float64
	confidenceThreshold float64
}

func NewService(tasks porttask.Repository, propagationFactor, confidenceThreshold float64) *Service {
	if propagationFactor <= 0 {
		propagationFactor = 0.8
	}
	return &Service{
		tasks:               tasks,
		graphs:              map[string]*domaindep.Graph{},
		propagationFactor:   propagationFactor,
		confidenceThreshold: confidenceThreshold,
	}
}

func (s *Service) graphFor(projectID string) *domaindep.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[projectID]
	if !ok {
		g = domaindep.New(s.confidenceThreshold)
		s.graphs[projectID] = g
	}
	return g
}

// Rebuild recomputes the effective graph for a project from current task
// state: explicit edges from each task's Dependencies field, then logical
// edges inferred idempotently from the ordered rule classes (spec §4.4).
// Applied whenever the task set changes.
func (s *Service) Rebuild(ctx context.Context, projectID string) error {
	tasks, err := s.tasks.List(ctx, domaintask.ListFilters{ProjectID: &projectID})
	if err != nil {
		return fmt.Errorf("rebuild dependency graph: %w", err)
	}

	g := domaindep.New(s.confidenceThreshold)
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			_ = g.AddExplicit(dep, t.ID) // planner-authored edges assumed pre-validated; cycles already rejected at insertion time
		}
	}

	for _, from := range tasks {
		for _, to := range tasks {
			if from.ID == to.ID {
				continue
			}
			if confidence, ok := domaindep.InferEdge(from.Keywords(), to.Keywords()); ok {
				g.AddInferred(from.ID, to.ID, confidence)
			}
		}
	}

	s.mu.Lock()
	s.graphs[projectID] = g
	s.mu.Unlock()
	return nil
}

// AddExplicitEdge inserts a planner/board-authored edge, rejecting with a
// Conflict apperr if it would create a cycle (spec I1).
func (s *Service) AddExplicitEdge(projectID, from, to string) error {
	g := s.graphFor(projectID)
	if err := g.AddExplicit(from, to); err != nil {
		return apperr.Conflict(err.Error())
	}
	return nil
}

func (s *Service) DependentsOf(projectID, taskID string) []string {
	return s.graphFor(projectID).DependentsOf(taskID)
}

func (s *Service) PredecessorsOf(projectID, taskID string) []string {
	return s.graphFor(projectID).PredecessorsOf(taskID)
}

func (s *Service) IsAssignable(projectID, taskID string, doneSet map[string]bool) bool {
	return s.graphFor(projectID).IsAssignable(taskID, doneSet)
}

func (s *Service) Cascade(projectID, taskID string, delayHours float64) []domaindep.CascadeEntry {
	return s.graphFor(projectID).Cascade(taskID, delayHours, s.propagationFactor)
}

// MaxDependents returns the largest direct-dependent count among the
// given tasks, used to normalise unblocking_value into [0,1] (spec §4.7).
func (s *Service) MaxDependents(projectID string, taskIDs []string) int {
	max := 0
	for _, id := range taskIDs {
		if n := len(s.DependentsOf(projectID, id)); n > max {
			max = n
		}
	}
	return max
}
