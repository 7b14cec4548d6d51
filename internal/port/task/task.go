// Package task defines the task repository port.
package task

import (
	"context"

	domaintask "github.com/marcusai/marcus/internal/domain/task"
)

// Repository manages Task aggregates, keyed by (project_id, task_id).
type Repository interface {
	Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error)
	GetByID(ctx context.Context, id string) (domaintask.Task, error)
	List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error)
	Update(ctx context.Context, t domaintask.Task) error
	Delete(ctx context.Context, id string) error

	// UpdateStatus performs a compare-and-set transition, rejecting with
	// *domaintask.ErrInvalidTransition if from does not match the stored
	// status or the transition itself is invalid.
	UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error
}
