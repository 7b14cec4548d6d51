// Package assignment defines the assignment repository port.
package assignment

import (
	"context"

	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
)

// Repository manages Assignment aggregates.
type Repository interface {
	Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error)
	GetByID(ctx context.Context, id string) (domainassignment.Assignment, error)
	GetActiveForTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error)
	List(ctx context.Context, filters domainassignment.ListFilters) ([]domainassignment.Assignment, error)
	Update(ctx context.Context, a domainassignment.Assignment) error
}
