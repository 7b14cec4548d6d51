// Package project defines the project repository port.
package project

import (
	"context"

	domainproject "github.com/marcusai/marcus/internal/domain/project"
)

// Repository manages Project aggregates.
type Repository interface {
	Create(ctx context.Context, p domainproject.Project) (domainproject.Project, error)
	GetByID(ctx context.Context, id string) (domainproject.Project, error)
	List(ctx context.Context) ([]domainproject.Project, error)
	Update(ctx context.Context, p domainproject.Project) error
	Delete(ctx context.Context, id string) error
}
