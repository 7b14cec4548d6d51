// Package artifact defines the append-only artifact repository port.
package artifact

import (
	"context"

	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
)

type Repository interface {
	Create(ctx context.Context, a domainartifact.Artifact) (domainartifact.Artifact, error)
	List(ctx context.Context, filters domainartifact.ListFilters) ([]domainartifact.Artifact, error)
}
