package agent

import (
	"context"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
)

// AvailabilityReader is the narrow interface the assignment engine needs —
// it depends only on this, not the full Repository.
type AvailabilityReader interface {
	GetAvailable(ctx context.Context, projectID string) ([]domainagent.Agent, error)
}
