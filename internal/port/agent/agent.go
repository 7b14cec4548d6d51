// Package agent defines the agent repository port.
package agent

import (
	"context"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
)

// Repository manages Agent aggregates.
type Repository interface {
	Create(ctx context.Context, a domainagent.Agent) (domainagent.Agent, error)
	GetByID(ctx context.Context, id string) (domainagent.Agent, error)
	List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error)
	Update(ctx context.Context, a domainagent.Agent) error
	Delete(ctx context.Context, id string) error

	UpdateStatus(ctx context.Context, id string, status domainagent.Status) error
	AssignTask(ctx context.Context, agentID, taskID string) error
	ReleaseTask(ctx context.Context, agentID, taskID string) error
}

// ProfileRepository manages the derived AgentProfile records (spec §3).
type ProfileRepository interface {
	Get(ctx context.Context, agentID string) (domainagent.Profile, error)
	Put(ctx context.Context, profile domainagent.Profile) error
}
