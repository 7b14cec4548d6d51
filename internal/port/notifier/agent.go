package notifier

import "context"

// AgentNotifier pushes an event to a specific agent's active session.
type AgentNotifier interface {
	NotifyAgent(ctx context.Context, agentID string, event any) error
}
