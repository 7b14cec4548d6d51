package mcp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	mcptransport "github.com/marcusai/marcus/internal/transport/mcp"
)

func TestNotifyAgentOfflineNoOp(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()

	err := reg.NotifyAgent(context.Background(), "agent-1", map[string]string{"event": "test"})
	assert.NoError(t, err, "NotifyAgent for a disconnected agent must be a no-op")
}

func TestNotifyProjectNoSessionsNoOp(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()

	err := reg.NotifyProject(context.Background(), "project-1", map[string]string{"event": "main_updated"})
	assert.NoError(t, err, "NotifyProject with no sessions must be a no-op")
}

func TestRegisterAndUnregister(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()

	reg.Register("session-1", "agent-1", "project-1")
	assert.True(t, reg.IsConnected("agent-1"))

	agentID, ok := reg.Unregister("session-1")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", agentID)
	assert.False(t, reg.IsConnected("agent-1"))
}

func TestRegisterReplacesPriorSessionForSameAgent(t *testing.T) {
	reg := mcptransport.NewSessionRegistry()

	reg.Register("session-1", "agent-1", "project-1")
	reg.Register("session-2", "agent-1", "project-1")

	_, ok := reg.Unregister("session-1")
	assert.False(t, ok, "the first session was displaced and should no longer be tracked")

	agentID, ok := reg.Unregister("session-2")
	assert.True(t, ok)
	assert.Equal(t, "agent-1", agentID)
}
