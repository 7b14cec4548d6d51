// Package event holds the Event envelope published on the bus and
// appended to the conversation log (spec §4.1, §4.2). Event carries
// identifiers and a data payload, never full aggregate state — subscribers
// that need current state re-fetch it from the owning repository.
package event

import (
	"fmt"
	"sync/atomic"
	"time"
)

type Type string

const (
	TypeTaskCreated      Type = "task_created"
	TypeTaskAssigned     Type = "task_assigned"
	TypeTaskProgress     Type = "task_progress"
	TypeTaskCompleted    Type = "task_completed"
	TypeTaskBlocked      Type = "task_blocked"
	TypeBlockerReported  Type = "blocker_reported"
	TypeAgentRegistered  Type = "agent_registered"
	TypeAgentOnline      Type = "agent_online"
	TypeAgentOffline     Type = "agent_offline"
	TypeDecisionLogged   Type = "decision_logged"
	TypeArtifactLogged   Type = "artifact_logged"
	TypeLeaseWarning     Type = "lease_warning"
	TypeLeaseExpired     Type = "lease_expired"
	TypeTaskStuck        Type = "task_stuck"
	TypeKanbanError      Type = "kanban_error"
	TypeEventNotPersisted Type = "evt_not_persisted"
	TypeCoreInvariantViolation Type = "core_invariant_violation"
	TypeSystemShutdown   Type = "system_shutdown"
)

// Wildcard is the subscription type that matches every event (spec §4.1).
const Wildcard Type = "*"

// Event is the envelope carried on the bus and persisted to the
// conversation log; both records share EventID (spec I5).
type Event struct {
	EventID   string         `json:"event_id"`
	Type      Type           `json:"event_type"`
	Source    string         `json:"source"`
	ProjectID string         `json:"project_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	// seq is the monotonic cross-publisher ordering counter (spec §4.1).
	seq uint64
}

var sequence uint64

// New mints an event with a process-wide monotonic sequence number baked
// into its ID, so IDs sort in publish order even across publishers.
func New(eventType Type, source string, data map[string]any) Event {
	n := atomic.AddUint64(&sequence, 1)
	now := time.Now().UTC()
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		EventID:   fmt.Sprintf("evt_%d_%d", n, now.UnixNano()),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: now,
		seq:       n,
	}
}

func (e Event) Seq() uint64 { return e.seq }

func (e Event) WithProject(projectID string) Event {
	e.ProjectID = projectID
	return e
}

func (e Event) WithTask(taskID string) Event {
	e.TaskID = taskID
	return e
}

func (e Event) WithAgent(agentID string) Event {
	e.AgentID = agentID
	return e
}

func (e Event) WithMetadata(meta map[string]any) Event {
	e.Metadata = meta
	return e
}

// Filter narrows history()/list queries (spec §4.1).
type Filter struct {
	Type      *Type
	ProjectID *string
	TaskID    *string
	AgentID   *string
}

func (f Filter) Matches(e Event) bool {
	if f.Type != nil && *f.Type != e.Type {
		return false
	}
	if f.ProjectID != nil && *f.ProjectID != e.ProjectID {
		return false
	}
	if f.TaskID != nil && *f.TaskID != e.TaskID {
		return false
	}
	if f.AgentID != nil && *f.AgentID != e.AgentID {
		return false
	}
	return true
}
