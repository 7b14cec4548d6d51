// Package conversationlog defines the append-only conversation log port
// (spec §4.2): the source of truth for "what happened on this project",
// line-delimited JSON, rotated daily.
package conversationlog

import (
	"context"
	"time"
)

// Record is one line of the conversation log.
type Record struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	ProjectID string         `json:"project_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Data      map[string]any `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Log is the append-only, daily-rotated conversation log.
type Log interface {
	Append(ctx context.Context, r Record) error
	// Replay reads back every record across all rotated files, oldest
	// first, for state reconstruction (spec P6).
	Replay(ctx context.Context) ([]Record, error)
}
