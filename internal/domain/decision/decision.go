// Package decision holds the Decision aggregate (spec §3): an append-only
// note an agent leaves against a task, optionally propagated to the
// tasks it affects. Grounded on the message/comment shape of append-only
// records elsewhere in the corpus (constructor stamps ID + timestamp,
// never mutated after creation).
package decision

import "time"

type Decision struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	AgentID      string    `json:"agent_id"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	AffectsTasks []string  `json:"affects_tasks"`
}

func New(id, taskID, agentID, text string, affectsTasks []string) Decision {
	if affectsTasks == nil {
		affectsTasks = []string{}
	}
	return Decision{
		ID:           id,
		TaskID:       taskID,
		AgentID:      agentID,
		Text:         text,
		CreatedAt:    time.Now().UTC(),
		AffectsTasks: affectsTasks,
	}
}

type ListFilters struct {
	TaskID  *string
	AgentID *string
}
