// Package project holds the Project aggregate: board binding and the set
// of task IDs it owns (spec §3). A Project never holds pointers to Task
// or Agent aggregates, only IDs — cross-aggregate references stay opaque.
package project

import "time"

// BoardBinding names the external Kanban board a project is reconciled
// against (spec §5). Provider is the adapter key ("github", "noop", ...).
type BoardBinding struct {
	Provider  string `json:"provider"`
	BoardID   string `json:"board_id"`
	SyncToken string `json:"sync_token,omitempty"`
}

type Project struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	BoardBinding BoardBinding `json:"board_binding"`
	TaskIDs      []string     `json:"tasks"`
	CreatedAt    time.Time    `json:"created_at"`
}

func New(id, name string, binding BoardBinding) Project {
	return Project{
		ID:           id,
		Name:         name,
		BoardBinding: binding,
		TaskIDs:      []string{},
		CreatedAt:    time.Now().UTC(),
	}
}

func (p *Project) AddTask(taskID string) {
	for _, id := range p.TaskIDs {
		if id == taskID {
			return
		}
	}
	p.TaskIDs = append(p.TaskIDs, taskID)
}

func (p *Project) RemoveTask(taskID string) {
	out := p.TaskIDs[:0]
	for _, id := range p.TaskIDs {
		if id != taskID {
			out = append(out, id)
		}
	}
	p.TaskIDs = out
}

func (p *Project) HasTask(taskID string) bool {
	for _, id := range p.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}
