// Package board defines the BoardProvider port (spec §5): the external
// Kanban board collaborator. The core assumes eventual consistency of
// board writes — the caller retries transient failures per spec §6.
package board

import "context"

// Task is the board's native representation of a task, used only for
// reconciliation (board wins for existence/title/labels).
type Task struct {
	BoardID string
	Title   string
	Labels  []string
	Status  string
}

type Project struct {
	BoardID string
	Name    string
}

// Provider is implemented by board adapters (GitHub Projects, a no-op
// stub, or any other Kanban backend).
type Provider interface {
	ListTasks(ctx context.Context, boardID string) ([]Task, error)
	CreateTask(ctx context.Context, boardID string, t Task) (Task, error)
	UpdateTaskStatus(ctx context.Context, boardID, taskBoardID, status string) error
	AddComment(ctx context.Context, boardID, taskBoardID, comment string) error
	AddChecklist(ctx context.Context, boardID, taskBoardID string, items []string) error
	ListProjects(ctx context.Context) ([]Project, error)
}
