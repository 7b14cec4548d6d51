// Package noop implements board.Provider as a no-op: every operation
// succeeds trivially with no external board. Used when a project has no
// board binding configured, or in tests, so callers never need a nil
// check on the provider itself.
package noop

import (
	"context"

	"github.com/marcusai/marcus/internal/port/board"
)

type Provider struct{}

func New() *Provider { return &Provider{} }

func (Provider) ListTasks(ctx context.Context, boardID string) ([]board.Task, error) {
	return nil, nil
}

func (Provider) CreateTask(ctx context.Context, boardID string, t board.Task) (board.Task, error) {
	return t, nil
}

func (Provider) UpdateTaskStatus(ctx context.Context, boardID, taskBoardID, status string) error {
	return nil
}

func (Provider) AddComment(ctx context.Context, boardID, taskBoardID, comment string) error {
	return nil
}

func (Provider) AddChecklist(ctx context.Context, boardID, taskBoardID string, items []string) error {
	return nil
}

func (Provider) ListProjects(ctx context.Context) ([]board.Project, error) {
	return nil, nil
}

var _ board.Provider = (*Provider)(nil)
