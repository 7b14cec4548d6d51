// Package task implements port/task.Repository against Postgres.
// Grounded on the teacher's postgres/task/task.go (query-build-with-
// optional-filters List, scanTasks row helper, CAS UpdateStatus),
// adapted to Marcus's string IDs and labels/dependencies array columns
// instead of the router's assigned-agent/branch/PR coder-pipeline
// fields.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaintask "github.com/marcusai/marcus/internal/domain/task"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, project_id, name, description, labels, priority, status,
	dependencies, estimated_hours, board_ref, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	query := `
		INSERT INTO tasks (` + selectColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING ` + selectColumns

	var created domaintask.Task
	err := r.pool.QueryRow(ctx, query,
		t.ID, t.ProjectID, t.Name, t.Description, t.Labels, string(t.Priority), string(t.Status),
		t.Dependencies, t.EstimatedHours, t.BoardRef, t.CreatedAt, t.UpdatedAt,
	).Scan(scanArgs(&created)...)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domaintask.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks WHERE id = $1`
	var t domaintask.Task
	err := r.pool.QueryRow(ctx, query, id).Scan(scanArgs(&t)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaintask.Task{}, fmt.Errorf("task %s not found", id)
		}
		return domaintask.Task{}, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

func (r *Repository) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filters.ProjectID != nil {
		query += fmt.Sprintf(" AND project_id = $%d", argIdx)
		args = append(args, *filters.ProjectID)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*filters.Status))
		argIdx++
	}

	query += " ORDER BY created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *Repository) Update(ctx context.Context, t domaintask.Task) error {
	query := `
		UPDATE tasks SET
			name = $2, description = $3, labels = $4, priority = $5, status = $6,
			dependencies = $7, estimated_hours = $8, board_ref = $9, updated_at = $10
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		t.ID, t.Name, t.Description, t.Labels, string(t.Priority), string(t.Status),
		t.Dependencies, t.EstimatedHours, t.BoardRef, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found", t.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// UpdateStatus performs the compare-and-set transition (spec I2/I3):
// the WHERE clause pins the expected current status, so a concurrent
// writer's transition never silently overwrites another's.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domaintask.Status) error {
	if !from.CanTransitionTo(to) {
		return &domaintask.ErrInvalidTransition{From: from, To: to}
	}
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), now, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s status CAS failed: expected status %s", id, from)
	}
	return nil
}

func scanArgs(t *domaintask.Task) []interface{} {
	return []interface{}{
		&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.Labels, &t.Priority, &t.Status,
		&t.Dependencies, &t.EstimatedHours, &t.BoardRef, &t.CreatedAt, &t.UpdatedAt,
	}
}

func scanTasks(rows pgx.Rows) ([]domaintask.Task, error) {
	var tasks []domaintask.Task
	for rows.Next() {
		var t domaintask.Task
		if err := rows.Scan(scanArgs(&t)...); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
