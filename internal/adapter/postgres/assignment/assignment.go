// Package assignment implements port/assignment.Repository against
// Postgres. Grounded on the teacher's postgres/task/task.go CAS-update
// shape, applied here to the Assignment aggregate the router folds into
// Task fields instead of modeling separately (see DESIGN.md's note on
// why Marcus splits Assignment out).
package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainassignment "github.com/marcusai/marcus/internal/domain/assignment"
)

const assignmentColumns = `id, task_id, agent_id, project_id, assigned_at, lease_expires_at,
	renewals, last_progress_at, last_progress_pct, state, previous_assignment_id`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanArgs(a *domainassignment.Assignment) []interface{} {
	return []interface{}{
		&a.ID, &a.TaskID, &a.AgentID, &a.ProjectID, &a.AssignedAt, &a.LeaseExpiresAt,
		&a.Renewals, &a.LastProgressAt, &a.LastProgressPct, &a.State, &a.PreviousAssignmentID,
	}
}

func (r *Repository) Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error) {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING ` + assignmentColumns
	var created domainassignment.Assignment
	err := r.pool.QueryRow(ctx, query,
		a.ID, a.TaskID, a.AgentID, a.ProjectID, a.AssignedAt, a.LeaseExpiresAt,
		a.Renewals, a.LastProgressAt, a.LastProgressPct, string(a.State), nullableString(a.PreviousAssignmentID),
	).Scan(scanArgs(&created)...)
	if err != nil {
		return domainassignment.Assignment{}, fmt.Errorf("inserting assignment: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domainassignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var a domainassignment.Assignment
	err := r.pool.QueryRow(ctx, query, id).Scan(scanArgs(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainassignment.Assignment{}, fmt.Errorf("assignment %s not found", id)
		}
		return domainassignment.Assignment{}, fmt.Errorf("querying assignment: %w", err)
	}
	return a, nil
}

func (r *Repository) GetActiveForTask(ctx context.Context, taskID string) (domainassignment.Assignment, bool, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE task_id = $1 AND state = 'active' LIMIT 1`
	var a domainassignment.Assignment
	err := r.pool.QueryRow(ctx, query, taskID).Scan(scanArgs(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainassignment.Assignment{}, false, nil
		}
		return domainassignment.Assignment{}, false, fmt.Errorf("querying active assignment: %w", err)
	}
	return a, true, nil
}

func (r *Repository) List(ctx context.Context, filters domainassignment.ListFilters) ([]domainassignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE 1=1`
	var args []interface{}
	argIdx := 1
	if filters.ProjectID != nil {
		query += fmt.Sprintf(" AND project_id = $%d", argIdx)
		args = append(args, *filters.ProjectID)
		argIdx++
	}
	if filters.AgentID != nil {
		query += fmt.Sprintf(" AND agent_id = $%d", argIdx)
		args = append(args, *filters.AgentID)
		argIdx++
	}
	if filters.TaskID != nil {
		query += fmt.Sprintf(" AND task_id = $%d", argIdx)
		args = append(args, *filters.TaskID)
		argIdx++
	}
	if filters.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, string(*filters.State))
		argIdx++
	}
	query += " ORDER BY assigned_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []domainassignment.Assignment
	for rows.Next() {
		var a domainassignment.Assignment
		if err := rows.Scan(scanArgs(&a)...); err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, a domainassignment.Assignment) error {
	query := `
		UPDATE assignments SET
			lease_expires_at = $2, renewals = $3, last_progress_at = $4,
			last_progress_pct = $5, state = $6, previous_assignment_id = $7
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		a.ID, a.LeaseExpiresAt, a.Renewals, a.LastProgressAt, a.LastProgressPct,
		string(a.State), nullableString(a.PreviousAssignmentID),
	)
	if err != nil {
		return fmt.Errorf("updating assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assignment %s not found", a.ID)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
