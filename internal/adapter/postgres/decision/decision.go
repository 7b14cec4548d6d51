// Package decision implements port/decision.Repository against Postgres.
// Grounded on the teacher's postgres/task/task.go List-with-optional-
// filters shape, applied here to an append-only table with no Update
// or Delete (decisions are a log, never mutated once written).
package decision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaindecision "github.com/marcusai/marcus/internal/domain/decision"
)

const decisionColumns = `id, task_id, agent_id, text, created_at, affects_tasks`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanArgs(d *domaindecision.Decision) []interface{} {
	return []interface{}{&d.ID, &d.TaskID, &d.AgentID, &d.Text, &d.CreatedAt, &d.AffectsTasks}
}

func (r *Repository) Create(ctx context.Context, d domaindecision.Decision) (domaindecision.Decision, error) {
	query := `
		INSERT INTO decisions (` + decisionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING ` + decisionColumns
	var created domaindecision.Decision
	err := r.pool.QueryRow(ctx, query,
		d.ID, d.TaskID, d.AgentID, d.Text, d.CreatedAt, d.AffectsTasks,
	).Scan(scanArgs(&created)...)
	if err != nil {
		return domaindecision.Decision{}, fmt.Errorf("inserting decision: %w", err)
	}
	return created, nil
}

func (r *Repository) List(ctx context.Context, filters domaindecision.ListFilters) ([]domaindecision.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE 1=1`
	var args []interface{}
	argIdx := 1
	if filters.TaskID != nil {
		query += fmt.Sprintf(" AND task_id = $%d", argIdx)
		args = append(args, *filters.TaskID)
		argIdx++
	}
	if filters.AgentID != nil {
		query += fmt.Sprintf(" AND agent_id = $%d", argIdx)
		args = append(args, *filters.AgentID)
		argIdx++
	}
	query += " ORDER BY created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing decisions: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

func scanDecisions(rows pgx.Rows) ([]domaindecision.Decision, error) {
	var out []domaindecision.Decision
	for rows.Next() {
		var d domaindecision.Decision
		if err := rows.Scan(scanArgs(&d)...); err != nil {
			return nil, fmt.Errorf("scanning decision row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
