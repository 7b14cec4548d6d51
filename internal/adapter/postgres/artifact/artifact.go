// Package artifact implements port/artifact.Repository against Postgres.
// Grounded on the teacher's postgres/task/task.go List-with-optional-
// filters shape, applied here to an append-only table mirroring
// postgres/decision's structure.
package artifact

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainartifact "github.com/marcusai/marcus/internal/domain/artifact"
)

const artifactColumns = `id, task_id, agent_id, filename, artifact_type, location, description, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanArgs(a *domainartifact.Artifact) []interface{} {
	return []interface{}{&a.ID, &a.TaskID, &a.AgentID, &a.Filename, &a.Type, &a.Location, &a.Description, &a.CreatedAt}
}

func (r *Repository) Create(ctx context.Context, a domainartifact.Artifact) (domainartifact.Artifact, error) {
	query := `
		INSERT INTO artifacts (` + artifactColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING ` + artifactColumns
	var created domainartifact.Artifact
	err := r.pool.QueryRow(ctx, query,
		a.ID, a.TaskID, a.AgentID, a.Filename, string(a.Type), a.Location, a.Description, a.CreatedAt,
	).Scan(scanArgs(&created)...)
	if err != nil {
		return domainartifact.Artifact{}, fmt.Errorf("inserting artifact: %w", err)
	}
	return created, nil
}

func (r *Repository) List(ctx context.Context, filters domainartifact.ListFilters) ([]domainartifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE 1=1`
	var args []interface{}
	argIdx := 1
	if filters.TaskID != nil {
		query += fmt.Sprintf(" AND task_id = $%d", argIdx)
		args = append(args, *filters.TaskID)
		argIdx++
	}
	if filters.Type != nil {
		query += fmt.Sprintf(" AND artifact_type = $%d", argIdx)
		args = append(args, string(*filters.Type))
		argIdx++
	}
	query += " ORDER BY created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func scanArtifacts(rows pgx.Rows) ([]domainartifact.Artifact, error) {
	var out []domainartifact.Artifact
	for rows.Next() {
		var a domainartifact.Artifact
		if err := rows.Scan(scanArgs(&a)...); err != nil {
			return nil, fmt.Errorf("scanning artifact row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
