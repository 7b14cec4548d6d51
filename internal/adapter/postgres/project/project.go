// Package project implements port/project.Repository against Postgres.
// Grounded on the teacher's postgres/project/project.go CRUD shape.
package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainproject "github.com/marcusai/marcus/internal/domain/project"
)

const projectColumns = `id, name, board_provider, board_id, board_sync_token, task_ids, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanArgs(p *domainproject.Project) []interface{} {
	return []interface{}{
		&p.ID, &p.Name, &p.BoardBinding.Provider, &p.BoardBinding.BoardID,
		&p.BoardBinding.SyncToken, &p.TaskIDs, &p.CreatedAt,
	}
}

func (r *Repository) Create(ctx context.Context, p domainproject.Project) (domainproject.Project, error) {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING ` + projectColumns
	var created domainproject.Project
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.BoardBinding.Provider, p.BoardBinding.BoardID, p.BoardBinding.SyncToken,
		p.TaskIDs, p.CreatedAt,
	).Scan(scanArgs(&created)...)
	if err != nil {
		return domainproject.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domainproject.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var p domainproject.Project
	err := r.pool.QueryRow(ctx, query, id).Scan(scanArgs(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainproject.Project{}, fmt.Errorf("project %s not found", id)
		}
		return domainproject.Project{}, fmt.Errorf("querying project: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]domainproject.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []domainproject.Project
	for rows.Next() {
		var p domainproject.Project
		if err := rows.Scan(scanArgs(&p)...); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p domainproject.Project) error {
	query := `
		UPDATE projects SET name = $2, board_provider = $3, board_id = $4,
			board_sync_token = $5, task_ids = $6
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.BoardBinding.Provider, p.BoardBinding.BoardID, p.BoardBinding.SyncToken, p.TaskIDs,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s not found", p.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s not found", id)
	}
	return nil
}
