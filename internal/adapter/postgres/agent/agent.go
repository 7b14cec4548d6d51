// Package agent implements port/agent.Repository and ProfileRepository
// against Postgres. Grounded on the teacher's postgres/task/task.go's
// GetAvailable query shape (simple filtered SELECT over agents),
// generalized to Marcus's full CRUD + profile surface since the router
// keeps no separate profile table.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainagent "github.com/marcusai/marcus/internal/domain/agent"
)

const agentColumns = `id, project_id, name, skills, status, current_task_ids, registered_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func agentScanArgs(a *domainagent.Agent) []interface{} {
	return []interface{}{&a.ID, &a.ProjectID, &a.Name, &a.Skills, &a.Status, &a.CurrentTaskIDs, &a.RegisteredAt}
}

func (r *Repository) Create(ctx context.Context, a domainagent.Agent) (domainagent.Agent, error) {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING ` + agentColumns
	var created domainagent.Agent
	err := r.pool.QueryRow(ctx, query,
		a.ID, a.ProjectID, a.Name, a.Skills, string(a.Status), a.CurrentTaskIDs, a.RegisteredAt,
	).Scan(agentScanArgs(&created)...)
	if err != nil {
		return domainagent.Agent{}, fmt.Errorf("inserting agent: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domainagent.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	var a domainagent.Agent
	err := r.pool.QueryRow(ctx, query, id).Scan(agentScanArgs(&a)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Agent{}, fmt.Errorf("agent %s not found", id)
		}
		return domainagent.Agent{}, fmt.Errorf("querying agent: %w", err)
	}
	return a, nil
}

func (r *Repository) List(ctx context.Context, filters domainagent.ListFilters) ([]domainagent.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE 1=1`
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
	if filters.Skill != nil {
		query += fmt.Sprintf(" AND $%d = ANY(skills)", argIdx)
		args = append(args, *filters.Skill)
		argIdx++
	}
	query += " ORDER BY registered_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var out []domainagent.Agent
	for rows.Next() {
		var a domainagent.Agent
		if err := rows.Scan(agentScanArgs(&a)...); err != nil {
			return nil, fmt.Errorf("scanning agent row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, a domainagent.Agent) error {
	query := `UPDATE agents SET name = $2, skills = $3, status = $4, current_task_ids = $5 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.Skills, string(a.Status), a.CurrentTaskIDs)
	if err != nil {
		return fmt.Errorf("updating agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s not found", a.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s not found", id)
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domainagent.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE agents SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating agent status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("agent %s not found", id)
	}
	return nil
}

func (r *Repository) AssignTask(ctx context.Context, agentID, taskID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE agents SET current_task_ids = array_append(current_task_ids, $1), status = 'working' WHERE id = $2 AND NOT ($1 = ANY(current_task_ids))`,
		taskID, agentID,
	)
	if err != nil {
		return fmt.Errorf("assigning task to agent: %w", err)
	}
	return nil
}

func (r *Repository) ReleaseTask(ctx context.Context, agentID, taskID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE agents SET current_task_ids = array_remove(current_task_ids, $1) WHERE id = $2`,
		taskID, agentID,
	)
	if err != nil {
		return fmt.Errorf("releasing task from agent: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE agents SET status = 'idle' WHERE id = $1 AND cardinality(current_task_ids) = 0`,
		agentID,
	)
	if err != nil {
		return fmt.Errorf("resetting idle agent status: %w", err)
	}
	return nil
}

// ProfileRepository implements port/agent.ProfileRepository, storing the
// derived AgentProfile as JSON bytes keyed by agent_id in the kv_store table
// under the agent_profile collection, reusing the KV store's schema
// rather than a dedicated profile table.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) Get(ctx context.Context, agentID string) (domainagent.Profile, error) {
	var value []byte
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM kv_store WHERE collection = 'agent_profile' AND key = $1`, agentID,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainagent.Profile{}, fmt.Errorf("profile %s not found", agentID)
		}
		return domainagent.Profile{}, fmt.Errorf("querying agent profile: %w", err)
	}
	var p domainagent.Profile
	if err := json.Unmarshal(value, &p); err != nil {
		return domainagent.Profile{}, fmt.Errorf("decoding agent profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Put(ctx context.Context, p domainagent.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding agent profile: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO kv_store (collection, key, value, updated_at)
		VALUES ('agent_profile', $1, $2, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		p.AgentID, data,
	)
	if err != nil {
		return fmt.Errorf("storing agent profile: %w", err)
	}
	return nil
}
