// Package kv implements kv.Store against Postgres (spec §4.2's "embedded
// relational store" option): one table keyed by (collection, key),
// value stored as raw bytes. Grounded on the teacher's postgres/
// idempotency.Repository (single-table check/store over one key column)
// generalized to a second collection column and a Scan-by-prefix query.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcusai/marcus/internal/port/kv"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, collection kv.Collection, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM kv_store WHERE collection = $1 AND key = $2`
	var value []byte
	err := s.pool.QueryRow(ctx, query, string(collection), key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get kv %s/%s: %w", collection, key, err)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, collection kv.Collection, key string, value []byte) error {
	const query = `
		INSERT INTO kv_store (collection, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, string(collection), key, value); err != nil {
		return fmt.Errorf("put kv %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection kv.Collection, key string) error {
	const query = `DELETE FROM kv_store WHERE collection = $1 AND key = $2`
	if _, err := s.pool.Exec(ctx, query, string(collection), key); err != nil {
		return fmt.Errorf("delete kv %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, collection kv.Collection, filter kv.ScanFilter) (map[string][]byte, error) {
	const query = `SELECT key, value FROM kv_store WHERE collection = $1 AND key LIKE $2`
	rows, err := s.pool.Query(ctx, query, string(collection), filter.KeyPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("scan kv %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

var _ kv.Store = (*Store)(nil)
