// Package kv defines the tagged key-value store port (spec §4.2): a
// pluggable backing (in-process map + periodic flush, or an embedded
// relational store) behind one get/put/delete/scan contract.
package kv

import "context"

// Collection names the KV store's fixed set of tagged namespaces.
type Collection string

const (
	CollectionAgentProfile    Collection = "agent_profile"
	CollectionTaskOutcome     Collection = "task_outcome"
	CollectionProjectSnapshot Collection = "project_snapshot"
	CollectionDecisions       Collection = "decisions"
	CollectionArtifacts       Collection = "artifacts"
	CollectionAssignments     Collection = "assignments"
	CollectionIdempotency     Collection = "idempotency"
)

// ScanFilter narrows a Scan to keys with the given prefix; empty matches all.
type ScanFilter struct {
	KeyPrefix string
}

// Store is the tagged (collection, key) -> value KV port.
type Store interface {
	Get(ctx context.Context, collection Collection, key string) ([]byte, bool, error)
	Put(ctx context.Context, collection Collection, key string, value []byte) error
	Delete(ctx context.Context, collection Collection, key string) error
	Scan(ctx context.Context, collection Collection, filter ScanFilter) (map[string][]byte, error)
}
