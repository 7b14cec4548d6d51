// Package noop implements llm.Model as the null object used when
// ai.enabled=false (spec §6): instruction enrichment and any future
// planner simply fall back to the unenriched payload.
package noop

import (
	"context"

	portllm "github.com/marcusai/marcus/internal/port/llm"
)

type Model struct{}

func New() *Model { return &Model{} }

func (Model) Complete(ctx context.Context, req portllm.CompletionRequest) (portllm.CompletionResponse, error) {
	return portllm.CompletionResponse{}, nil
}

var _ portllm.Model = (*Model)(nil)
