// Package llm defines the LanguageModel port: the optional AI
// collaborator used for task-instruction enrichment and the natural
// language PRD planner (spec §2, marked Non-goal for the planner itself
// but the interface is what a future ProjectPlanner would depend on).
package llm

import "context"

type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
}

type CompletionResponse struct {
	Text string
}

// Model is implemented by a concrete provider (Anthropic) or the null
// object used when ai.enabled=false (spec §6 configuration surface).
type Model interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
