// Package anthropic implements llm.Model against the Anthropic Messages
// API (spec §2's optional AI collaborator for instruction enrichment).
// No teacher or pack example wires this SDK directly — go.mod carries
// it as one of the rest-of-pack libraries a LanguageModel component can
// exercise, so this client follows the SDK's own documented
// constructor/request shape rather than an in-pack precedent.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	portllm "github.com/marcusai/marcus/internal/port/llm"
)

const defaultModel anthropic.Model = "claude-sonnet-4-20250514"

type Model struct {
	client *anthropic.Client
	model  anthropic.Model
}

func New(apiKey string) *Model {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Model{client: &client, model: defaultModel}
}

// NewWithModel overrides the default model name, for callers that pin a
// specific Claude model in configuration.
func NewWithModel(apiKey, model string) *Model {
	m := New(apiKey)
	m.model = anthropic.Model(model)
	return m
}

func (m *Model) Complete(ctx context.Context, req portllm.CompletionRequest) (portllm.CompletionResponse, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return portllm.CompletionResponse{}, fmt.Errorf("anthropic completion: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		text += block.Text
	}
	return portllm.CompletionResponse{Text: text}, nil
}

var _ portllm.Model = (*Model)(nil)
