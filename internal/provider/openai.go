// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// OpenAI calls the Chat Completions API, or any server that speaks it.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func newOpenAI(cfg types.ProviderConfig, o options) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != types.UseDefault {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = o.httpClient
	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		model:  modelOr(cfg.Model, DefaultOpenAIModel),
		logger: o.logger.With(zap.String("provider", "openai")),
	}
}

// Name returns "openai/<model>".
func (c *OpenAI) Name() string { return "openai/" + c.model }

// Complete requests a JSON-object response and decodes the first choice.
func (c *OpenAI) Complete(ctx context.Context, r Request) (Response, error) {
	var messages []openai.ChatCompletionMessage
	if r.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: r.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: r.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: r.MaxOutputTokens,
		Temperature:         float32(r.Temperature),
		ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return Response{}, fmt.Errorf("calling OpenAI API: %w", err)
	}

	out := Response{Usage: types.TokenCount{Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens}}
	if len(resp.Choices) == 0 {
		return out, fmt.Errorf("%w: OpenAI returned no choices", ErrMalformedResponse)
	}
	c.logger.Debug("completion",
		zap.Int("input_tokens", out.Usage.Input),
		zap.Int("output_tokens", out.Usage.Output),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	out.JSON, err = DecodeJSON(resp.Choices[0].Message.Content)
	return out, err
}
