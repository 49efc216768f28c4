// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/internal/httputil"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	apiKey     string
	model      string
	url        string
	maxRetries int
	client     *http.Client
	logger     *zap.Logger
}

func newAnthropic(cfg types.ProviderConfig, o options) *Anthropic {
	url := anthropicAPIURL
	if cfg.BaseURL != types.UseDefault {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	return &Anthropic{
		apiKey:     cfg.APIKey,
		model:      modelOr(cfg.Model, DefaultAnthropicModel),
		url:        url,
		maxRetries: cfg.MaxRetries,
		client:     o.httpClient,
		logger:     o.logger.With(zap.String("provider", "anthropic")),
	}
}

// anthropicRequest is the request body for the Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

// anthropicMessage is a single message in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the response body from the Messages API.
type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// anthropicContent is a content block in the response.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name returns "anthropic/<model>".
func (a *Anthropic) Name() string { return "anthropic/" + a.model }

// Complete sends one message and decodes the first text block as JSON.
func (a *Anthropic) Complete(ctx context.Context, r Request) (Response, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       a.model,
		MaxTokens:   r.MaxOutputTokens,
		System:      r.System,
		Temperature: r.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: r.Prompt}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := httputil.DoWithRetry(ctx, a.client, req, a.maxRetries, httputil.WithLogger(a.logger))
	if err != nil {
		return Response{}, fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &APIError{Provider: "Anthropic", Status: resp.StatusCode, Body: string(data)}
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return Response{}, fmt.Errorf("decoding Anthropic response: %w", err)
	}

	out := Response{Usage: types.TokenCount{Input: aResp.Usage.InputTokens, Output: aResp.Usage.OutputTokens}}
	a.logger.Debug("completion",
		zap.Int("input_tokens", out.Usage.Input),
		zap.Int("output_tokens", out.Usage.Output),
		zap.String("stop_reason", aResp.StopReason),
	)

	for _, block := range aResp.Content {
		if block.Type != "text" {
			continue
		}
		out.JSON, err = DecodeJSON(block.Text)
		return out, err
	}
	return out, fmt.Errorf("%w: no text content in Anthropic response", ErrMalformedResponse)
}
