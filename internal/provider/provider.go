// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider wraps the text-generation backends used by the pipeline.
// Every backend returns the completion decoded as generic JSON; the
// sanitize package turns that into typed values.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// ErrMalformedResponse reports a completion that did not contain a JSON object.
var ErrMalformedResponse = errors.New("malformed model response")

// ErrMissingAPIKey reports a provider configured without credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// Default models per provider, used when ProviderConfig.Model is UseDefault.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Request is one completion call.
type Request struct {
	Prompt          string
	System          string
	MaxOutputTokens int
	Temperature     float64
}

// Response is the decoded completion and the tokens it cost.
type Response struct {
	JSON  any
	Usage types.TokenCount
}

// Provider completes a prompt and returns the response as generic JSON.
// Implementations must be safe for concurrent use. When the call succeeded
// but decoding failed, the returned Response still carries Usage.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// APIError is a non-success HTTP status returned by a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Status, e.Body)
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	httpClient *http.Client
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient overrides the HTTP client. Tests point it at httptest servers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func buildOptions(cfg types.ProviderConfig, opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return o
}

// New builds the provider named in cfg. When cfg.RequestsPerSecond is
// positive the provider is wrapped with a rate limiter.
func New(ctx context.Context, cfg types.ProviderConfig, opts ...Option) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("provider %s: %w", cfg.Name, ErrMissingAPIKey)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(cfg, opts)

	var (
		p   Provider
		err error
	)
	switch cfg.Name {
	case types.ProviderAnthropic:
		p = newAnthropic(cfg, o)
	case types.ProviderGemini:
		p, err = newGemini(ctx, cfg, o)
	case types.ProviderOpenAI:
		p = newOpenAI(cfg, o)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		p = WithRateLimit(p, cfg.RequestsPerSecond, cfg.Burst)
	}
	return p, nil
}

// modelOr returns model unless it is UseDefault.
func modelOr(model, def string) string {
	if model == types.UseDefault {
		return def
	}
	return model
}

// DecodeJSON extracts the JSON object from a completion. Markdown code
// fences and text around the outermost object are ignored.
func DecodeJSON(text string) (any, error) {
	text = stripFences(strings.TrimSpace(text))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in completion", ErrMalformedResponse)
	}

	var v any
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return v, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
