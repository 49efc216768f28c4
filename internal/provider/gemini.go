// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// Gemini calls the Gemini API through the official genai client.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func newGemini(ctx context.Context, cfg types.ProviderConfig, o options) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if cfg.BaseURL != types.UseDefault {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  modelOr(cfg.Model, DefaultGeminiModel),
		logger: o.logger.With(zap.String("provider", "gemini")),
	}, nil
}

// Name returns "gemini/<model>".
func (g *Gemini) Name() string { return "gemini/" + g.model }

// Complete asks for an application/json response and decodes it.
func (g *Gemini) Complete(ctx context.Context, r Request) (Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(r.Temperature)),
		MaxOutputTokens:  int32(r.MaxOutputTokens),
		ResponseMIMEType: "application/json",
	}
	if r.System != "" {
		config.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(r.Prompt), config)
	if err != nil {
		return Response{}, fmt.Errorf("calling Gemini API: %w", err)
	}

	var out Response
	if u := resp.UsageMetadata; u != nil {
		out.Usage = types.TokenCount{Input: int(u.PromptTokenCount), Output: int(u.CandidatesTokenCount)}
	}
	g.logger.Debug("completion",
		zap.Int("input_tokens", out.Usage.Input),
		zap.Int("output_tokens", out.Usage.Output),
	)

	text := resp.Text()
	if text == "" {
		return out, fmt.Errorf("%w: empty Gemini response", ErrMalformedResponse)
	}
	out.JSON, err = DecodeJSON(text)
	return out, err
}
