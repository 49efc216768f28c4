// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProviderName identifies a text-generation backend.
type ProviderName string

const (
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderOpenAI    ProviderName = "openai"
)

// UseDefault is the sentinel for string settings that fall back to the
// provider's documented default (model name, base URL).
const UseDefault = ""

// ProviderConfig carries the provider capability. Nothing here has a
// compiled-in fallback: an empty APIKey is rejected when the provider is built.
type ProviderConfig struct {
	// Name selects the backend: anthropic, gemini, or openai.
	Name ProviderName `json:"name" yaml:"name" validate:"required,oneof=anthropic gemini openai"`

	// APIKey authenticates against the provider.
	APIKey string `json:"-" yaml:"-" validate:"required"`

	// BaseURL overrides the provider endpoint. UseDefault keeps the vendor URL.
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" validate:"omitempty,url"`

	// Model is the model identifier. UseDefault picks the provider default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// RequestsPerSecond throttles calls to the provider; 0 disables throttling.
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty" validate:"gte=0"`

	// Burst is the limiter bucket size (default 1).
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty" validate:"gte=0"`

	// MaxRetries bounds HTTP retries on rate limiting (default 5).
	MaxRetries int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty" validate:"gte=0,lte=10"`

	// Timeout bounds a single HTTP call; 0 leaves timeout policy to the context.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"gte=0"`
}

// StageSettings tunes one model call. Zero values select the stage default.
type StageSettings struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty" yaml:"maxOutputTokens,omitempty" validate:"gte=0,lte=65536"`
	Temperature     float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
}

// PipelineConfig groups the settings for one Pipeline.
type PipelineConfig struct {
	Provider       ProviderConfig `json:"provider" yaml:"provider"`
	Classification StageSettings  `json:"classification" yaml:"classification"`
	Extraction     StageSettings  `json:"extraction" yaml:"extraction"`
	Thesis         StageSettings  `json:"thesis" yaml:"thesis"`
}

// OutputFormat selects the serialization of written graphs.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
)

// BatchConfig holds settings for extracting a directory of documents.
type BatchConfig struct {
	// DocumentsDir holds one YAML or JSON document spec per document.
	DocumentsDir string `json:"documentsDir" yaml:"documentsDir" validate:"required"`

	// OutputDir receives <id>-graph.yaml (or .json) per document.
	OutputDir string `json:"outputDir" yaml:"outputDir" validate:"required"`

	// Concurrency bounds parallel invocations (default 2).
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty" validate:"gte=0,lte=32"`

	// Format selects yaml (default) or json output.
	Format OutputFormat `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=yaml json"`

	// Force re-extracts documents whose output is newer than the input.
	Force bool `json:"force,omitempty" yaml:"force,omitempty"`

	// Thesis, when set, runs Stage 3 for every document.
	Thesis *ThesisContext `json:"-" yaml:"-"`

	// ExistingDocuments are the Stage 3 connection targets.
	ExistingDocuments []ExistingDocument `json:"-" yaml:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the provider settings.
func (c ProviderConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid provider config: %w", err)
	}
	return nil
}

// Validate checks the configuration against its field constraints.
func (c PipelineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return nil
}

// Validate checks the batch configuration.
func (c BatchConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid batch config: %w", err)
	}
	return nil
}
