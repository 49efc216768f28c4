// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/internal/extract"
	"github.com/pdiddy/paper-graph/internal/provider"
	"github.com/pdiddy/paper-graph/internal/secrets"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// stageSettings reads the overrides for one stage from viper.
func stageSettings(key string) types.StageSettings {
	return types.StageSettings{
		MaxOutputTokens: viper.GetInt(key + ".maxOutputTokens"),
		Temperature:     viper.GetFloat64(key + ".temperature"),
	}
}

// pipelineConfig assembles the pipeline configuration from the config file,
// environment and flags. The API key comes from .secrets/ or the
// <PROVIDER>_API_KEY environment variable.
func pipelineConfig() (types.PipelineConfig, error) {
	name := types.ProviderName(viper.GetString("provider.name"))
	cfg := types.PipelineConfig{
		Provider: types.ProviderConfig{
			Name:              name,
			APIKey:            secrets.APIKey(loadedSecrets, string(name)),
			BaseURL:           viper.GetString("provider.baseUrl"),
			Model:             viper.GetString("provider.model"),
			RequestsPerSecond: viper.GetFloat64("provider.requestsPerSecond"),
			Burst:             viper.GetInt("provider.burst"),
			MaxRetries:        viper.GetInt("provider.maxRetries"),
			Timeout:           viper.GetDuration("provider.timeout"),
		},
		Classification: stageSettings("classification"),
		Extraction:     stageSettings("extraction"),
		Thesis:         stageSettings("thesis"),
	}
	if cfg.Provider.APIKey == "" {
		return cfg, fmt.Errorf("%w: add .secrets/%s or set %s",
			provider.ErrMissingAPIKey, secrets.KeyFile(string(name)), envKeyName(name))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKeyName(name types.ProviderName) string {
	return strings.ToUpper(string(name)) + "_API_KEY"
}

// newPipeline builds a pipeline for the configured provider. The returned
// registry holds the pipeline metrics.
func newPipeline(ctx context.Context) (*extract.Pipeline, *prometheus.Registry, error) {
	cfg, err := pipelineConfig()
	if err != nil {
		return nil, nil, err
	}
	prov, err := provider.New(ctx, cfg.Provider, provider.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("provider ready", zap.String("provider", prov.Name()))

	reg := prometheus.NewRegistry()
	p := extract.NewPipeline(prov, cfg,
		extract.WithLogger(logger),
		extract.WithMetrics(extract.NewMetrics(reg)),
	)
	return p, reg, nil
}

// writeMetrics writes reg to the --metrics-file path, if one was given.
func writeMetrics(cmd *cobra.Command, reg *prometheus.Registry) {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" || reg == nil {
		return
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		logger.Warn("writing metrics", zap.String("path", path), zap.Error(err))
	}
}

// outputFormat reads and checks the --format flag.
func outputFormat(cmd *cobra.Command) (types.OutputFormat, error) {
	f, _ := cmd.Flags().GetString("format")
	switch format := types.OutputFormat(f); format {
	case types.FormatYAML, types.FormatJSON:
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q (want yaml or json)", f)
}
