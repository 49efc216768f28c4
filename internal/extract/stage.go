// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/internal/prompt"
	"github.com/pdiddy/paper-graph/internal/provider"
	"github.com/pdiddy/paper-graph/internal/sanitize"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// Stage numbers.
const (
	StageClassification = 1
	StageExtraction     = 2
	StageThesis         = 3
)

var stageNames = map[int]string{
	StageClassification: "Classification",
	StageExtraction:     "Deep Extraction",
	StageThesis:         "Thesis Integration",
}

// StageName returns the display name of a stage.
func StageName(stage int) string {
	return stageNames[stage]
}

// defaultSettings are the per-stage model parameters. Classification and
// thesis integration run cold for consistency; extraction runs warmer for recall.
var defaultSettings = map[int]types.StageSettings{
	StageClassification: {MaxOutputTokens: 1024, Temperature: 0.1},
	StageExtraction:     {MaxOutputTokens: 8192, Temperature: 0.3},
	StageThesis:         {MaxOutputTokens: 4096, Temperature: 0.2},
}

// StageError wraps a failure inside one stage.
type StageError struct {
	Stage int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("Stage %d (%s) failed: %v", e.Stage, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage int, err error) error {
	return &StageError{Stage: stage, Name: StageName(stage), Err: err}
}

// settings merges cfg over the stage defaults; zero fields keep the default.
func (p *Pipeline) settings(stage int) types.StageSettings {
	s := defaultSettings[stage]
	var override types.StageSettings
	switch stage {
	case StageClassification:
		override = p.cfg.Classification
	case StageExtraction:
		override = p.cfg.Extraction
	case StageThesis:
		override = p.cfg.Thesis
	}
	if override.MaxOutputTokens > 0 {
		s.MaxOutputTokens = override.MaxOutputTokens
	}
	if override.Temperature > 0 {
		s.Temperature = override.Temperature
	}
	return s
}

// complete sends one stage prompt to the provider. Usage is returned even
// when the call fails after the provider reported it.
func (p *Pipeline) complete(ctx context.Context, stage int, pr prompt.Prompt) (any, types.TokenCount, error) {
	s := p.settings(stage)
	label := strconv.Itoa(stage)
	start := time.Now()

	resp, err := p.provider.Complete(ctx, provider.Request{
		Prompt:          pr.User,
		System:          pr.System,
		MaxOutputTokens: s.MaxOutputTokens,
		Temperature:     s.Temperature,
	})

	elapsed := time.Since(start)
	p.metrics.addTokens(label, resp.Usage.Input, resp.Usage.Output)
	if err != nil {
		p.metrics.observeStage(label, "error", elapsed.Seconds())
		p.logger.Warn("stage call failed",
			zap.Int("stage", stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, resp.Usage, stageError(stage, err)
	}
	p.metrics.observeStage(label, "success", elapsed.Seconds())
	p.logger.Debug("stage call finished",
		zap.Int("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Int("input_tokens", resp.Usage.Input),
		zap.Int("output_tokens", resp.Usage.Output),
	)
	return resp.JSON, resp.Usage, nil
}

// noteReport records sanitizer substitutions.
func (p *Pipeline) noteReport(stage int, rep sanitize.Report) {
	if rep.Len() == 0 {
		return
	}
	p.metrics.addSubstitutions(strconv.Itoa(stage), rep.Len())
	p.logger.Debug("sanitized model output",
		zap.Int("stage", stage),
		zap.Int("substitutions", rep.Len()),
		zap.String("report", rep.String()),
	)
}

// classify runs Stage 1.
func (p *Pipeline) classify(ctx context.Context, doc types.DocumentContext) (types.ClassificationResult, types.TokenCount, error) {
	pr, err := prompt.Classification(doc)
	if err != nil {
		return types.ClassificationResult{}, types.TokenCount{}, stageError(StageClassification, err)
	}
	raw, usage, err := p.complete(ctx, StageClassification, pr)
	if err != nil {
		return types.ClassificationResult{}, usage, err
	}
	c, rep := p.parser.Classification(raw)
	p.noteReport(StageClassification, rep)
	return c, usage, nil
}

// extract runs Stage 2.
func (p *Pipeline) extract(ctx context.Context, doc types.DocumentContext, c types.ClassificationResult) (sanitize.ExtractionResponse, types.TokenCount, error) {
	pr, err := prompt.Extraction(doc, c)
	if err != nil {
		return sanitize.ExtractionResponse{}, types.TokenCount{}, stageError(StageExtraction, err)
	}
	raw, usage, err := p.complete(ctx, StageExtraction, pr)
	if err != nil {
		return sanitize.ExtractionResponse{}, usage, err
	}
	resp, rep := p.parser.Extraction(raw, c.PaperType)
	p.noteReport(StageExtraction, rep)
	return resp, usage, nil
}

// integrate runs Stage 3. Only the existing documents shown in the prompt
// are valid connection targets.
func (p *Pipeline) integrate(ctx context.Context, thesis types.ThesisContext, existing []types.ExistingDocument, findings []types.Finding) (sanitize.ThesisResponse, types.TokenCount, error) {
	if len(existing) > prompt.MaxExistingDocuments {
		existing = existing[:prompt.MaxExistingDocuments]
	}
	pr, err := prompt.Thesis(thesis, existing, findings)
	if err != nil {
		return sanitize.ThesisResponse{}, types.TokenCount{}, stageError(StageThesis, err)
	}
	raw, usage, err := p.complete(ctx, StageThesis, pr)
	if err != nil {
		return sanitize.ThesisResponse{}, usage, err
	}

	ids := make([]string, 0, len(existing))
	for _, d := range existing {
		ids = append(ids, d.ID)
	}
	resp, rep := p.parser.Thesis(raw, sanitize.ThesisScope{FindingCount: len(findings), ExistingIDs: ids})
	p.noteReport(StageThesis, rep)
	return resp, usage, nil
}

// Classify runs Stage 1 alone on doc.
func (p *Pipeline) Classify(ctx context.Context, doc types.DocumentContext) (types.ClassificationResult, types.TokenCount, error) {
	return p.classify(ctx, doc.WithEstimates())
}
