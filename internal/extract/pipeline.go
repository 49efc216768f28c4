// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs the three-stage extraction pipeline that turns one
// document into an ExtractionGraph: classification, deep extraction and
// optional thesis integration. It also provides the batch runner used by
// the CLI.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-graph/internal/provider"
	"github.com/pdiddy/paper-graph/internal/sanitize"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// ErrCancelled is reported when an invocation is cancelled.
var ErrCancelled = errors.New("extraction cancelled")

// Pipeline runs extractions against one provider. It holds no per-document
// state and is safe for concurrent use.
type Pipeline struct {
	provider provider.Provider
	cfg      types.PipelineConfig
	parser   *sanitize.Parser
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records stage and outcome metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLimits replaces the sanitizer limits.
func WithLimits(l sanitize.Limits) Option {
	return func(p *Pipeline) { p.parser = sanitize.New(l) }
}

// WithClock sets the time source for graph timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline returns a Pipeline calling prov with the stage settings in cfg.
func NewPipeline(prov provider.Provider, cfg types.PipelineConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider: prov,
		cfg:      cfg,
		parser:   sanitize.New(sanitize.DefaultLimits()),
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Options adjust a single invocation.
type Options struct {
	// ProvidedClassification replaces Stage 1 when SkipClassification is set.
	ProvidedClassification *types.ClassificationResult

	// SkipClassification skips Stage 1. It has no effect without
	// ProvidedClassification.
	SkipClassification bool

	// SkipThesisIntegration skips Stage 3 even when a thesis is supplied.
	SkipThesisIntegration bool

	// OnProgress is called at the start and end of each stage.
	OnProgress func(types.Progress)

	// OnStageComplete is called with each stage's sanitized output:
	// types.ClassificationResult, sanitize.ExtractionResponse or
	// sanitize.ThesisResponse.
	OnStageComplete func(stage int, output any)
}

// Request is the input to one invocation.
type Request struct {
	Document          types.DocumentContext
	Thesis            *types.ThesisContext
	ExistingDocuments []types.ExistingDocument
	Options           Options
}

// Result is the outcome of one invocation. Graph is nil unless Success.
// TokensUsed includes stages that ran before a failure.
type Result struct {
	Success    bool                   `json:"success" yaml:"success"`
	Graph      *types.ExtractionGraph `json:"graph,omitempty" yaml:"graph,omitempty"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
	TokensUsed types.StageTokens      `json:"tokensUsed" yaml:"tokensUsed"`
}

// Invocation is one pending or running extraction.
type Invocation struct {
	pipeline *Pipeline
	req      Request
	ctx      context.Context
	cancel   context.CancelFunc
}

// Start prepares an invocation of req. Nothing runs until Run.
func (p *Pipeline) Start(req Request) *Invocation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Invocation{pipeline: p, req: req, ctx: ctx, cancel: cancel}
}

// Cancel requests cancellation. It may be called from any goroutine, before
// or during Run, and affects only this invocation.
func (inv *Invocation) Cancel() {
	inv.cancel()
}

// Run executes the invocation. It never panics; every failure, cancellation
// included, is reported in the Result.
func (inv *Invocation) Run(ctx context.Context) Result {
	defer inv.cancel()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(inv.ctx, cancel)
	defer stop()

	return inv.pipeline.run(ctx, inv)
}

// Extract runs req to completion. It is Start followed by Run.
func (p *Pipeline) Extract(ctx context.Context, req Request) Result {
	return p.Start(req).Run(ctx)
}

// runState holds the mutable state of one invocation.
type runState struct {
	p      *Pipeline
	inv    *Invocation
	ctx    context.Context
	graph  *types.ExtractionGraph
	tokens types.StageTokens
	logger *zap.Logger
}

func (r *runState) cancelled() bool {
	return r.ctx.Err() != nil || r.inv.ctx.Err() != nil
}

func (r *runState) progress(stage, pct int, description string, canCancel bool) {
	if cb := r.inv.req.Options.OnProgress; cb != nil {
		cb(types.Progress{
			DocumentID:      r.graph.DocumentID,
			CurrentStage:    stage,
			Description:     description,
			OverallProgress: pct,
			CanCancel:       canCancel,
		})
	}
}

func (r *runState) stageComplete(stage int, output any) {
	if cb := r.inv.req.Options.OnStageComplete; cb != nil {
		cb(stage, output)
	}
}

// checkStage turns a stage failure observed under cancellation into
// ErrCancelled and reports cancellation requested after a successful stage.
func (r *runState) checkStage(err error) error {
	if r.cancelled() {
		return ErrCancelled
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, inv *Invocation) (res Result) {
	doc := inv.req.Document.WithEstimates()
	r := &runState{
		p:      p,
		inv:    inv,
		ctx:    ctx,
		graph:  types.NewExtractionGraph(p.newID(), doc.ID, p.now()),
		logger: p.logger.With(zap.String("document", doc.ID)),
	}
	r.graph.Model = p.provider.Name()

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("extraction panicked", zap.Any("panic", v), zap.Stack("stack"))
			res = r.fail(fmt.Errorf("internal error: %v", v))
		}
	}()

	if err := r.graph.Transition(types.StatusExtracting); err != nil {
		return r.fail(err)
	}
	r.logger.Info("extraction started", zap.String("graph", r.graph.ID))

	if err := r.stages(doc); err != nil {
		return r.fail(err)
	}
	return r.complete()
}

func (r *runState) stages(doc types.DocumentContext) error {
	opts := r.inv.req.Options
	p := r.p

	// Stage 1.
	var classification types.ClassificationResult
	if opts.SkipClassification && opts.ProvidedClassification != nil {
		classification = *opts.ProvidedClassification
		if err := r.checkStage(nil); err != nil {
			return err
		}
		r.progress(StageClassification, 25, "Using provided classification", true)
	} else {
		r.progress(StageClassification, 0, "Classifying document", true)
		c, usage, err := p.classify(r.ctx, doc)
		r.tokens.Set(StageClassification, usage)
		if err == nil {
			r.stageComplete(StageClassification, c)
		}
		if err := r.checkStage(err); err != nil {
			return err
		}
		classification = c
		r.progress(StageClassification, 25, fmt.Sprintf("Classified as %s", c.PaperType), true)
	}
	r.graph.Classification = classification

	// Stage 2.
	runThesis := r.inv.req.Thesis != nil && !opts.SkipThesisIntegration
	r.progress(StageExtraction, 25, "Extracting findings", true)
	resp, usage, err := p.extract(r.ctx, doc, classification)
	r.tokens.Set(StageExtraction, usage)
	if err == nil {
		r.stageComplete(StageExtraction, resp)
	}
	if err := r.checkStage(err); err != nil {
		return err
	}
	dropped := assemble(r.graph, resp, p.newID)
	p.metrics.addDropped(dropped)
	if n := dropped.total(); n > 0 {
		r.logger.Debug("dropped unresolved references", zap.Int("count", n))
	}
	pct := 90
	if runThesis {
		pct = 75
	}
	r.progress(StageExtraction, pct, fmt.Sprintf("Extracted %d findings", len(r.graph.Findings)), true)

	if !runThesis {
		return nil
	}

	// Stage 3.
	r.progress(StageThesis, 75, "Integrating with thesis", true)
	tresp, usage, err := p.integrate(r.ctx, *r.inv.req.Thesis, r.inv.req.ExistingDocuments, r.graph.Findings)
	r.tokens.Set(StageThesis, usage)
	if err == nil {
		r.stageComplete(StageThesis, tresp)
	}
	if err := r.checkStage(err); err != nil {
		return err
	}
	p.metrics.addDropped(attachThesis(r.graph, tresp))
	r.progress(StageThesis, 95, "Thesis integration complete", true)
	return nil
}

func (r *runState) lastStage() int {
	opts := r.inv.req.Options
	if r.inv.req.Thesis != nil && !opts.SkipThesisIntegration {
		return StageThesis
	}
	return StageExtraction
}

func (r *runState) complete() Result {
	g := r.graph
	if err := g.Transition(types.StatusCompleted); err != nil {
		return r.fail(err)
	}
	g.TokensUsed = r.tokens
	g.CompletedAt = r.p.now()
	r.p.metrics.outcome("completed")

	total := r.tokens.Total()
	r.logger.Info("extraction completed",
		zap.Int("findings", len(g.Findings)),
		zap.Int("tables", len(g.DataTables)),
		zap.Int("connections", len(g.IntraConnections)),
		zap.Int("input_tokens", total.Input),
		zap.Int("output_tokens", total.Output),
	)
	r.progress(r.lastStage(), 100, "Extraction complete", false)
	return Result{Success: true, Graph: g, TokensUsed: r.tokens}
}

func (r *runState) fail(err error) Result {
	g := r.graph
	if g.Status == types.StatusPending {
		_ = g.Transition(types.StatusExtracting)
	}
	if !g.Status.Terminal() {
		_ = g.Transition(types.StatusFailed)
	}
	g.Error = err.Error()
	g.TokensUsed = r.tokens
	g.CompletedAt = r.p.now()

	outcome := "failed"
	if errors.Is(err, ErrCancelled) {
		outcome = "cancelled"
		r.logger.Info("extraction cancelled")
	} else {
		r.logger.Warn("extraction failed", zap.Error(err))
	}
	r.p.metrics.outcome(outcome)
	return Result{Success: false, Error: err.Error(), TokensUsed: r.tokens}
}
