// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/paper-graph/internal/provider"
	"github.com/pdiddy/paper-graph/internal/sanitize"
	"github.com/pdiddy/paper-graph/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// --- fake provider ---

// stageOf identifies the stage from the default output budget.
func stageOf(req provider.Request) int {
	switch req.MaxOutputTokens {
	case 1024:
		return StageClassification
	case 8192:
		return StageExtraction
	case 4096:
		return StageThesis
	}
	return 0
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   map[int]int
	respond func(ctx context.Context, stage int) (provider.Response, error)
}

func newFake(respond func(ctx context.Context, stage int) (provider.Response, error)) *fakeProvider {
	return &fakeProvider{calls: map[int]int{}, respond: respond}
}

func (f *fakeProvider) Name() string { return "fake/test-model" }

func (f *fakeProvider) Complete(ctx context.Context, req provider.Request) (provider.Response, error) {
	stage := stageOf(req)
	f.mu.Lock()
	f.calls[stage]++
	f.mu.Unlock()
	return f.respond(ctx, stage)
}

func (f *fakeProvider) callsFor(stage int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

// scripted answers each stage with fixed JSON and usage.
func scripted(t *testing.T, byStage map[int]string) func(context.Context, int) (provider.Response, error) {
	t.Helper()
	decoded := map[int]any{}
	for stage, s := range byStage {
		decoded[stage] = decode(t, s)
	}
	return func(_ context.Context, stage int) (provider.Response, error) {
		v, ok := decoded[stage]
		if !ok {
			return provider.Response{}, fmt.Errorf("unexpected stage %d", stage)
		}
		return provider.Response{JSON: v, Usage: types.TokenCount{Input: stage * 100, Output: stage * 10}}, nil
	}
}

const classificationJSON = `{
	"paperType": "research-article",
	"structuralQuality": "well-structured",
	"dataRichness": "high",
	"confidence": 0.9,
	"flags": {"poorTextQuality": false},
	"extractionHints": {"prioritySections": ["Results"], "expectedFindingCount": 3, "suggestedDepth": "quick"}
}`

const extractionJSON = `{
	"findings": [
		{"title": "Sleep improves recall", "description": "Recall rose 20%.", "findingType": "central-finding", "pages": [3], "quotes": ["recall rose"], "confidence": 0.9},
		{"title": "Effect holds for older adults", "findingType": "supporting-finding", "pages": [4]},
		{"title": "Small sample", "findingType": "limitation"}
	],
	"dataTables": [
		{"name": "Recall scores", "columns": ["Group", "Score"], "rows": [{"label": "Sleep", "values": {"Score": 12}}], "relatedFindingIndices": [0, 7]}
	],
	"intraConnections": [
		{"fromFindingIndex": 1, "toFindingIndex": 0, "connectionType": "extends", "explanation": "generalises"},
		{"fromFindingIndex": 2, "toFindingIndex": 0, "connectionType": "qualifies"},
		{"fromFindingIndex": 0, "toFindingIndex": 9, "connectionType": "supports"},
		{"fromFindingIndex": 1, "toFindingIndex": 1}
	],
	"experimentalSystem": "Healthy adults",
	"keyContributions": ["Shows the effect"],
	"limitations": ["n=20"],
	"openQuestions": ["Mechanism?"],
	"potentialConnections": [
		{"findingIndex": 0, "relationshipType": "supports", "targetDescription": "memory consolidation studies", "keywords": ["sleep"]},
		{"findingIndex": 12, "targetDescription": "nothing"}
	]
}`

const thesisJSON = `{
	"overallRelevance": 4,
	"suggestedRole": {"role": "supports", "confidence": 0.8},
	"reasoning": "Direct evidence.",
	"thesisTakeaway": "Sleep helps memory.",
	"findingRelevance": [
		{"findingIndex": 0, "relevanceScore": 5, "dimension": "evidence"},
		{"findingIndex": 2, "relevanceScore": 2, "dimension": "counterpoint"},
		{"findingIndex": 8, "relevanceScore": 3}
	],
	"paperConnections": [
		{"existingPaperId": "known-1", "connectionType": "supports", "strength": 0.7},
		{"existingPaperId": "stranger", "connectionType": "supports"}
	]
}`

func testDoc() types.DocumentContext {
	return types.DocumentContext{
		ID:       "doc-1",
		Title:    "Sleep and Memory",
		Authors:  []string{"A. Author"},
		FullText: "## Results\n\nRecall rose 20% after sleep.\n",
	}
}

func testThesis() *types.ThesisContext {
	return &types.ThesisContext{Title: "Sleep consolidates memory"}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(p provider.Provider, opts ...Option) *Pipeline {
	counter := 0
	var mu sync.Mutex
	pl := NewPipeline(p, types.PipelineConfig{}, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	pl.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return "id-" + strconv.Itoa(counter)
	}
	return pl
}

// --- full pipeline ---

func TestExtract_FullPipeline(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
		StageThesis:         thesisJSON,
	}))

	var progress []types.Progress
	var completed []int
	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document:          testDoc(),
		Thesis:            testThesis(),
		ExistingDocuments: []types.ExistingDocument{{ID: "known-1", Title: "Prior work"}},
		Options: Options{
			OnProgress:      func(p types.Progress) { progress = append(progress, p) },
			OnStageComplete: func(stage int, _ any) { completed = append(completed, stage) },
		},
	})

	require.True(t, res.Success, res.Error)
	g := res.Graph
	require.NotNil(t, g)

	assert.Equal(t, types.StatusCompleted, g.Status)
	assert.Equal(t, "doc-1", g.DocumentID)
	assert.Equal(t, "fake/test-model", g.Model)
	assert.Equal(t, fixedNow, g.CreatedAt)
	assert.Equal(t, types.PaperResearchArticle, g.Classification.PaperType)

	require.Len(t, g.Findings, 3)
	for i, f := range g.Findings {
		assert.Equal(t, stableID("doc-1", strconv.Itoa(i), f.Title), f.ID)
		assert.Equal(t, i, f.DisplayOrder)
		assert.Equal(t, "doc-1", f.DocumentID)
		assert.False(t, f.Verified)
		assert.False(t, f.Edited)
	}

	// Out-of-range and self edges never survive.
	require.Len(t, g.IntraConnections, 2)
	for _, c := range g.IntraConnections {
		_, ok := g.FindingByID(c.FromFindingID)
		assert.True(t, ok, "from %s", c.FromFindingID)
		_, ok = g.FindingByID(c.ToFindingID)
		assert.True(t, ok, "to %s", c.ToFindingID)
		assert.NotEqual(t, c.FromFindingID, c.ToFindingID)
	}
	assert.Equal(t, types.ConnectionExtends, g.IntraConnections[0].Type)

	require.Len(t, g.DataTables, 1)
	assert.Equal(t, []string{g.Findings[0].ID}, g.DataTables[0].SupportsFindingIDs)
	assert.Equal(t, "12", g.DataTables[0].Rows[0].Values["Score"])

	require.Len(t, g.PotentialConnections, 1)
	assert.Equal(t, g.Findings[0].ID, g.PotentialConnections[0].FindingID)

	assert.Equal(t, "Healthy adults", g.Summary.ExperimentalSystem)
	assert.Nil(t, g.ReviewExtraction)

	require.NotNil(t, g.ThesisRelevance)
	assert.Equal(t, 4, g.ThesisRelevance.OverallRelevance)
	assert.Equal(t, types.RoleSupports, g.ThesisRelevance.SuggestedRole)
	assert.Equal(t, "Sleep helps memory.", g.ThesisRelevance.Takeaway)
	require.Len(t, g.ThesisRelevance.DocumentConnections, 1)
	assert.Equal(t, "known-1", g.ThesisRelevance.DocumentConnections[0].ExistingDocumentID)

	require.NotNil(t, g.Findings[0].Relevance)
	assert.Equal(t, 5, g.Findings[0].Relevance.Score)
	assert.Nil(t, g.Findings[1].Relevance)
	require.NotNil(t, g.Findings[2].Relevance)
	assert.Equal(t, types.DimensionCounterpoint, g.Findings[2].Relevance.Dimension)

	want := types.StageTokens{
		Stage1: types.TokenCount{Input: 100, Output: 10},
		Stage2: types.TokenCount{Input: 200, Output: 20},
		Stage3: types.TokenCount{Input: 300, Output: 30},
	}
	assert.Equal(t, want, res.TokensUsed)
	assert.Equal(t, want, g.TokensUsed)

	assert.Equal(t, []int{1, 2, 3}, completed)
	require.NotEmpty(t, progress)
	var pcts []int
	for _, p := range progress {
		pcts = append(pcts, p.OverallProgress)
		assert.Equal(t, "doc-1", p.DocumentID)
	}
	assert.Equal(t, []int{0, 25, 25, 75, 75, 95, 100}, pcts)
	last := progress[len(progress)-1]
	assert.False(t, last.CanCancel)
	assert.Equal(t, StageThesis, last.CurrentStage)
}

func TestExtract_ProvidedClassificationSkipsStage1(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{StageExtraction: extractionJSON}))
	provided := types.ClassificationResult{
		PaperType:         types.PaperMethods,
		StructuralQuality: types.StructureUnordered,
		DataRichness:      types.DataLow,
		Confidence:        0.33,
		Flags:             types.QualityFlags{TooLong: true},
		Hints:             types.ExtractionHints{PrioritySections: []string{"Protocol"}, ExpectedFindingCount: 2, SuggestedDepth: types.DepthDeep},
	}

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document: testDoc(),
		Options:  Options{ProvidedClassification: &provided, SkipClassification: true},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, fake.callsFor(StageClassification))
	assert.Equal(t, provided, res.Graph.Classification)
	assert.Equal(t, types.TokenCount{}, res.TokensUsed.Stage1)
}

func TestExtract_SkipWithoutProvidedRunsStage1(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document: testDoc(),
		Options:  Options{SkipClassification: true},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, fake.callsFor(StageClassification))
}

func TestExtract_NoThesisSkipsStage3(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))

	var pcts []int
	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document: testDoc(),
		Options:  Options{OnProgress: func(p types.Progress) { pcts = append(pcts, p.OverallProgress) }},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, fake.callsFor(StageThesis))
	assert.Nil(t, res.Graph.ThesisRelevance)
	assert.Equal(t, types.TokenCount{}, res.TokensUsed.Stage3)
	assert.Equal(t, []int{0, 25, 25, 90, 100}, pcts)
}

func TestExtract_SkipThesisIntegration(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document: testDoc(),
		Thesis:   testThesis(),
		Options:  Options{SkipThesisIntegration: true},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, fake.callsFor(StageThesis))
	assert.Nil(t, res.Graph.ThesisRelevance)
}

func TestExtract_CancelAfterStage1(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))
	p := newTestPipeline(fake)

	var inv *Invocation
	inv = p.Start(Request{
		Document: testDoc(),
		Options: Options{OnStageComplete: func(stage int, _ any) {
			if stage == StageClassification {
				inv.Cancel()
			}
		}},
	})
	res := inv.Run(context.Background())

	assert.False(t, res.Success)
	assert.Nil(t, res.Graph)
	assert.Equal(t, ErrCancelled.Error(), res.Error)
	assert.Equal(t, 0, fake.callsFor(StageExtraction))
	assert.Equal(t, types.TokenCount{Input: 100, Output: 10}, res.TokensUsed.Stage1)
}

func TestExtract_CancelBeforeRun(t *testing.T) {
	fake := newFake(func(ctx context.Context, _ int) (provider.Response, error) {
		<-ctx.Done()
		return provider.Response{}, ctx.Err()
	})
	inv := newTestPipeline(fake).Start(Request{Document: testDoc()})
	inv.Cancel()

	res := inv.Run(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, ErrCancelled.Error(), res.Error)
}

func TestExtract_ProviderErrorDuringCancellation(t *testing.T) {
	var inv *Invocation
	fake := newFake(func(ctx context.Context, _ int) (provider.Response, error) {
		inv.Cancel()
		<-ctx.Done()
		return provider.Response{}, fmt.Errorf("calling API: %w", ctx.Err())
	})
	inv = newTestPipeline(fake).Start(Request{Document: testDoc()})

	res := inv.Run(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, ErrCancelled.Error(), res.Error)
}

func TestExtract_CancellationIsPerInvocation(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))
	p := newTestPipeline(fake)

	cancelled := p.Start(Request{Document: testDoc()})
	other := p.Start(Request{Document: testDoc()})
	cancelled.Cancel()

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i, inv := range []*Invocation{cancelled, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = inv.Run(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success, results[1].Error)
}

func TestExtract_StageFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		failStage int
		prefix    string
	}{
		{name: "classification", failStage: StageClassification, prefix: "Stage 1 (Classification) failed: "},
		{name: "extraction", failStage: StageExtraction, prefix: "Stage 2 (Deep Extraction) failed: "},
		{name: "thesis", failStage: StageThesis, prefix: "Stage 3 (Thesis Integration) failed: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := scripted(t, map[int]string{
				StageClassification: classificationJSON,
				StageExtraction:     extractionJSON,
				StageThesis:         thesisJSON,
			})
			fake := newFake(func(ctx context.Context, stage int) (provider.Response, error) {
				if stage == tt.failStage {
					return provider.Response{Usage: types.TokenCount{Input: 7, Output: 1}}, boom
				}
				return ok(ctx, stage)
			})

			res := newTestPipeline(fake).Extract(context.Background(), Request{Document: testDoc(), Thesis: testThesis()})

			assert.False(t, res.Success)
			assert.Nil(t, res.Graph)
			assert.Equal(t, tt.prefix+"boom", res.Error)

			var tokens types.StageTokens
			for s := 1; s < tt.failStage; s++ {
				tokens.Set(s, types.TokenCount{Input: s * 100, Output: s * 10})
			}
			tokens.Set(tt.failStage, types.TokenCount{Input: 7, Output: 1})
			assert.Equal(t, tokens, res.TokensUsed)
		})
	}
}

func TestExtract_MalformedResponseFailsStage(t *testing.T) {
	fake := newFake(func(context.Context, int) (provider.Response, error) {
		return provider.Response{Usage: types.TokenCount{Input: 3, Output: 2}}, fmt.Errorf("%w: no JSON object", provider.ErrMalformedResponse)
	})

	inv := newTestPipeline(fake).Start(Request{Document: testDoc()})
	res := inv.Run(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Stage 1 (Classification) failed")
	assert.Equal(t, types.TokenCount{Input: 3, Output: 2}, res.TokensUsed.Stage1)
}

func TestExtract_StageErrorUnwraps(t *testing.T) {
	fake := newFake(func(context.Context, int) (provider.Response, error) {
		return provider.Response{}, provider.ErrMalformedResponse
	})
	p := newTestPipeline(fake)

	_, _, err := p.classify(context.Background(), testDoc())
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageClassification, se.Stage)
	assert.Equal(t, "Classification", se.Name)
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestExtract_PanicBecomesFailure(t *testing.T) {
	fake := newFake(func(context.Context, int) (provider.Response, error) {
		panic("provider exploded")
	})

	res := newTestPipeline(fake).Extract(context.Background(), Request{Document: testDoc()})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "provider exploded")
}

func TestExtract_MalformedClassificationStillExtracts(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: `{"paperType": "poem", "confidence": "very", "extractionHints": "none"}`,
		StageExtraction:     extractionJSON,
	}))

	res := newTestPipeline(fake).Extract(context.Background(), Request{Document: testDoc()})

	require.True(t, res.Success, res.Error)
	c := res.Graph.Classification
	assert.Equal(t, types.PaperResearchArticle, c.PaperType)
	assert.Equal(t, 0.5, c.Confidence)
	assert.Equal(t, types.DepthStandard, c.Hints.SuggestedDepth)
	assert.Equal(t, 5, c.Hints.ExpectedFindingCount)
}

func TestExtract_ReviewGaps(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageExtraction: `{
			"findings": [{"title": "Field is growing"}, {"title": "Methods vary"}],
			"reviewSpecific": {
				"synthesisThemes": [{"theme": "Heterogeneity", "findingIndices": [1, 4]}],
				"identifiedGaps": [
					{"description": "No long-term studies", "gapType": "empirical", "importance": "high"},
					{"description": "Unclear mechanism", "gapType": "nonsense"},
					{"gapType": "theoretical"},
					"Children under-studied"
				],
				"futureDirections": ["Run cohorts"]
			}
		}`,
	}))
	provided := types.ClassificationResult{PaperType: types.PaperReview}

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document: testDoc(),
		Options:  Options{ProvidedClassification: &provided, SkipClassification: true},
	})

	require.True(t, res.Success, res.Error)
	review := res.Graph.ReviewExtraction
	require.NotNil(t, review)
	require.Len(t, review.IdentifiedGaps, 3)
	assert.Equal(t, types.GapEmpirical, review.IdentifiedGaps[0].GapType)
	assert.Equal(t, types.GapKnowledge, review.IdentifiedGaps[1].GapType)
	assert.Equal(t, types.GapKnowledge, review.IdentifiedGaps[2].GapType)
	for _, gap := range review.IdentifiedGaps {
		assert.Contains(t, types.GapTypes, gap.GapType)
	}

	require.Len(t, review.SynthesisThemes, 1)
	assert.Equal(t, []string{res.Graph.Findings[1].ID}, review.SynthesisThemes[0].FindingIDs)
	assert.Equal(t, []string{"Run cohorts"}, review.FutureDirections)
}

func TestExtract_ForeignDocumentConnectionsDropped(t *testing.T) {
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
		StageThesis: `{
			"overallRelevance": 2,
			"paperConnections": [
				{"existingPaperId": "ghost-1", "connectionType": "supports"},
				{"existingPaperId": "ghost-2", "connectionType": "extends"}
			]
		}`,
	}))

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document:          testDoc(),
		Thesis:            testThesis(),
		ExistingDocuments: []types.ExistingDocument{{ID: "known-1", Title: "Prior work"}},
	})

	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Graph.ThesisRelevance)
	assert.Empty(t, res.Graph.ThesisRelevance.DocumentConnections)
}

func TestExtract_OnlyShownDocumentsAreTargets(t *testing.T) {
	existing := make([]types.ExistingDocument, 20)
	for i := range existing {
		existing[i] = types.ExistingDocument{ID: "ex-" + strconv.Itoa(i), Title: "Doc"}
	}
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
		StageThesis: `{"paperConnections": [
			{"existingPaperId": "ex-3"},
			{"existingPaperId": "ex-17"}
		]}`,
	}))

	res := newTestPipeline(fake).Extract(context.Background(), Request{
		Document:          testDoc(),
		Thesis:            testThesis(),
		ExistingDocuments: existing,
	})

	require.True(t, res.Success, res.Error)
	conns := res.Graph.ThesisRelevance.DocumentConnections
	require.Len(t, conns, 1)
	assert.Equal(t, "ex-3", conns[0].ExistingDocumentID)
}

func TestExtract_StageSettings(t *testing.T) {
	var got []provider.Request
	var mu sync.Mutex
	rec := &recordingProvider{record: func(r provider.Request) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r)
	}}

	p := NewPipeline(rec, types.PipelineConfig{
		Extraction: types.StageSettings{MaxOutputTokens: 2000, Temperature: 0.7},
	})
	res := p.Extract(context.Background(), Request{Document: testDoc()})
	require.True(t, res.Success, res.Error)

	require.Len(t, got, 2)
	assert.Equal(t, 1024, got[0].MaxOutputTokens)
	assert.InDelta(t, 0.1, got[0].Temperature, 1e-9)
	assert.Equal(t, 2000, got[1].MaxOutputTokens)
	assert.InDelta(t, 0.7, got[1].Temperature, 1e-9)
	assert.NotEmpty(t, got[1].System)
}

type recordingProvider struct {
	record func(provider.Request)
}

func (r *recordingProvider) Name() string { return "recording" }

func (r *recordingProvider) Complete(_ context.Context, req provider.Request) (provider.Response, error) {
	r.record(req)
	return provider.Response{JSON: map[string]any{}}, nil
}

func TestExtract_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))
	res := newTestPipeline(fake, WithMetrics(m)).Extract(context.Background(), Request{Document: testDoc()})
	require.True(t, res.Success, res.Error)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("completed")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.tokens.WithLabelValues("1", "input")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.tokens.WithLabelValues("2", "output")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
	// Table index 7 and connection index 9 do not resolve.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedReferences.WithLabelValues("table")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedReferences.WithLabelValues("connection")))
	assert.Greater(t, testutil.ToFloat64(m.substitutions.WithLabelValues("2")), 0.0)

	failing := newFake(func(context.Context, int) (provider.Response, error) {
		return provider.Response{}, errors.New("down")
	})
	newTestPipeline(failing, WithMetrics(m)).Extract(context.Background(), Request{Document: testDoc()})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractions.WithLabelValues("failed")))
}

func TestExtract_WithLimits(t *testing.T) {
	limits := sanitize.DefaultLimits()
	limits.MaxFindings = 1
	fake := newFake(scripted(t, map[int]string{
		StageClassification: classificationJSON,
		StageExtraction:     extractionJSON,
	}))

	res := newTestPipeline(fake, WithLimits(limits)).Extract(context.Background(), Request{Document: testDoc()})
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Graph.Findings, 1)
	assert.Empty(t, res.Graph.IntraConnections)
}
