// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// GapType categorizes a research gap identified by a review.
type GapType string

const (
	GapKnowledge      GapType = "knowledge"
	GapMethodological GapType = "methodological"
	GapEmpirical      GapType = "empirical"
	GapTheoretical    GapType = "theoretical"
	GapPopulation     GapType = "population"
	GapPractical      GapType = "practical"
	GapContradictory  GapType = "contradictory"
)

// GapTypes lists the accepted GapType values.
var GapTypes = []GapType{
	GapKnowledge, GapMethodological, GapEmpirical, GapTheoretical,
	GapPopulation, GapPractical, GapContradictory,
}

// Importance ranks a gap.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// ImportanceLevels lists the accepted Importance values.
var ImportanceLevels = []Importance{ImportanceHigh, ImportanceMedium, ImportanceLow}

// SynthesisTheme is a theme a review synthesizes across its sources.
type SynthesisTheme struct {
	Theme       string   `json:"theme" yaml:"theme"`
	Description string   `json:"description" yaml:"description"`
	FindingIDs  []string `json:"findingIds,omitempty" yaml:"findingIds,omitempty"`
}

// ResearchGap is a gap a review identifies in the literature.
type ResearchGap struct {
	Description string     `json:"description" yaml:"description"`
	GapType     GapType    `json:"gapType" yaml:"gapType"`
	Importance  Importance `json:"importance" yaml:"importance"`
}

// ChronologicalTrend describes how a field developed over a period.
type ChronologicalTrend struct {
	Period      string `json:"period" yaml:"period"`
	Description string `json:"description" yaml:"description"`
}

// ReviewExtraction is populated only for documents classified as reviews.
type ReviewExtraction struct {
	SynthesisThemes     []SynthesisTheme     `json:"synthesisThemes" yaml:"synthesisThemes"`
	IdentifiedGaps      []ResearchGap        `json:"identifiedGaps" yaml:"identifiedGaps"`
	FutureDirections    []string             `json:"futureDirections" yaml:"futureDirections"`
	ChronologicalTrends []ChronologicalTrend `json:"chronologicalTrends" yaml:"chronologicalTrends"`
}

// Summary holds document-level summary fields from Stage 2.
type Summary struct {
	ExperimentalSystem string   `json:"experimentalSystem" yaml:"experimentalSystem"`
	KeyContributions   []string `json:"keyContributions" yaml:"keyContributions"`
	Limitations        []string `json:"limitations" yaml:"limitations"`
	OpenQuestions      []string `json:"openQuestions" yaml:"openQuestions"`
}

// ThesisRole is the role a document plays relative to a thesis.
type ThesisRole string

const (
	RoleSupports    ThesisRole = "supports"
	RoleContradicts ThesisRole = "contradicts"
	RoleMethod      ThesisRole = "method"
	RoleBackground  ThesisRole = "background"
	RoleOther       ThesisRole = "other"
)

// ThesisRoles lists the accepted ThesisRole values.
var ThesisRoles = []ThesisRole{RoleSupports, RoleContradicts, RoleMethod, RoleBackground, RoleOther}

// RelevanceDimension says along which axis a finding matters to a thesis.
type RelevanceDimension string

const (
	DimensionEvidence     RelevanceDimension = "evidence"
	DimensionMethod       RelevanceDimension = "method"
	DimensionContext      RelevanceDimension = "context"
	DimensionCounterpoint RelevanceDimension = "counterpoint"
	DimensionGap          RelevanceDimension = "gap"
	DimensionOther        RelevanceDimension = "other"
)

// RelevanceDimensions lists the accepted RelevanceDimension values.
var RelevanceDimensions = []RelevanceDimension{
	DimensionEvidence, DimensionMethod, DimensionContext, DimensionCounterpoint, DimensionGap, DimensionOther,
}

// FindingRelevance scores one finding against the thesis.
type FindingRelevance struct {
	Score     int                `json:"score" yaml:"score"`
	Dimension RelevanceDimension `json:"dimension" yaml:"dimension"`
	Reasoning string             `json:"reasoning" yaml:"reasoning"`
}

// DocumentConnection links this document to one the user already holds.
type DocumentConnection struct {
	ExistingDocumentID string            `json:"existingPaperId" yaml:"existingPaperId"`
	Type               CrossRelationType `json:"connectionType" yaml:"connectionType"`
	Explanation        string            `json:"explanation" yaml:"explanation"`
	Strength           float64           `json:"strength" yaml:"strength"`
}

// ThesisRelevance is the Stage 3 assessment of the whole document.
type ThesisRelevance struct {
	// OverallRelevance is an ordinal score from 1 (unrelated) to 5 (central).
	OverallRelevance int `json:"overallRelevance" yaml:"overallRelevance"`

	SuggestedRole        ThesisRole `json:"suggestedRole" yaml:"suggestedRole"`
	RoleConfidence       float64    `json:"roleConfidence" yaml:"roleConfidence"`
	Reasoning            string     `json:"reasoning" yaml:"reasoning"`
	Takeaway             string     `json:"takeaway" yaml:"takeaway"`
	AlternativeTakeaways []string   `json:"alternativeTakeaways" yaml:"alternativeTakeaways"`

	// DocumentConnections only name documents supplied to Stage 3.
	DocumentConnections []DocumentConnection `json:"documentConnections" yaml:"documentConnections"`
}

// ExtractionStatus is the lifecycle state of an ExtractionGraph.
type ExtractionStatus string

const (
	StatusPending    ExtractionStatus = "pending"
	StatusExtracting ExtractionStatus = "extracting"
	StatusCompleted  ExtractionStatus = "completed"
	StatusFailed     ExtractionStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s ExtractionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ExtractionGraph is the aggregate root for one document's extraction.
type ExtractionGraph struct {
	// ID identifies this extraction run.
	ID         string `json:"id" yaml:"id"`
	DocumentID string `json:"documentId" yaml:"documentId"`

	// Model names the provider and model that produced the graph.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	Classification       ClassificationResult  `json:"classification" yaml:"classification"`
	Findings             []Finding             `json:"findings" yaml:"findings"`
	DataTables           []DataTable           `json:"dataTables" yaml:"dataTables"`
	IntraConnections     []IntraConnection     `json:"intraConnections" yaml:"intraConnections"`
	Summary              Summary               `json:"summary" yaml:"summary"`
	ReviewExtraction     *ReviewExtraction     `json:"reviewExtraction,omitempty" yaml:"reviewExtraction,omitempty"`
	PotentialConnections []PotentialConnection `json:"potentialConnections" yaml:"potentialConnections"`
	ThesisRelevance      *ThesisRelevance      `json:"thesisRelevance,omitempty" yaml:"thesisRelevance,omitempty"`

	Status      ExtractionStatus `json:"status" yaml:"status"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	TokensUsed  StageTokens      `json:"tokensUsed" yaml:"tokensUsed"`
	CreatedAt   time.Time        `json:"createdAt" yaml:"createdAt"`
	CompletedAt time.Time        `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
}

// NewExtractionGraph returns an empty graph in the pending state.
func NewExtractionGraph(id, documentID string, now time.Time) *ExtractionGraph {
	return &ExtractionGraph{
		ID:         id,
		DocumentID: documentID,
		Status:     StatusPending,
		CreatedAt:  now,
	}
}

// Transition moves the graph to next. Leaving a terminal state, or moving
// backwards to pending, is refused.
func (g *ExtractionGraph) Transition(next ExtractionStatus) error {
	if g.Status.Terminal() {
		return fmt.Errorf("graph %s is %s; cannot move to %s", g.ID, g.Status, next)
	}
	switch {
	case g.Status == StatusPending && next == StatusExtracting,
		g.Status == StatusExtracting && next.Terminal():
		g.Status = next
		return nil
	}
	return fmt.Errorf("graph %s: invalid transition %s -> %s", g.ID, g.Status, next)
}

// FindingByID returns the finding with the given ID.
func (g *ExtractionGraph) FindingByID(id string) (Finding, bool) {
	for _, f := range g.Findings {
		if f.ID == id {
			return f, true
		}
	}
	return Finding{}, false
}

// Progress is reported to callers at each stage boundary.
type Progress struct {
	DocumentID string `json:"documentId" yaml:"documentId"`

	// CurrentStage is 1, 2, or 3.
	CurrentStage int `json:"currentStage" yaml:"currentStage"`

	Description string `json:"description" yaml:"description"`

	// OverallProgress is a percentage from 0 to 100.
	OverallProgress int  `json:"overallProgress" yaml:"overallProgress"`
	CanCancel       bool `json:"canCancel" yaml:"canCancel"`
}
