// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperType is the structural genre assigned by Stage 1.
type PaperType string

const (
	PaperResearchArticle    PaperType = "research-article"
	PaperReview             PaperType = "review"
	PaperMethods            PaperType = "methods"
	PaperShortCommunication PaperType = "short-communication"
	PaperMetaAnalysis       PaperType = "meta-analysis"
	PaperCaseStudy          PaperType = "case-study"
	PaperTheoretical        PaperType = "theoretical"
)

// PaperTypes lists the accepted PaperType values.
var PaperTypes = []PaperType{
	PaperResearchArticle, PaperReview, PaperMethods, PaperShortCommunication,
	PaperMetaAnalysis, PaperCaseStudy, PaperTheoretical,
}

// StructuralQuality describes how cleanly the document is sectioned.
type StructuralQuality string

const (
	StructureWell      StructuralQuality = "well-structured"
	StructurePartial   StructuralQuality = "partially-structured"
	StructureUnordered StructuralQuality = "unstructured"
)

// StructuralQualities lists the accepted StructuralQuality values.
var StructuralQualities = []StructuralQuality{StructureWell, StructurePartial, StructureUnordered}

// DataRichness describes how much quantitative content the document carries.
type DataRichness string

const (
	DataHigh   DataRichness = "high"
	DataMedium DataRichness = "medium"
	DataLow    DataRichness = "low"
)

// DataRichnessLevels lists the accepted DataRichness values.
var DataRichnessLevels = []DataRichness{DataHigh, DataMedium, DataLow}

// ExtractionDepth controls how much source text Stage 2 sees.
type ExtractionDepth string

const (
	DepthQuick    ExtractionDepth = "quick"
	DepthStandard ExtractionDepth = "standard"
	DepthDeep     ExtractionDepth = "deep"
)

// ExtractionDepths lists the accepted ExtractionDepth values.
var ExtractionDepths = []ExtractionDepth{DepthQuick, DepthStandard, DepthDeep}

// QualityFlags are boolean warnings raised during classification.
type QualityFlags struct {
	PoorTextQuality bool `json:"poorTextQuality" yaml:"poorTextQuality"`
	MissingSections bool `json:"missingSections" yaml:"missingSections"`
	TooShort        bool `json:"tooShort" yaml:"tooShort"`
	TooLong         bool `json:"tooLong" yaml:"tooLong"`
}

// ExtractionHints steer Stage 2.
type ExtractionHints struct {
	// PrioritySections names sections whose text is placed first in the
	// Stage 2 excerpt.
	PrioritySections []string `json:"prioritySections" yaml:"prioritySections"`

	// ExpectedFindingCount is the model's estimate of how many findings the
	// document supports.
	ExpectedFindingCount int `json:"expectedFindingCount" yaml:"expectedFindingCount"`

	// SuggestedDepth selects the Stage 2 text budget.
	SuggestedDepth ExtractionDepth `json:"suggestedDepth" yaml:"suggestedDepth"`
}

// ClassificationResult is the output of Stage 1. Every field has a
// deterministic default so Stage 2 can always proceed.
type ClassificationResult struct {
	PaperType         PaperType         `json:"paperType" yaml:"paperType"`
	StructuralQuality StructuralQuality `json:"structuralQuality" yaml:"structuralQuality"`
	DataRichness      DataRichness      `json:"dataRichness" yaml:"dataRichness"`
	Confidence        float64           `json:"confidence" yaml:"confidence"`
	Flags             QualityFlags      `json:"flags" yaml:"flags"`
	Hints             ExtractionHints   `json:"extractionHints" yaml:"extractionHints"`
}

// IsReview reports whether the document was classified as a review.
func (c ClassificationResult) IsReview() bool {
	return c.PaperType == PaperReview
}
