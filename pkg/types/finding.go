// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FindingType categorizes a finding.
type FindingType string

const (
	FindingCentral        FindingType = "central-finding"
	FindingSupporting     FindingType = "supporting-finding"
	FindingMethodological FindingType = "methodological"
	FindingLimitation     FindingType = "limitation"
	FindingImplication    FindingType = "implication"
	FindingOpenQuestion   FindingType = "open-question"
	FindingBackground     FindingType = "background"
)

// FindingTypes lists the accepted FindingType values.
var FindingTypes = []FindingType{
	FindingCentral, FindingSupporting, FindingMethodological, FindingLimitation,
	FindingImplication, FindingOpenQuestion, FindingBackground,
}

// QuotePosition approximates where a quote sits when pagination is unknown.
type QuotePosition string

const (
	PositionEarly  QuotePosition = "early"
	PositionMiddle QuotePosition = "middle"
	PositionLate   QuotePosition = "late"
)

// QuotePositions lists the accepted QuotePosition values.
var QuotePositions = []QuotePosition{PositionEarly, PositionMiddle, PositionLate}

// QuoteReference is an exact span of source text supporting one finding.
type QuoteReference struct {
	Text      string        `json:"text" yaml:"text"`
	Page      int           `json:"page,omitempty" yaml:"page,omitempty"`
	PageLabel string        `json:"pageLabel,omitempty" yaml:"pageLabel,omitempty"`
	Position  QuotePosition `json:"position,omitempty" yaml:"position,omitempty"`
}

// Finding is the atomic unit of extracted knowledge. The pipeline creates
// findings during Stage 2 assembly and never mutates them afterwards except
// to attach Stage 3 relevance.
type Finding struct {
	// ID is stable across re-extractions of the same document.
	ID string `json:"id" yaml:"id"`

	// DocumentID is the owning document.
	DocumentID string `json:"documentId" yaml:"documentId"`

	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Type        FindingType `json:"findingType" yaml:"findingType"`

	// Pages lists the pages the finding draws on.
	Pages   []int            `json:"pages,omitempty" yaml:"pages,omitempty"`
	Section string           `json:"section,omitempty" yaml:"section,omitempty"`
	Quotes  []QuoteReference `json:"quotes" yaml:"quotes"`

	// Confidence is a value in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Verified and Edited are review flags owned by an external reviewer.
	Verified bool `json:"verified" yaml:"verified"`
	Edited   bool `json:"edited" yaml:"edited"`

	// DisplayOrder is the zero-based position in the extraction response.
	DisplayOrder int `json:"displayOrder" yaml:"displayOrder"`

	// Relevance is set by Stage 3 only.
	Relevance *FindingRelevance `json:"relevance,omitempty" yaml:"relevance,omitempty"`
}

// TableColumn is one column of a DataTable.
type TableColumn struct {
	Name string `json:"name" yaml:"name"`
	Unit string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// TableRow is one row of a DataTable keyed by column name.
type TableRow struct {
	Label  string            `json:"label" yaml:"label"`
	Values map[string]string `json:"values" yaml:"values"`
}

// DataTable is a structured table recovered from a narrative description of
// tabular content.
type DataTable struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Page        int           `json:"page,omitempty" yaml:"page,omitempty"`
	Columns     []TableColumn `json:"columns" yaml:"columns"`
	Rows        []TableRow    `json:"rows" yaml:"rows"`
	Confidence  float64       `json:"confidence" yaml:"confidence"`

	// SupportsFindingIDs lists findings this table provides evidence for.
	SupportsFindingIDs []string `json:"supportsFindingIds" yaml:"supportsFindingIds"`
}

// ConnectionType is the relation carried by an intra-document connection.
type ConnectionType string

const (
	ConnectionSupports    ConnectionType = "supports"
	ConnectionContradicts ConnectionType = "contradicts"
	ConnectionExtends     ConnectionType = "extends"
	ConnectionRequires    ConnectionType = "requires"
	ConnectionExplains    ConnectionType = "explains"
	ConnectionQualifies   ConnectionType = "qualifies"
)

// ConnectionTypes lists the accepted ConnectionType values.
var ConnectionTypes = []ConnectionType{
	ConnectionSupports, ConnectionContradicts, ConnectionExtends,
	ConnectionRequires, ConnectionExplains, ConnectionQualifies,
}

// IntraConnection is a directed edge between two findings of one document.
// Both endpoints always resolve to findings in the same graph.
type IntraConnection struct {
	ID            string         `json:"id" yaml:"id"`
	FromFindingID string         `json:"fromFindingId" yaml:"fromFindingId"`
	ToFindingID   string         `json:"toFindingId" yaml:"toFindingId"`
	Type          ConnectionType `json:"connectionType" yaml:"connectionType"`
	Explanation   string         `json:"explanation" yaml:"explanation"`

	// Explicit is true when the source text states the relationship.
	Explicit bool `json:"explicit" yaml:"explicit"`
}

// CrossRelationType is the suggested relation for a cross-document hint.
type CrossRelationType string

const (
	CrossSameTopic    CrossRelationType = "same-topic"
	CrossSupports     CrossRelationType = "supports"
	CrossContradicts  CrossRelationType = "contradicts"
	CrossExtends      CrossRelationType = "extends"
	CrossUsesMethod   CrossRelationType = "uses-method"
	CrossProvidesData CrossRelationType = "provides-data"
)

// CrossRelationTypes lists the accepted CrossRelationType values.
var CrossRelationTypes = []CrossRelationType{
	CrossSameTopic, CrossSupports, CrossContradicts, CrossExtends, CrossUsesMethod, CrossProvidesData,
}

// PotentialConnection is a one-sided hint that a finding may relate to
// material in another document. Matching happens outside the pipeline.
type PotentialConnection struct {
	FindingID         string            `json:"findingId" yaml:"findingId"`
	RelationshipType  CrossRelationType `json:"relationshipType" yaml:"relationshipType"`
	TargetDescription string            `json:"targetDescription" yaml:"targetDescription"`
	Keywords          []string          `json:"keywords" yaml:"keywords"`
	Reasoning         string            `json:"reasoning" yaml:"reasoning"`
}
