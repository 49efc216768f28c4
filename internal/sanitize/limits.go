// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

// Limits bounds collection sizes and string lengths. The defaults match the
// caps previous extraction results were produced with; change them only if
// parity with those results does not matter.
type Limits struct {
	MaxFindings             int
	MaxTables               int
	MaxIntraConnections     int
	MaxQuotesPerFinding     int
	MaxPagesPerFinding      int
	MaxColumns              int
	MaxRows                 int
	MaxSummaryItems         int
	MaxReviewItems          int
	MaxPotentialConnections int
	MaxKeywords             int
	MaxPrioritySections     int
	MaxFindingRelevance     int
	MaxDocumentConnections  int
	MaxAlternativeTakeaways int

	TitleLen       int
	DescriptionLen int
	QuoteLen       int
	ExplanationLen int
	ReasoningLen   int
	TakeawayLen    int
	LabelLen       int
	KeywordLen     int
	CellLen        int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{
		MaxFindings:             15,
		MaxTables:               10,
		MaxIntraConnections:     20,
		MaxQuotesPerFinding:     5,
		MaxPagesPerFinding:      10,
		MaxColumns:              20,
		MaxRows:                 50,
		MaxSummaryItems:         10,
		MaxReviewItems:          10,
		MaxPotentialConnections: 10,
		MaxKeywords:             10,
		MaxPrioritySections:     10,
		MaxFindingRelevance:     15,
		MaxDocumentConnections:  10,
		MaxAlternativeTakeaways: 5,

		TitleLen:       200,
		DescriptionLen: 1000,
		QuoteLen:       500,
		ExplanationLen: 500,
		ReasoningLen:   1000,
		TakeawayLen:    300,
		LabelLen:       100,
		KeywordLen:     50,
		CellLen:        200,
	}
}

// Parser sanitizes stage responses under a set of Limits.
// A Parser holds no mutable state and is safe for concurrent use.
type Parser struct {
	Limits Limits
}

// New returns a Parser using l.
func New(l Limits) *Parser {
	return &Parser{Limits: l}
}

var defaultParser = New(DefaultLimits())
