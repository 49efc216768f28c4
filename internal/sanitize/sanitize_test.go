// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// decode parses a JSON literal the way a provider hands responses over.
func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

// reencode serializes a sanitized value and parses it back to untyped JSON.
func reencode(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return decode(t, string(data))
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func findingsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"title": "Finding %d", "description": "Body %d", "findingType": "central-finding", "confidence": 0.8}`, i, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// --- classification ---

func TestParseClassification_AlwaysPopulated(t *testing.T) {
	inputs := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"string", "not an object"},
		{"list", []any{1, 2}},
		{"unknown enums", decode(t, `{"paperType": "novel", "structuralQuality": "messy", "dataRichness": 3}`)},
		{"non-numeric confidence", decode(t, `{"paperType": "review", "confidence": "high"}`)},
		{"flags wrong type", decode(t, `{"flags": "yes", "confidence": 7}`)},
		{"hints out of range", decode(t, `{"confidence": -1, "extractionHints": {"expectedFindingCount": 40, "suggestedDepth": "ultra", "prioritySections": [1, "", "Results"]}}`)},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ParseClassification(tt.raw)

			assert.True(t, contains(types.PaperTypes, got.PaperType), "paperType %q", got.PaperType)
			assert.True(t, contains(types.StructuralQualities, got.StructuralQuality))
			assert.True(t, contains(types.DataRichnessLevels, got.DataRichness))
			assert.True(t, contains(types.ExtractionDepths, got.Hints.SuggestedDepth))
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
			assert.GreaterOrEqual(t, got.Hints.ExpectedFindingCount, 1)
			assert.LessOrEqual(t, got.Hints.ExpectedFindingCount, 15)
		})
	}
}

func TestParseClassification_Coercion(t *testing.T) {
	got, rep := ParseClassification(decode(t, `{
		"paperType": "Short_Communication",
		"structuralQuality": "well structured",
		"dataRichness": "HIGH",
		"confidence": 7,
		"extractionHints": {"expectedFindingCount": 3.6, "suggestedDepth": "deep", "prioritySections": ["Results", 4]}
	}`))

	assert.Equal(t, types.PaperShortCommunication, got.PaperType)
	assert.Equal(t, types.StructureWell, got.StructuralQuality)
	assert.Equal(t, types.DataHigh, got.DataRichness)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, 4, got.Hints.ExpectedFindingCount)
	assert.Equal(t, types.DepthDeep, got.Hints.SuggestedDepth)
	assert.Equal(t, []string{"Results", "4"}, got.Hints.PrioritySections)
	assert.Equal(t, types.QualityFlags{}, got.Flags)

	var paths []string
	for _, s := range rep.Substitutions {
		paths = append(paths, s.Path)
	}
	assert.Contains(t, paths, "flags")
	assert.Contains(t, paths, "confidence")
}

func TestDefaultClassification(t *testing.T) {
	got := DefaultClassification()
	assert.Equal(t, types.PaperResearchArticle, got.PaperType)
	assert.Equal(t, types.StructurePartial, got.StructuralQuality)
	assert.Equal(t, types.DataMedium, got.DataRichness)
	assert.Equal(t, 0.5, got.Confidence)
	assert.Equal(t, 5, got.Hints.ExpectedFindingCount)
	assert.Equal(t, types.DepthStandard, got.Hints.SuggestedDepth)
}

// --- extraction ---

func TestParseExtraction_FindingBounds(t *testing.T) {
	longTitle := strings.Repeat("é", 250)
	longQuote := strings.Repeat("q", 600)
	raw := decode(t, fmt.Sprintf(`{"findings": [
		{"title": %q, "description": "d", "findingType": "nonsense", "confidence": 1.4, "pages": [3, 3, -1, 2.5, "7"],
		 "quotes": ["a", "b", {"text": %q, "page": 0, "position": "Late"}, {"text": ""}, "c", "d", "e", "f"]},
		{"title": "", "description": ""},
		{"description": "Only a description"}
	]}`, longTitle, longQuote))

	got, _ := ParseExtraction(raw, types.PaperResearchArticle)
	require.Len(t, got.Findings, 2)

	f := got.Findings[0]
	assert.Equal(t, 200, len([]rune(f.Title)))
	assert.Equal(t, types.FindingSupporting, f.FindingType)
	assert.Equal(t, 1.0, f.Confidence)
	assert.Equal(t, []int{3, 7}, f.Pages)
	require.Len(t, f.Quotes, 5)
	assert.Equal(t, 500, len(f.Quotes[2].Text))
	assert.Equal(t, 0, f.Quotes[2].Page)
	assert.Equal(t, types.PositionLate, f.Quotes[2].Position)

	assert.Equal(t, "Only a description", got.Findings[1].Title)
	assert.Nil(t, got.ReviewSpecific)
}

func TestParseExtraction_TruncatesCollections(t *testing.T) {
	var tables, conns []string
	for i := 0; i < 12; i++ {
		tables = append(tables, fmt.Sprintf(`{"name": "T%d", "columns": ["a"], "rows": [{"label": "r", "values": {"a": 1}}]}`, i))
	}
	for i := 0; i < 25; i++ {
		conns = append(conns, fmt.Sprintf(`{"fromFindingIndex": %d, "toFindingIndex": %d, "connectionType": "extends"}`, i%10, i%10+1))
	}
	raw := decode(t, fmt.Sprintf(`{"findings": %s, "dataTables": [%s], "intraConnections": [%s]}`,
		findingsJSON(20), strings.Join(tables, ","), strings.Join(conns, ",")))

	got, _ := ParseExtraction(raw, types.PaperResearchArticle)
	assert.Len(t, got.Findings, 15)
	assert.Len(t, got.DataTables, 10)
	assert.Len(t, got.IntraConnections, 20)
}

func TestParseExtraction_ConnectionReferences(t *testing.T) {
	raw := decode(t, `{
		"findings": [
			{"title": "A"},
			{"title": "", "description": ""},
			{"title": "C"},
			{"title": "D"}
		],
		"intraConnections": [
			{"fromFindingIndex": 0, "toFindingIndex": 2, "connectionType": "contradicts", "explicit": true},
			{"fromFindingIndex": 0, "toFindingIndex": 1, "connectionType": "supports"},
			{"fromFindingIndex": 3, "toFindingIndex": 3},
			{"fromFindingIndex": 3, "toFindingIndex": 99, "connectionType": "bogus"},
			{"fromFindingIndex": -1, "toFindingIndex": 0},
			{"fromFindingIndex": 1.5, "toFindingIndex": 0},
			{"fromFindingIndex": "2", "toFindingIndex": "3", "connectionType": "Explains", "explicit": "false"}
		]
	}`)

	got, _ := ParseExtraction(raw, types.PaperResearchArticle)
	require.Len(t, got.Findings, 3)
	require.Len(t, got.IntraConnections, 3)

	// Position 2 moved to 1 after the empty finding was dropped.
	assert.Equal(t, RawConnection{FromFindingIndex: 0, ToFindingIndex: 1, ConnectionType: types.ConnectionContradicts, Explicit: true}, got.IntraConnections[0])
	// Out-of-range positions survive sanitizing; the assembler rejects them.
	assert.Equal(t, 99, got.IntraConnections[1].ToFindingIndex)
	assert.Equal(t, types.ConnectionSupports, got.IntraConnections[1].ConnectionType)
	assert.Equal(t, RawConnection{FromFindingIndex: 1, ToFindingIndex: 2, ConnectionType: types.ConnectionExplains}, got.IntraConnections[2])
}

func TestParseExtraction_Tables(t *testing.T) {
	cols := make([]string, 25)
	for i := range cols {
		cols[i] = fmt.Sprintf(`{"name": "c%d", "unit": "mg"}`, i)
	}
	rows := make([]string, 60)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"label": "r%d", "values": {"c0": %d, "unknown": "x"}}`, i, i)
	}
	raw := decode(t, fmt.Sprintf(`{"findings": [{"title": "A"}, {"title": "B"}], "dataTables": [
		{"columns": [%s], "rows": [%s], "relatedFindingIndices": [1, 1, 0, -2], "confidence": "0.7"},
		{"name": "Positional", "columns": ["dose", "response", "dose"], "rows": [{"label": "low", "values": [1, "2", 3]}, {"label": "", "values": {}}]},
		{"name": "No columns", "rows": [{"label": "x"}]}
	]}`, strings.Join(cols, ","), strings.Join(rows, ",")))

	got, _ := ParseExtraction(raw, types.PaperResearchArticle)
	require.Len(t, got.DataTables, 2)

	big := got.DataTables[0]
	assert.Equal(t, "Untitled table", big.Name)
	assert.Len(t, big.Columns, 20)
	assert.Len(t, big.Rows, 50)
	assert.Equal(t, map[string]string{"c0": "0"}, big.Rows[0].Values)
	assert.Equal(t, []int{1, 0}, big.RelatedFindingIndices)
	assert.Equal(t, 0.7, big.Confidence)

	pos := got.DataTables[1]
	assert.Equal(t, []types.TableColumn{{Name: "dose"}, {Name: "response"}}, pos.Columns)
	require.Len(t, pos.Rows, 1)
	assert.Equal(t, map[string]string{"dose": "1", "response": "2"}, pos.Rows[0].Values)
}

func TestParseExtraction_PotentialConnections(t *testing.T) {
	raw := decode(t, `{"findings": [{"title": "A"}], "potentialConnections": [
		{"findingIndex": 0, "relationshipType": "cites", "targetDescription": "Work on X", "keywords": ["x", "", "y"]},
		{"findingIndex": 0, "targetDescription": ""},
		{"relationshipType": "supports", "targetDescription": "no anchor"}
	]}`)

	got, _ := ParseExtraction(raw, types.PaperResearchArticle)
	require.Len(t, got.PotentialConnections, 1)
	assert.Equal(t, types.CrossSameTopic, got.PotentialConnections[0].RelationshipType)
	assert.Equal(t, []string{"x", "y"}, got.PotentialConnections[0].Keywords)
}

func TestParseExtraction_ReviewGaps(t *testing.T) {
	gaps := []string{
		`{"description": "g0", "gapType": "methodological", "importance": "high"}`,
		`{"description": "g1", "gapType": "unheard-of"}`,
		`{"description": "", "gapType": "empirical"}`,
		`"g3 as a string"`,
		`42`,
	}
	for i := 4; i < 14; i++ {
		gaps = append(gaps, fmt.Sprintf(`{"description": "g%d", "gapType": "population"}`, i))
	}
	body := fmt.Sprintf(`{"findings": [{"title": "A"}, {"title": "B"}], "reviewSpecific": {
		"synthesisThemes": [{"theme": "T", "findingIndices": [0, 1, 5]}],
		"identifiedGaps": [%s],
		"futureDirections": ["more data"],
		"chronologicalTrends": [{"period": "2010s", "description": "rise"}, {"period": "2020s"}]
	}}`, strings.Join(gaps, ","))

	got, _ := ParseExtraction(decode(t, body), types.PaperReview)
	require.NotNil(t, got.ReviewSpecific)
	r := got.ReviewSpecific

	require.Len(t, r.IdentifiedGaps, 10)
	assert.Equal(t, types.GapMethodological, r.IdentifiedGaps[0].GapType)
	assert.Equal(t, types.ImportanceHigh, r.IdentifiedGaps[0].Importance)
	assert.Equal(t, types.GapKnowledge, r.IdentifiedGaps[1].GapType)
	assert.Equal(t, types.ImportanceMedium, r.IdentifiedGaps[1].Importance)
	assert.Equal(t, types.GapKnowledge, r.IdentifiedGaps[2].GapType)
	for _, g := range r.IdentifiedGaps {
		assert.True(t, contains(types.GapTypes, g.GapType))
	}
	assert.Equal(t, []int{0, 1, 5}, r.SynthesisThemes[0].FindingIndices)
	assert.Len(t, r.ChronologicalTrends, 1)
	assert.Equal(t, []string{"more data"}, r.FutureDirections)

	nonReview, _ := ParseExtraction(decode(t, body), types.PaperMethods)
	assert.Nil(t, nonReview.ReviewSpecific)
}

func TestParseExtraction_MissingReviewBlock(t *testing.T) {
	got, rep := ParseExtraction(decode(t, `{"findings": [{"title": "A"}]}`), types.PaperReview)
	require.NotNil(t, got.ReviewSpecific)
	assert.Empty(t, got.ReviewSpecific.IdentifiedGaps)
	assert.Positive(t, rep.Len())
}

// --- thesis ---

func TestParseThesis_ForeignDocumentsDropped(t *testing.T) {
	raw := decode(t, `{"overallRelevance": 4, "paperConnections": [
		{"existingPaperId": "foreign-1", "connectionType": "supports"},
		{"existingPaperId": "foreign-2"}
	]}`)

	got, rep := ParseThesis(raw, ThesisScope{FindingCount: 2, ExistingIDs: []string{"doc-a", "doc-b"}})
	assert.Empty(t, got.PaperConnections)

	dropped := 0
	for _, s := range rep.Substitutions {
		if strings.HasPrefix(s.Path, "paperConnections[") {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestParseThesis_BlankExistingIDsMatchNothing(t *testing.T) {
	raw := decode(t, `{"paperConnections": [
		{"connectionType": "supports"},
		{"existingPaperId": "  ", "connectionType": "extends"},
		{"existingPaperId": " doc-a ", "connectionType": "extends"}
	]}`)

	got, _ := ParseThesis(raw, ThesisScope{ExistingIDs: []string{"", "  ", " doc-a"}})
	require.Len(t, got.PaperConnections, 1)
	assert.Equal(t, "doc-a", got.PaperConnections[0].ExistingDocumentID)
}

func TestParseThesis_Fields(t *testing.T) {
	raw := decode(t, `{
		"overallRelevance": 9,
		"suggestedRole": {"role": "Method", "confidence": 1.5},
		"reasoning": "because",
		"thesisTakeaway": "Takeaway.",
		"alternativeTakeaways": ["a", "b", "c", "d", "e", "f"],
		"findingRelevance": [
			{"findingIndex": 0, "relevanceScore": 0, "dimension": "evidence"},
			{"findingIndex": 0, "relevanceScore": 5},
			{"findingIndex": 1, "relevanceScore": 3.6, "dimension": "vibes"},
			{"findingIndex": 7, "relevanceScore": 5}
		],
		"paperConnections": [
			{"existingPaperId": "doc-a", "connectionType": "extends", "strength": 0.9},
			{"existingPaperId": "doc-a", "connectionType": "supports"},
			{"existingPaperId": "doc-x"}
		]
	}`)

	got, _ := ParseThesis(raw, ThesisScope{FindingCount: 2, ExistingIDs: []string{"doc-a"}})
	assert.Equal(t, 5, got.OverallRelevance)
	assert.Equal(t, types.RoleMethod, got.SuggestedRole)
	assert.Equal(t, 1.0, got.RoleConfidence)
	assert.Len(t, got.AlternativeTakeaways, 5)
	require.Len(t, got.FindingRelevance, 2)
	assert.Equal(t, 1, got.FindingRelevance[0].RelevanceScore)
	assert.Equal(t, types.DimensionEvidence, got.FindingRelevance[0].Dimension)
	assert.Equal(t, 4, got.FindingRelevance[1].RelevanceScore)
	assert.Equal(t, types.DimensionOther, got.FindingRelevance[1].Dimension)
	require.Len(t, got.PaperConnections, 1)
	assert.Equal(t, types.CrossExtends, got.PaperConnections[0].Type)
}

func TestParseThesis_Defaults(t *testing.T) {
	got, _ := ParseThesis(nil, ThesisScope{})
	assert.Equal(t, 3, got.OverallRelevance)
	assert.Equal(t, types.RoleBackground, got.SuggestedRole)
	assert.Equal(t, 0.5, got.RoleConfidence)
}

// --- fixed point ---

const messyExtraction = `{
	"findings": [
		{"title": "  Padded title  ", "description": "x", "findingType": "LIMITATION", "pages": [2, "4", 4], "section": "Results",
		 "quotes": ["bare quote", {"text": "obj quote", "page": "3", "pageLabel": "iii", "position": "middle"}], "confidence": "0.9"},
		{"title": "", "description": "desc only"},
		{"title": ""},
		{"title": "third", "confidence": 2}
	],
	"dataTables": [{"name": "", "columns": ["a", {"name": "b", "unit": "s"}], "rows": [{"label": "r1", "values": [1, true]}, {"values": {"a": null}}], "relatedFindingIndices": [0, 2, 3, 40]}],
	"intraConnections": [{"fromFindingIndex": 0, "toFindingIndex": 3}, {"fromFindingIndex": 3, "toFindingIndex": 12, "connectionType": "qualifies"}],
	"experimentalSystem": 12,
	"keyContributions": ["k1", "", 3],
	"potentialConnections": [{"findingIndex": 3, "targetDescription": "elsewhere", "keywords": ["z"]}],
	"reviewSpecific": {"identifiedGaps": ["g", {"description": "h", "gapType": "zzz"}], "synthesisThemes": [{"theme": "t", "findingIndices": [3, 9]}]}
}`

func TestSanitizers_FixedPoint(t *testing.T) {
	t.Run("classification", func(t *testing.T) {
		first, _ := ParseClassification(decode(t, `{"paperType": "Meta Analysis", "confidence": "2", "flags": {"tooLong": "true"}, "extractionHints": {"prioritySections": ["  Methods "], "expectedFindingCount": 0.2}}`))
		second, rep := ParseClassification(reencode(t, first))
		assert.Empty(t, cmp.Diff(first, second))
		assert.Zero(t, rep.Len())
	})

	t.Run("extraction", func(t *testing.T) {
		for _, pt := range []types.PaperType{types.PaperReview, types.PaperResearchArticle} {
			first, _ := ParseExtraction(decode(t, messyExtraction), pt)
			second, _ := ParseExtraction(reencode(t, first), pt)
			assert.Empty(t, cmp.Diff(first, second), "paper type %s", pt)
		}
	})

	t.Run("thesis", func(t *testing.T) {
		scope := ThesisScope{FindingCount: 3, ExistingIDs: []string{"a", "b"}}
		first, _ := ParseThesis(decode(t, `{"overallRelevance": "4.4", "suggestedRole": {"role": "supports"}, "findingRelevance": [{"findingIndex": 2, "relevanceScore": 7}], "paperConnections": [{"existingPaperId": "b", "strength": -3}, {"existingPaperId": "q"}]}`), scope)
		second, _ := ParseThesis(reencode(t, first), scope)
		assert.Empty(t, cmp.Diff(first, second))
	})
}
