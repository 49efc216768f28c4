// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"text/template"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// maxFindings is the upper bound stated in the Stage 2 output contract.
const maxFindings = 15

const generalSystem = `You are a research analyst building a knowledge graph from academic documents. You extract the document's findings with page-level provenance, the quantitative tables that back them, and how the findings relate to each other. Quote the source text exactly; never invent page numbers or quotes. Respond with a single JSON object and nothing else.`

const reviewSystem = `You are a research analyst building a knowledge graph from review articles. A review's contribution is its synthesis: the themes it draws across the literature, the gaps it identifies, and where it says the field should go next. Extract the review's own conclusions as findings, citing pages and quoting the source text exactly. Respond with a single JSON object and nothing else.`

const methodsSystem = `You are a research analyst building a knowledge graph from methods papers. Focus on the technique itself: what problem it solves, how it works, how it was validated, and its stated limits. Treat validation results as findings and the procedure's steps as methodological findings. Quote the source text exactly. Respond with a single JSON object and nothing else.`

const shortCommunicationSystem = `You are a research analyst building a knowledge graph from short communications. These documents are brief and usually report one central result; extract it precisely along with any supporting data, without padding the list with minor observations. Quote the source text exactly. Respond with a single JSON object and nothing else.`

// systemInstructions maps a paper type to its Stage 2 system instruction.
// Types not listed use generalSystem.
var systemInstructions = map[types.PaperType]string{
	types.PaperReview:             reviewSystem,
	types.PaperMethods:            methodsSystem,
	types.PaperShortCommunication: shortCommunicationSystem,
}

// SystemInstruction returns the Stage 2 system instruction for a paper type.
func SystemInstruction(pt types.PaperType) string {
	if s, ok := systemInstructions[pt]; ok {
		return s
	}
	return generalSystem
}

var extractionTmpl = template.Must(template.New("extraction").Parse(`Analyse the {{.Classification.PaperType}} below and extract its findings.

Title: {{.Doc.Title}}
{{- if .Authors}}
Authors: {{.Authors}}{{end}}
{{- if .Doc.Year}}
Year: {{.Doc.Year}}{{end}}
{{- if .Doc.Venue}}
Venue: {{.Doc.Venue}}{{end}}
Structure: {{.Classification.StructuralQuality}}, data richness: {{.Classification.DataRichness}}
{{- if .Classification.Flags.PoorTextQuality}}
Note: the text has conversion artefacts; prefer findings you can read with confidence.{{end}}
{{- if .Doc.Abstract}}

Abstract:
{{.Doc.Abstract}}{{end}}

Extract up to {{.MaxFindings}} findings (about {{.Expected}} are expected). Each finding needs:
- title: a short statement of the finding
- description: what was found and under which conditions
- findingType: one of {{.FindingTypes}}
- pages: page numbers where the finding is reported
- section: the section heading it appears under
- quotes: up to 5 verbatim quotes, each {"text", "page", "pageLabel", "position"} where position is "early", "middle" or "late" in the document
- confidence: number between 0.0 and 1.0

Findings are referred to elsewhere by their 0-based position in the findings array.

Respond with a JSON object of exactly this shape:
{
  "findings": [ ... ],
  "dataTables": [{"name", "description", "page", "columns": [{"name", "unit"}], "rows": [{"label", "values": {"<column name>": "<value>"}}], "confidence", "relatedFindingIndices": [0]}],
  "intraConnections": [{"fromFindingIndex": 0, "toFindingIndex": 1, "connectionType": one of {{.ConnectionTypes}}, "explanation", "explicit": true if the document states the link}],
  "experimentalSystem": the system, population or material studied,
  "keyContributions": [up to 10 strings],
  "limitations": [up to 10 strings],
  "openQuestions": [up to 10 strings],
  "potentialConnections": [{"findingIndex": 0, "relationshipType": one of {{.CrossTypes}}, "targetDescription": the kind of work this finding would connect to, "keywords": [up to 10], "reasoning"}]
{{- if .IncludeReview}},
  "reviewSpecific": {
    "synthesisThemes": [{"theme", "description", "findingIndices": [0]}],
    "identifiedGaps": [{"description", "gapType": one of {{.GapTypes}}, "importance": one of "high", "medium", "low"}],
    "futureDirections": [up to 10 strings],
    "chronologicalTrends": [{"period", "description"}]
  }
{{- end}}
}

Use empty arrays when nothing applies. Only connect findings that exist in your findings array.

Document text{{if .Truncated}} (excerpt, {{.Budget}} characters at most; priority sections first){{end}}:
{{.Excerpt}}
`))

type extractionData struct {
	Doc             types.DocumentContext
	Authors         string
	Classification  types.ClassificationResult
	Excerpt         string
	Truncated       bool
	Budget          int
	MaxFindings     int
	Expected        int
	IncludeReview   bool
	FindingTypes    string
	ConnectionTypes string
	CrossTypes      string
	GapTypes        string
}

// Extraction renders the Stage 2 prompt. The system instruction depends on
// the paper type and the text budget on the suggested depth.
func Extraction(doc types.DocumentContext, c types.ClassificationResult) (Prompt, error) {
	budget := DepthBudget(c.Hints.SuggestedDepth)
	excerpt, truncated := SelectExcerpt(doc.FullText, budget, c.Hints.PrioritySections)

	expected := c.Hints.ExpectedFindingCount
	if expected < 1 || expected > maxFindings {
		expected = 5
	}

	user, err := render(extractionTmpl, extractionData{
		Doc:             doc,
		Authors:         doc.AuthorList(),
		Classification:  c,
		Excerpt:         excerpt,
		Truncated:       truncated,
		Budget:          budget,
		MaxFindings:     maxFindings,
		Expected:        expected,
		IncludeReview:   c.IsReview(),
		FindingTypes:    quoted(types.FindingTypes),
		ConnectionTypes: quoted(types.ConnectionTypes),
		CrossTypes:      quoted(types.CrossRelationTypes),
		GapTypes:        quoted(types.GapTypes),
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: SystemInstruction(c.PaperType), User: user}, nil
}
