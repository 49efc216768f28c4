// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"text/template"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// MaxExistingDocuments bounds how many existing documents are listed.
const MaxExistingDocuments = 15

const thesisSystem = `You are a research advisor helping a researcher place a newly read document within their thesis. Judge how the document bears on the thesis, which of its findings matter most, and how it relates to documents the researcher has already collected. Refer to existing documents only by the identifiers given. Respond with a single JSON object and nothing else.`

var thesisTmpl = template.Must(template.New("thesis").Parse(`Thesis: {{.Thesis.Title}}
{{- if .Thesis.Description}}

{{.Thesis.Description}}{{end}}

Findings extracted from the new document (referred to by index):
{{- range $i, $f := .Findings}}
[{{$i}}] ({{$f.Type}}) {{$f.Title}}{{if $f.Description}}: {{$f.Description}}{{end}}
{{- else}}
(none){{end}}
{{- if .Existing}}

Documents already in the collection:
{{- range .Existing}}
- id: {{.ID}}; title: {{.Title}}{{if .Year}} ({{.Year}}){{end}}{{if .Role}}; role: {{.Role}}{{end}}{{if .Takeaway}}; takeaway: {{.Takeaway}}{{end}}
{{- end}}{{end}}

Respond with a JSON object of exactly this shape:
{
  "overallRelevance": integer from 1 (tangential) to 5 (central),
  "suggestedRole": {"role": one of {{.Roles}}, "confidence": number between 0.0 and 1.0},
  "reasoning": why the document matters to the thesis,
  "thesisTakeaway": one sentence the researcher should remember,
  "alternativeTakeaways": [up to 5 strings],
  "findingRelevance": [{"findingIndex": 0, "relevanceScore": 1 to 5, "dimension": one of {{.Dimensions}}, "reasoning"}],
  "paperConnections": [{"existingPaperId": an id listed above, "connectionType": one of {{.CrossTypes}}, "explanation", "strength": number between 0.0 and 1.0}]
}
{{- if not .Existing}}

There are no documents in the collection yet; return an empty "paperConnections" array.{{end}}
`))

type thesisData struct {
	Thesis     types.ThesisContext
	Existing   []types.ExistingDocument
	Findings   []types.Finding
	Roles      string
	Dimensions string
	CrossTypes string
}

// Thesis renders the Stage 3 prompt. At most MaxExistingDocuments existing
// documents are listed.
func Thesis(thesis types.ThesisContext, existing []types.ExistingDocument, findings []types.Finding) (Prompt, error) {
	if len(existing) > MaxExistingDocuments {
		existing = existing[:MaxExistingDocuments]
	}
	user, err := render(thesisTmpl, thesisData{
		Thesis:     thesis,
		Existing:   existing,
		Findings:   findings,
		Roles:      quoted(types.ThesisRoles),
		Dimensions: quoted(types.RelevanceDimensions),
		CrossTypes: quoted(types.CrossRelationTypes),
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: thesisSystem, User: user}, nil
}
