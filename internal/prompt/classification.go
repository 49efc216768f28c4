// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"text/template"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const classificationSystem = `You are an expert in scholarly communication. You assess academic documents before detailed analysis: what kind of document it is, how well its text survived conversion, and how much structured data it contains. Respond with a single JSON object and nothing else.`

var classificationTmpl = template.Must(template.New("classification").Parse(`Classify the academic document below so that a later analysis step can be tuned to it.

Title: {{.Doc.Title}}
{{- if .Authors}}
Authors: {{.Authors}}{{end}}
{{- if .Doc.Year}}
Year: {{.Doc.Year}}{{end}}
{{- if .Doc.Venue}}
Venue: {{.Doc.Venue}}{{end}}
Estimated length: {{.Doc.PageCount}} pages, {{.Doc.WordCount}} words
Reference entries detected: {{.References}}
{{- if .Doc.Abstract}}

Abstract:
{{.Doc.Abstract}}{{end}}

Text sample{{if .Truncated}} (first {{.SampleSize}} characters){{end}}:
{{.Sample}}

Respond with a JSON object of exactly this shape:
{
  "paperType": one of {{.PaperTypes}},
  "structuralQuality": one of {{.Qualities}},
  "dataRichness": one of {{.Richness}},
  "confidence": number between 0.0 and 1.0,
  "flags": {
    "poorTextQuality": true if the text is garbled or has conversion artefacts,
    "missingSections": true if expected sections (methods, results) are absent,
    "tooShort": true if there is too little text for meaningful analysis,
    "tooLong": true if the document is much longer than a typical article
  },
  "extractionHints": {
    "prioritySections": up to 10 section headings most worth reading closely,
    "expectedFindingCount": integer between 1 and 15,
    "suggestedDepth": one of {{.Depths}}
  }
}
`))

type classificationData struct {
	Doc        types.DocumentContext
	Authors    string
	References int
	Sample     string
	SampleSize int
	Truncated  bool
	PaperTypes string
	Qualities  string
	Richness   string
	Depths     string
}

// Classification renders the Stage 1 prompt: document metadata, a bounded
// sample from the start of the text and the reference count.
func Classification(doc types.DocumentContext) (Prompt, error) {
	doc = doc.WithEstimates()
	sample := truncateRunes(doc.FullText, ClassificationSample)
	user, err := render(classificationTmpl, classificationData{
		Doc:        doc,
		Authors:    doc.AuthorList(),
		References: CountReferences(doc.FullText),
		Sample:     sample,
		SampleSize: ClassificationSample,
		Truncated:  len(sample) < len(doc.FullText),
		PaperTypes: quoted(types.PaperTypes),
		Qualities:  quoted(types.StructuralQualities),
		Richness:   quoted(types.DataRichnessLevels),
		Depths:     quoted(types.ExtractionDepths),
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: classificationSystem, User: user}, nil
}
