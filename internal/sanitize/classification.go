// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

import "github.com/pdiddy/paper-graph/pkg/types"

const (
	defaultConfidence    = 0.5
	defaultExpectedCount = 5
)

// Classification sanitizes a Stage 1 response. Missing or invalid fields
// fall back to a research article of medium data richness, standard depth.
func (p *Parser) Classification(raw any) (types.ClassificationResult, Report) {
	var rep Report
	f := newFields(raw, "", &rep)

	out := types.ClassificationResult{
		PaperType:         enum(f, "paperType", types.PaperTypes, types.PaperResearchArticle),
		StructuralQuality: enum(f, "structuralQuality", types.StructuralQualities, types.StructurePartial),
		DataRichness:      enum(f, "dataRichness", types.DataRichnessLevels, types.DataMedium),
		Confidence:        f.confidence("confidence", defaultConfidence),
	}

	if !f.present("flags") {
		rep.note("flags", "missing, all flags false")
	}
	flags := f.object("flags")
	out.Flags = types.QualityFlags{
		PoorTextQuality: flags.boolean("poorTextQuality", false),
		MissingSections: flags.boolean("missingSections", false),
		TooShort:        flags.boolean("tooShort", false),
		TooLong:         flags.boolean("tooLong", false),
	}

	hints := f.object("extractionHints")
	out.Hints = types.ExtractionHints{
		PrioritySections:     hints.strList("prioritySections", p.Limits.MaxPrioritySections, p.Limits.LabelLen),
		ExpectedFindingCount: hints.intIn("expectedFindingCount", 1, p.Limits.MaxFindings, defaultExpectedCount),
		SuggestedDepth:       enum(hints, "suggestedDepth", types.ExtractionDepths, types.DepthStandard),
	}

	return out, rep
}

// ParseClassification sanitizes a Stage 1 response with the default limits.
func ParseClassification(raw any) (types.ClassificationResult, Report) {
	return defaultParser.Classification(raw)
}

// DefaultClassification is the result used when nothing is known about a
// document.
func DefaultClassification() types.ClassificationResult {
	c, _ := ParseClassification(nil)
	return c
}
