// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

import (
	"strings"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const defaultRelevance = 3

// ThesisScope is what Stage 3 was shown: the number of findings it scored
// and the documents it may link to.
type ThesisScope struct {
	FindingCount int
	ExistingIDs  []string
}

// ThesisResponse is the sanitized Stage 3 response.
type ThesisResponse struct {
	OverallRelevance     int                        `json:"overallRelevance" yaml:"overallRelevance"`
	SuggestedRole        types.ThesisRole           `json:"suggestedRole" yaml:"suggestedRole"`
	RoleConfidence       float64                    `json:"roleConfidence" yaml:"roleConfidence"`
	Reasoning            string                     `json:"reasoning" yaml:"reasoning"`
	ThesisTakeaway       string                     `json:"thesisTakeaway" yaml:"thesisTakeaway"`
	AlternativeTakeaways []string                   `json:"alternativeTakeaways" yaml:"alternativeTakeaways"`
	FindingRelevance     []RawFindingRelevance      `json:"findingRelevance" yaml:"findingRelevance"`
	PaperConnections     []types.DocumentConnection `json:"paperConnections" yaml:"paperConnections"`
}

// RawFindingRelevance scores the finding at FindingIndex.
type RawFindingRelevance struct {
	FindingIndex   int                      `json:"findingIndex" yaml:"findingIndex"`
	RelevanceScore int                      `json:"relevanceScore" yaml:"relevanceScore"`
	Dimension      types.RelevanceDimension `json:"dimension" yaml:"dimension"`
	Reasoning      string                   `json:"reasoning" yaml:"reasoning"`
}

// Thesis sanitizes a Stage 3 response. Connections naming a document outside
// scope.ExistingIDs are dropped, as are duplicate connections to one document.
// Finding scores outside [0, scope.FindingCount) are dropped when
// FindingCount is set.
func (p *Parser) Thesis(raw any, scope ThesisScope) (ThesisResponse, Report) {
	var rep Report
	f := newFields(raw, "", &rep)

	out := ThesisResponse{
		OverallRelevance:     f.intIn("overallRelevance", 1, 5, defaultRelevance),
		Reasoning:            f.str("reasoning", p.Limits.ReasoningLen),
		ThesisTakeaway:       f.str("thesisTakeaway", p.Limits.TakeawayLen),
		AlternativeTakeaways: f.strList("alternativeTakeaways", p.Limits.MaxAlternativeTakeaways, p.Limits.TakeawayLen),
	}

	// suggestedRole may be a bare role or {role, confidence}.
	if _, isObject := f.m["suggestedRole"].(map[string]any); isObject {
		role := f.object("suggestedRole")
		out.SuggestedRole = enum(role, "role", types.ThesisRoles, types.RoleBackground)
		out.RoleConfidence = role.confidence("confidence", defaultConfidence)
	} else {
		out.SuggestedRole = enum(f, "suggestedRole", types.ThesisRoles, types.RoleBackground)
		out.RoleConfidence = f.confidence("roleConfidence", defaultConfidence)
	}

	seenFinding := map[int]bool{}
	for _, it := range f.objects("findingRelevance") {
		idx, ok := it.f.index("findingIndex")
		if !ok || seenFinding[idx] || (scope.FindingCount > 0 && idx >= scope.FindingCount) {
			rep.note(it.f.path, "dropped score without a valid or unique finding index")
			continue
		}
		if len(out.FindingRelevance) == p.Limits.MaxFindingRelevance {
			rep.note("findingRelevance", "truncated to %d scores", p.Limits.MaxFindingRelevance)
			break
		}
		seenFinding[idx] = true
		out.FindingRelevance = append(out.FindingRelevance, RawFindingRelevance{
			FindingIndex:   idx,
			RelevanceScore: it.f.intIn("relevanceScore", 1, 5, defaultRelevance),
			Dimension:      enum(it.f, "dimension", types.RelevanceDimensions, types.DimensionOther),
			Reasoning:      it.f.str("reasoning", p.Limits.ReasoningLen),
		})
	}

	allowed := make(map[string]bool, len(scope.ExistingIDs))
	for _, id := range scope.ExistingIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = true
		}
	}
	linked := map[string]bool{}
	for _, it := range f.objects("paperConnections") {
		id := it.f.str("existingPaperId", 0)
		if !allowed[id] {
			rep.note(it.f.path, "dropped connection to unknown document %q", id)
			continue
		}
		if linked[id] {
			rep.note(it.f.path, "dropped duplicate connection to %q", id)
			continue
		}
		if len(out.PaperConnections) == p.Limits.MaxDocumentConnections {
			rep.note("paperConnections", "truncated to %d connections", p.Limits.MaxDocumentConnections)
			break
		}
		linked[id] = true
		out.PaperConnections = append(out.PaperConnections, types.DocumentConnection{
			ExistingDocumentID: id,
			Type:               enum(it.f, "connectionType", types.CrossRelationTypes, types.CrossSameTopic),
			Explanation:        it.f.str("explanation", p.Limits.ExplanationLen),
			Strength:           it.f.confidence("strength", defaultConfidence),
		})
	}

	return out, rep
}

// ParseThesis sanitizes a Stage 3 response with the default limits.
func ParseThesis(raw any, scope ThesisScope) (ThesisResponse, Report) {
	return defaultParser.Thesis(raw, scope)
}
