// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/pdiddy/paper-graph/internal/sanitize"
	"github.com/pdiddy/paper-graph/pkg/types"
)

// dropCounts tallies unresolved references by kind.
type dropCounts map[string]int

func (d dropCounts) total() int {
	n := 0
	for _, v := range d {
		n += v
	}
	return n
}

// stableID generates a deterministic ID from the given parts. The ID is the
// first 12 hex characters of SHA-256 over the parts joined by NUL.
func stableID(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// findingArena holds the materialised findings of one graph. Index
// references from the model resolve against it or are dropped.
type findingArena struct {
	ids     []string
	dropped dropCounts
}

func (a *findingArena) resolve(kind string, pos int) (string, bool) {
	if pos < 0 || pos >= len(a.ids) {
		a.dropped[kind]++
		return "", false
	}
	return a.ids[pos], true
}

func (a *findingArena) resolveAll(kind string, positions []int) []string {
	out := make([]string, 0, len(positions))
	for _, pos := range positions {
		if id, ok := a.resolve(kind, pos); ok {
			out = append(out, id)
		}
	}
	return out
}

// assemble converts a sanitized Stage 2 response into graph entities. Pass
// one materialises findings with stable IDs; pass two resolves every index
// reference against them. newID mints connection IDs.
func assemble(g *types.ExtractionGraph, resp sanitize.ExtractionResponse, newID func() string) dropCounts {
	arena := &findingArena{dropped: dropCounts{}}

	g.Findings = make([]types.Finding, 0, len(resp.Findings))
	for i, rf := range resp.Findings {
		id := stableID(g.DocumentID, strconv.Itoa(i), rf.Title)
		arena.ids = append(arena.ids, id)
		g.Findings = append(g.Findings, types.Finding{
			ID:           id,
			DocumentID:   g.DocumentID,
			Title:        rf.Title,
			Description:  rf.Description,
			Type:         rf.FindingType,
			Pages:        rf.Pages,
			Section:      rf.Section,
			Quotes:       rf.Quotes,
			Confidence:   rf.Confidence,
			DisplayOrder: i,
		})
	}

	g.DataTables = make([]types.DataTable, 0, len(resp.DataTables))
	for i, t := range resp.DataTables {
		g.DataTables = append(g.DataTables, types.DataTable{
			ID:                 stableID(g.DocumentID, "table", strconv.Itoa(i), t.Name),
			Name:               t.Name,
			Description:        t.Description,
			Page:               t.Page,
			Columns:            t.Columns,
			Rows:               t.Rows,
			Confidence:         t.Confidence,
			SupportsFindingIDs: arena.resolveAll("table", t.RelatedFindingIndices),
		})
	}

	g.IntraConnections = make([]types.IntraConnection, 0, len(resp.IntraConnections))
	for _, c := range resp.IntraConnections {
		from, okFrom := arena.resolve("connection", c.FromFindingIndex)
		to, okTo := arena.resolve("connection", c.ToFindingIndex)
		if !okFrom || !okTo || from == to {
			continue
		}
		g.IntraConnections = append(g.IntraConnections, types.IntraConnection{
			ID:            newID(),
			FromFindingID: from,
			ToFindingID:   to,
			Type:          c.ConnectionType,
			Explanation:   c.Explanation,
			Explicit:      c.Explicit,
		})
	}

	g.PotentialConnections = make([]types.PotentialConnection, 0, len(resp.PotentialConnections))
	for _, pc := range resp.PotentialConnections {
		id, ok := arena.resolve("hint", pc.FindingIndex)
		if !ok {
			continue
		}
		g.PotentialConnections = append(g.PotentialConnections, types.PotentialConnection{
			FindingID:         id,
			RelationshipType:  pc.RelationshipType,
			TargetDescription: pc.TargetDescription,
			Keywords:          pc.Keywords,
			Reasoning:         pc.Reasoning,
		})
	}

	g.Summary = types.Summary{
		ExperimentalSystem: resp.ExperimentalSystem,
		KeyContributions:   resp.KeyContributions,
		Limitations:        resp.Limitations,
		OpenQuestions:      resp.OpenQuestions,
	}

	if r := resp.ReviewSpecific; r != nil {
		review := &types.ReviewExtraction{
			IdentifiedGaps:      r.IdentifiedGaps,
			FutureDirections:    r.FutureDirections,
			ChronologicalTrends: r.ChronologicalTrends,
		}
		for _, th := range r.SynthesisThemes {
			review.SynthesisThemes = append(review.SynthesisThemes, types.SynthesisTheme{
				Theme:       th.Theme,
				Description: th.Description,
				FindingIDs:  arena.resolveAll("theme", th.FindingIndices),
			})
		}
		g.ReviewExtraction = review
	}

	return arena.dropped
}

// attachThesis records the Stage 3 assessment on g and merges per-finding
// relevance onto the findings by position.
func attachThesis(g *types.ExtractionGraph, resp sanitize.ThesisResponse) dropCounts {
	dropped := dropCounts{}
	for _, fr := range resp.FindingRelevance {
		if fr.FindingIndex < 0 || fr.FindingIndex >= len(g.Findings) {
			dropped["relevance"]++
			continue
		}
		g.Findings[fr.FindingIndex].Relevance = &types.FindingRelevance{
			Score:     fr.RelevanceScore,
			Dimension: fr.Dimension,
			Reasoning: fr.Reasoning,
		}
	}

	connections := resp.PaperConnections
	if connections == nil {
		connections = []types.DocumentConnection{}
	}
	g.ThesisRelevance = &types.ThesisRelevance{
		OverallRelevance:     resp.OverallRelevance,
		SuggestedRole:        resp.SuggestedRole,
		RoleConfidence:       resp.RoleConfidence,
		Reasoning:            resp.Reasoning,
		Takeaway:             resp.ThesisTakeaway,
		AlternativeTakeaways: resp.AlternativeTakeaways,
		DocumentConnections:  connections,
	}
	return dropped
}
