// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sanitize

import (
	"fmt"
	"math"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const (
	untitledTable = "Untitled table"
	pageLabelLen  = 20
)

// ExtractionResponse is the sanitized Stage 2 response. Cross-references are
// still positions into Findings; the graph assembler resolves them.
type ExtractionResponse struct {
	Findings             []RawFinding             `json:"findings" yaml:"findings"`
	DataTables           []RawDataTable           `json:"dataTables" yaml:"dataTables"`
	IntraConnections     []RawConnection          `json:"intraConnections" yaml:"intraConnections"`
	ExperimentalSystem   string                   `json:"experimentalSystem" yaml:"experimentalSystem"`
	KeyContributions     []string                 `json:"keyContributions" yaml:"keyContributions"`
	Limitations          []string                 `json:"limitations" yaml:"limitations"`
	OpenQuestions        []string                 `json:"openQuestions" yaml:"openQuestions"`
	PotentialConnections []RawPotentialConnection `json:"potentialConnections" yaml:"potentialConnections"`

	// ReviewSpecific is set only when the document was classified as a review.
	ReviewSpecific *RawReview `json:"reviewSpecific,omitempty" yaml:"reviewSpecific,omitempty"`
}

// RawFinding is a finding before identifiers are assigned.
type RawFinding struct {
	Title       string                 `json:"title" yaml:"title"`
	Description string                 `json:"description" yaml:"description"`
	FindingType types.FindingType      `json:"findingType" yaml:"findingType"`
	Pages       []int                  `json:"pages" yaml:"pages"`
	Section     string                 `json:"section,omitempty" yaml:"section,omitempty"`
	Quotes      []types.QuoteReference `json:"quotes" yaml:"quotes"`
	Confidence  float64                `json:"confidence" yaml:"confidence"`
}

// RawDataTable is a table whose finding references are positions.
type RawDataTable struct {
	Name                  string              `json:"name" yaml:"name"`
	Description           string              `json:"description" yaml:"description"`
	Page                  int                 `json:"page,omitempty" yaml:"page,omitempty"`
	Columns               []types.TableColumn `json:"columns" yaml:"columns"`
	Rows                  []types.TableRow    `json:"rows" yaml:"rows"`
	Confidence            float64             `json:"confidence" yaml:"confidence"`
	RelatedFindingIndices []int               `json:"relatedFindingIndices" yaml:"relatedFindingIndices"`
}

// RawConnection is an intra-document edge between finding positions.
type RawConnection struct {
	FromFindingIndex int                  `json:"fromFindingIndex" yaml:"fromFindingIndex"`
	ToFindingIndex   int                  `json:"toFindingIndex" yaml:"toFindingIndex"`
	ConnectionType   types.ConnectionType `json:"connectionType" yaml:"connectionType"`
	Explanation      string               `json:"explanation" yaml:"explanation"`
	Explicit         bool                 `json:"explicit" yaml:"explicit"`
}

// RawPotentialConnection is a cross-document hint anchored at a finding position.
type RawPotentialConnection struct {
	FindingIndex      int                     `json:"findingIndex" yaml:"findingIndex"`
	RelationshipType  types.CrossRelationType `json:"relationshipType" yaml:"relationshipType"`
	TargetDescription string                  `json:"targetDescription" yaml:"targetDescription"`
	Keywords          []string                `json:"keywords" yaml:"keywords"`
	Reasoning         string                  `json:"reasoning" yaml:"reasoning"`
}

// RawTheme is a review synthesis theme referencing finding positions.
type RawTheme struct {
	Theme          string `json:"theme" yaml:"theme"`
	Description    string `json:"description" yaml:"description"`
	FindingIndices []int  `json:"findingIndices" yaml:"findingIndices"`
}

// RawReview is the review-paper extension of a Stage 2 response.
type RawReview struct {
	SynthesisThemes     []RawTheme                 `json:"synthesisThemes" yaml:"synthesisThemes"`
	IdentifiedGaps      []types.ResearchGap        `json:"identifiedGaps" yaml:"identifiedGaps"`
	FutureDirections    []string                   `json:"futureDirections" yaml:"futureDirections"`
	ChronologicalTrends []types.ChronologicalTrend `json:"chronologicalTrends" yaml:"chronologicalTrends"`
}

// findingRefs maps positions in the model's findings list to positions in
// the sanitized list. Positions past the end of the model's list are passed
// through unchanged for the assembler to reject.
type findingRefs struct {
	remap map[int]int
	total int
}

func (r findingRefs) resolve(pos int) (int, bool) {
	if j, ok := r.remap[pos]; ok {
		return j, true
	}
	if pos >= r.total {
		return pos, true
	}
	return 0, false
}

// Extraction sanitizes a Stage 2 response. The reviewSpecific block is read
// only when paperType is review.
func (p *Parser) Extraction(raw any, paperType types.PaperType) (ExtractionResponse, Report) {
	var rep Report
	f := newFields(raw, "", &rep)

	var out ExtractionResponse
	var refs findingRefs
	out.Findings, refs = p.findings(f)

	for _, it := range f.objects("dataTables") {
		t, ok := p.table(it.f, refs)
		if !ok {
			continue
		}
		if len(out.DataTables) == p.Limits.MaxTables {
			rep.note("dataTables", "truncated to %d tables", p.Limits.MaxTables)
			break
		}
		out.DataTables = append(out.DataTables, t)
	}

	for _, it := range f.objects("intraConnections") {
		c, ok := p.connection(it.f, refs)
		if !ok {
			continue
		}
		if len(out.IntraConnections) == p.Limits.MaxIntraConnections {
			rep.note("intraConnections", "truncated to %d connections", p.Limits.MaxIntraConnections)
			break
		}
		out.IntraConnections = append(out.IntraConnections, c)
	}

	out.ExperimentalSystem = f.str("experimentalSystem", p.Limits.ExplanationLen)
	out.KeyContributions = f.strList("keyContributions", p.Limits.MaxSummaryItems, p.Limits.DescriptionLen)
	out.Limitations = f.strList("limitations", p.Limits.MaxSummaryItems, p.Limits.DescriptionLen)
	out.OpenQuestions = f.strList("openQuestions", p.Limits.MaxSummaryItems, p.Limits.DescriptionLen)

	for _, it := range f.objects("potentialConnections") {
		c, ok := p.potential(it.f, refs)
		if !ok {
			continue
		}
		if len(out.PotentialConnections) == p.Limits.MaxPotentialConnections {
			rep.note("potentialConnections", "truncated to %d hints", p.Limits.MaxPotentialConnections)
			break
		}
		out.PotentialConnections = append(out.PotentialConnections, c)
	}

	if paperType == types.PaperReview {
		if !f.present("reviewSpecific") {
			rep.note("reviewSpecific", "missing for review document")
		}
		review := p.review(f.object("reviewSpecific"), refs)
		out.ReviewSpecific = &review
	}

	return out, rep
}

// ParseExtraction sanitizes a Stage 2 response with the default limits.
func ParseExtraction(raw any, paperType types.PaperType) (ExtractionResponse, Report) {
	return defaultParser.Extraction(raw, paperType)
}

func (p *Parser) findings(f fields) ([]RawFinding, findingRefs) {
	raw, _ := f.value("findings")
	list, _ := raw.([]any)
	refs := findingRefs{remap: map[int]int{}, total: len(list)}

	var out []RawFinding
	for _, it := range f.objects("findings") {
		fd, ok := p.finding(it.f)
		if !ok {
			continue
		}
		if len(out) == p.Limits.MaxFindings {
			f.rep.note("findings", "truncated to %d findings", p.Limits.MaxFindings)
			break
		}
		refs.remap[it.pos] = len(out)
		out = append(out, fd)
	}
	return out, refs
}

func (p *Parser) finding(f fields) (RawFinding, bool) {
	title := f.str("title", p.Limits.TitleLen)
	desc := f.str("description", p.Limits.DescriptionLen)
	if title == "" && desc == "" {
		f.rep.note(f.path, "dropped finding without title or description")
		return RawFinding{}, false
	}
	if title == "" {
		title = clip(f.rep, f.at("title"), desc, p.Limits.TitleLen)
		f.rep.note(f.at("title"), "missing, derived from description")
	}

	fd := RawFinding{
		Title:       title,
		Description: desc,
		FindingType: enum(f, "findingType", types.FindingTypes, types.FindingSupporting),
		Section:     f.str("section", p.Limits.LabelLen),
		Confidence:  f.confidence("confidence", defaultConfidence),
	}

	seen := map[int]bool{}
	for i, v := range f.items("pages") {
		n, ok := toFloat(v)
		if !ok || n < 1 || n != math.Trunc(n) || n > math.MaxInt32 {
			f.rep.note(fmt.Sprintf("%s[%d]", f.at("pages"), i), "dropped invalid page")
			continue
		}
		if seen[int(n)] {
			continue
		}
		if len(fd.Pages) == p.Limits.MaxPagesPerFinding {
			f.rep.note(f.at("pages"), "truncated to %d pages", p.Limits.MaxPagesPerFinding)
			break
		}
		seen[int(n)] = true
		fd.Pages = append(fd.Pages, int(n))
	}

	for i, v := range f.items("quotes") {
		path := fmt.Sprintf("%s[%d]", f.at("quotes"), i)
		q, ok := p.quote(v, path, f.rep)
		if !ok {
			continue
		}
		if len(fd.Quotes) == p.Limits.MaxQuotesPerFinding {
			f.rep.note(f.at("quotes"), "truncated to %d quotes", p.Limits.MaxQuotesPerFinding)
			break
		}
		fd.Quotes = append(fd.Quotes, q)
	}

	return fd, true
}

// quote accepts either a bare string or an object with a text field.
func (p *Parser) quote(v any, path string, rep *Report) (types.QuoteReference, bool) {
	if s, ok := v.(string); ok {
		text := clip(rep, path, s, p.Limits.QuoteLen)
		return types.QuoteReference{Text: text}, text != ""
	}
	q := newFields(v, path, rep)
	text := q.str("text", p.Limits.QuoteLen)
	if text == "" {
		rep.note(path, "dropped quote without text")
		return types.QuoteReference{}, false
	}
	return types.QuoteReference{
		Text:      text,
		Page:      q.positive("page"),
		PageLabel: q.str("pageLabel", pageLabelLen),
		Position:  optionalEnum(q, "position", types.QuotePositions),
	}, true
}

func (p *Parser) table(f fields, refs findingRefs) (RawDataTable, bool) {
	t := RawDataTable{
		Name:        f.strOr("name", p.Limits.TitleLen, untitledTable),
		Description: f.str("description", p.Limits.DescriptionLen),
		Page:        f.positive("page"),
		Confidence:  f.confidence("confidence", defaultConfidence),
	}

	seen := map[string]bool{}
	for i, v := range f.items("columns") {
		path := fmt.Sprintf("%s[%d]", f.at("columns"), i)
		var col types.TableColumn
		if s, ok := v.(string); ok {
			col.Name = clip(f.rep, path, s, p.Limits.LabelLen)
		} else {
			c := newFields(v, path, f.rep)
			col.Name = c.str("name", p.Limits.LabelLen)
			col.Unit = c.str("unit", p.Limits.KeywordLen)
		}
		if col.Name == "" || seen[col.Name] {
			f.rep.note(path, "dropped empty or duplicate column")
			continue
		}
		if len(t.Columns) == p.Limits.MaxColumns {
			f.rep.note(f.at("columns"), "truncated to %d columns", p.Limits.MaxColumns)
			break
		}
		seen[col.Name] = true
		t.Columns = append(t.Columns, col)
	}
	if len(t.Columns) == 0 {
		f.rep.note(f.path, "dropped table without columns")
		return RawDataTable{}, false
	}

	for _, it := range f.objects("rows") {
		row, ok := p.row(it.f, t.Columns)
		if !ok {
			continue
		}
		if len(t.Rows) == p.Limits.MaxRows {
			f.rep.note(f.at("rows"), "truncated to %d rows", p.Limits.MaxRows)
			break
		}
		t.Rows = append(t.Rows, row)
	}

	t.RelatedFindingIndices = resolveAll(f, "relatedFindingIndices", refs, p.Limits.MaxFindings)
	return t, true
}

// row keeps values only for declared columns. Values may be an object keyed
// by column name or a list aligned with the columns.
func (p *Parser) row(f fields, cols []types.TableColumn) (types.TableRow, bool) {
	row := types.TableRow{
		Label:  f.str("label", p.Limits.LabelLen),
		Values: map[string]string{},
	}
	raw, _ := f.value("values")
	switch vals := raw.(type) {
	case map[string]any:
		for _, c := range cols {
			v, ok := vals[c.Name]
			if !ok || v == nil {
				continue
			}
			if s, ok := scalarString(v); ok {
				if s = clip(f.rep, f.at("values."+c.Name), s, p.Limits.CellLen); s != "" {
					row.Values[c.Name] = s
				}
			}
		}
		if len(vals) > len(row.Values) {
			f.rep.note(f.at("values"), "dropped values for undeclared or empty columns")
		}
	case []any:
		for i, v := range vals {
			if i >= len(cols) {
				f.rep.note(f.at("values"), "dropped %d values beyond declared columns", len(vals)-len(cols))
				break
			}
			if s, ok := scalarString(v); ok {
				if s = clip(f.rep, fmt.Sprintf("%s[%d]", f.at("values"), i), s, p.Limits.CellLen); s != "" {
					row.Values[cols[i].Name] = s
				}
			}
		}
		f.rep.note(f.at("values"), "converted positional values to named values")
	case nil:
	default:
		f.rep.note(f.at("values"), "expected object, got %s", kindOf(raw))
	}
	if row.Label == "" && len(row.Values) == 0 {
		f.rep.note(f.path, "dropped empty row")
		return types.TableRow{}, false
	}
	return row, true
}

func (p *Parser) connection(f fields, refs findingRefs) (RawConnection, bool) {
	from, okFrom := f.index("fromFindingIndex")
	to, okTo := f.index("toFindingIndex")
	if !okFrom || !okTo {
		f.rep.note(f.path, "dropped connection without valid endpoints")
		return RawConnection{}, false
	}
	from, okFrom = refs.resolve(from)
	to, okTo = refs.resolve(to)
	if !okFrom || !okTo {
		f.rep.note(f.path, "dropped connection to a discarded finding")
		return RawConnection{}, false
	}
	if from == to {
		f.rep.note(f.path, "dropped self-connection")
		return RawConnection{}, false
	}
	return RawConnection{
		FromFindingIndex: from,
		ToFindingIndex:   to,
		ConnectionType:   enum(f, "connectionType", types.ConnectionTypes, types.ConnectionSupports),
		Explanation:      f.str("explanation", p.Limits.ExplanationLen),
		Explicit:         f.boolean("explicit", false),
	}, true
}

func (p *Parser) potential(f fields, refs findingRefs) (RawPotentialConnection, bool) {
	idx, ok := f.index("findingIndex")
	if ok {
		idx, ok = refs.resolve(idx)
	}
	if !ok {
		f.rep.note(f.path, "dropped hint without a valid finding")
		return RawPotentialConnection{}, false
	}
	target := f.str("targetDescription", p.Limits.ExplanationLen)
	if target == "" {
		f.rep.note(f.path, "dropped hint without target description")
		return RawPotentialConnection{}, false
	}
	return RawPotentialConnection{
		FindingIndex:      idx,
		RelationshipType:  enum(f, "relationshipType", types.CrossRelationTypes, types.CrossSameTopic),
		TargetDescription: target,
		Keywords:          f.strList("keywords", p.Limits.MaxKeywords, p.Limits.KeywordLen),
		Reasoning:         f.str("reasoning", p.Limits.ReasoningLen),
	}, true
}

func (p *Parser) review(f fields, refs findingRefs) RawReview {
	var out RawReview
	maxItems := p.Limits.MaxReviewItems

	for _, it := range f.objects("synthesisThemes") {
		theme := it.f.str("theme", p.Limits.TitleLen)
		if theme == "" {
			f.rep.note(it.f.path, "dropped theme without name")
			continue
		}
		if len(out.SynthesisThemes) == maxItems {
			f.rep.note(f.at("synthesisThemes"), "truncated to %d themes", maxItems)
			break
		}
		out.SynthesisThemes = append(out.SynthesisThemes, RawTheme{
			Theme:          theme,
			Description:    it.f.str("description", p.Limits.DescriptionLen),
			FindingIndices: resolveAll(it.f, "findingIndices", refs, p.Limits.MaxFindings),
		})
	}

	for i, v := range f.items("identifiedGaps") {
		path := fmt.Sprintf("%s[%d]", f.at("identifiedGaps"), i)
		var gap types.ResearchGap
		if s, ok := v.(string); ok {
			gap = types.ResearchGap{
				Description: clip(f.rep, path, s, p.Limits.DescriptionLen),
				GapType:     types.GapKnowledge,
				Importance:  types.ImportanceMedium,
			}
		} else {
			g := newFields(v, path, f.rep)
			gap = types.ResearchGap{
				Description: g.str("description", p.Limits.DescriptionLen),
				GapType:     enum(g, "gapType", types.GapTypes, types.GapKnowledge),
				Importance:  enum(g, "importance", types.ImportanceLevels, types.ImportanceMedium),
			}
		}
		if gap.Description == "" {
			f.rep.note(path, "dropped gap without description")
			continue
		}
		if len(out.IdentifiedGaps) == maxItems {
			f.rep.note(f.at("identifiedGaps"), "truncated to %d gaps", maxItems)
			break
		}
		out.IdentifiedGaps = append(out.IdentifiedGaps, gap)
	}

	out.FutureDirections = f.strList("futureDirections", maxItems, p.Limits.DescriptionLen)

	for _, it := range f.objects("chronologicalTrends") {
		desc := it.f.str("description", p.Limits.DescriptionLen)
		if desc == "" {
			f.rep.note(it.f.path, "dropped trend without description")
			continue
		}
		if len(out.ChronologicalTrends) == maxItems {
			f.rep.note(f.at("chronologicalTrends"), "truncated to %d trends", maxItems)
			break
		}
		out.ChronologicalTrends = append(out.ChronologicalTrends, types.ChronologicalTrend{
			Period:      it.f.str("period", p.Limits.LabelLen),
			Description: desc,
		})
	}
	return out
}

// resolveAll reads a list of finding positions, remaps them, and drops
// duplicates and references to discarded findings.
func resolveAll(f fields, key string, refs findingRefs, maxItems int) []int {
	var out []int
	seen := map[int]bool{}
	for _, idx := range f.indices(key, maxItems) {
		j, ok := refs.resolve(idx)
		if !ok {
			f.rep.note(f.at(key), "dropped reference to discarded finding %d", idx)
			continue
		}
		if seen[j] {
			continue
		}
		seen[j] = true
		out = append(out, j)
	}
	return out
}
