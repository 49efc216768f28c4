// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// minPartial is the smallest remainder worth filling with a cut section.
const minPartial = 500

// section represents a chunk of text under one heading.
type section struct {
	heading string
	body    string
	page    int
}

// chunkByHeadings splits Markdown into sections at #, ## or ### headings.
// Page markers (<!-- page N -->) stay in the body so the model can cite
// pages; page records where each section starts.
func chunkByHeadings(content string) []section {
	lines := strings.Split(content, "\n")
	var sections []section
	currentHeading := ""
	currentPage := 1
	startPage := 1
	var bodyLines []string

	flush := func() {
		body := strings.Join(bodyLines, "\n")
		if currentHeading != "" || strings.TrimSpace(body) != "" {
			sections = append(sections, section{
				heading: currentHeading,
				body:    body,
				page:    startPage,
			})
		}
		bodyLines = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if page, ok := types.ParsePageMarker(trimmed); ok {
			currentPage = page
		}

		if isHeading(trimmed) {
			flush()
			currentHeading = stripHeadingPrefix(trimmed)
			startPage = currentPage
			continue
		}

		bodyLines = append(bodyLines, line)
	}

	flush()
	return sections
}

// isHeading returns true if the line starts with #, ## or ###.
func isHeading(line string) bool {
	return strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ")
}

// stripHeadingPrefix removes the leading # characters and whitespace.
func stripHeadingPrefix(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// formatChunk renders a section with its heading.
func formatChunk(sec section) string {
	if sec.heading == "" {
		return sec.body
	}
	return "## " + sec.heading + "\n\n" + strings.TrimLeft(sec.body, "\n")
}

func isReferencesHeading(heading string) bool {
	h := strings.ToLower(heading)
	return strings.Contains(h, "references") || strings.Contains(h, "bibliography") || h == "works cited"
}

// StripReferences removes the references or bibliography section. Text
// without headings is returned unchanged.
func StripReferences(text string) string {
	sections := chunkByHeadings(text)
	if len(sections) < 2 {
		return text
	}
	var kept []string
	stripped := false
	for _, sec := range sections {
		if isReferencesHeading(sec.heading) {
			stripped = true
			continue
		}
		kept = append(kept, formatChunk(sec))
	}
	if !stripped {
		return text
	}
	return strings.Join(kept, "\n\n")
}

// referenceEntryRe matches numbered ([1], 1.) or bulleted bibliography lines.
var referenceEntryRe = regexp.MustCompile(`^\s*(?:\[\d+\]|\d+\.\s|[-*]\s)`)

// CountReferences returns the number of entries in the references section.
func CountReferences(text string) int {
	count := 0
	for _, sec := range chunkByHeadings(text) {
		if !isReferencesHeading(sec.heading) {
			continue
		}
		for _, line := range strings.Split(sec.body, "\n") {
			if referenceEntryRe.MatchString(line) {
				count++
			}
		}
	}
	return count
}

// SelectExcerpt returns at most budget runes of text. The references
// section is dropped first; if the text still does not fit, sections whose
// heading matches a priority name are taken first and the rest fill the
// remaining budget in document order. The excerpt keeps document order.
func SelectExcerpt(text string, budget int, priority []string) (excerpt string, truncated bool) {
	text = StripReferences(text)
	if utf8.RuneCountInString(text) <= budget {
		return text, false
	}

	sections := chunkByHeadings(text)
	if len(sections) < 2 {
		return truncateRunes(text, budget), true
	}

	parts := make([]string, len(sections))
	remaining := budget
	take := func(i int) {
		if parts[i] != "" || remaining <= 0 {
			return
		}
		chunk := formatChunk(sections[i])
		cost := utf8.RuneCountInString(chunk) + 2
		switch {
		case cost <= remaining:
			parts[i] = chunk
			remaining -= cost
		case remaining >= minPartial:
			parts[i] = truncateRunes(chunk, remaining-2)
			remaining = 0
		}
	}

	for i, sec := range sections {
		if matchesAny(sec.heading, priority) {
			take(i)
		}
	}
	for i := range sections {
		take(i)
	}

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n"), true
}

func matchesAny(heading string, names []string) bool {
	h := strings.ToLower(heading)
	if h == "" {
		return false
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && (strings.Contains(h, n) || strings.Contains(n, h)) {
			return true
		}
	}
	return false
}
