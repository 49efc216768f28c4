// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// wordsPerPage is the density used to estimate page counts when the text
// carries no page markers.
const wordsPerPage = 500

// DocumentContext is the immutable input bundle for one pipeline invocation.
// Bibliographic fields are supplied by the caller; FullText is pre-extracted.
type DocumentContext struct {
	// ID identifies the document across invocations.
	ID string `json:"id" yaml:"id"`

	// Title is the document title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the document authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year (0 if unknown).
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or publisher.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Abstract is the document abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// FullText is the extracted body text. Markdown headings (## / ###) and
	// <!-- page N --> markers are recognised when present.
	FullText string `json:"fullText" yaml:"fullText"`

	// PageCount is the estimated number of pages.
	PageCount int `json:"pageCount,omitempty" yaml:"pageCount,omitempty"`

	// WordCount is the number of whitespace-separated words in FullText.
	WordCount int `json:"wordCount,omitempty" yaml:"wordCount,omitempty"`
}

// WithEstimates returns a copy of d with WordCount and PageCount derived from
// FullText when they are not already set.
func (d DocumentContext) WithEstimates() DocumentContext {
	if d.WordCount <= 0 {
		d.WordCount = len(strings.Fields(d.FullText))
	}
	if d.PageCount <= 0 {
		if last := LastPageMarker(d.FullText); last > 0 {
			d.PageCount = last
		} else {
			d.PageCount = (d.WordCount + wordsPerPage - 1) / wordsPerPage
		}
		if d.PageCount < 1 {
			d.PageCount = 1
		}
	}
	return d
}

// AuthorList joins the author names for display, abbreviating long lists.
func (d DocumentContext) AuthorList() string {
	switch n := len(d.Authors); {
	case n == 0:
		return "Unknown"
	case n > 5:
		return strings.Join(d.Authors[:5], ", ") + " et al."
	default:
		return strings.Join(d.Authors, ", ")
	}
}

// ParsePageMarker extracts the page number from an HTML comment like
// <!-- page 3 -->.
func ParsePageMarker(line string) (int, bool) {
	if !strings.HasPrefix(line, "<!-- page ") || !strings.HasSuffix(line, " -->") {
		return 0, false
	}
	inner := strings.TrimPrefix(line, "<!-- page ")
	inner = strings.TrimSuffix(inner, " -->")
	var page int
	if _, err := fmt.Sscanf(inner, "%d", &page); err != nil {
		return 0, false
	}
	return page, true
}

// LastPageMarker returns the highest page marker in text, or 0 if none.
func LastPageMarker(text string) int {
	highest := 0
	for _, line := range strings.Split(text, "\n") {
		if page, ok := ParsePageMarker(strings.TrimSpace(line)); ok && page > highest {
			highest = page
		}
	}
	return highest
}

// ThesisContext describes the user's research thesis for Stage 3.
type ThesisContext struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// ExistingDocument summarises a document already in the user's collection.
// Stage 3 may only propose connections to these identifiers.
type ExistingDocument struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Takeaway string `json:"takeaway,omitempty" yaml:"takeaway,omitempty"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
}
