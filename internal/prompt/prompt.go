// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the instructions sent to the model at each stage.
// Builders are pure: the same inputs always render the same Prompt.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// Prompt is a rendered system instruction plus user message.
type Prompt struct {
	System string
	User   string
}

// Character budgets for document text included in prompts.
const (
	ClassificationSample = 8_000
	QuickBudget          = 20_000
	StandardBudget       = 50_000
	DeepBudget           = 100_000
)

// DepthBudget returns the Stage 2 text budget for depth. Unknown depths get
// the standard budget.
func DepthBudget(depth types.ExtractionDepth) int {
	switch depth {
	case types.DepthQuick:
		return QuickBudget
	case types.DepthDeep:
		return DeepBudget
	default:
		return StandardBudget
	}
}

// quoted renders enum values as a comma-separated list of JSON strings.
func quoted[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = `"` + string(v) + `"`
	}
	return strings.Join(parts, ", ")
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
