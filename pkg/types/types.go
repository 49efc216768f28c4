// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-graph pipeline:
// the document handed to the pipeline, the Stage 1 classification, the
// findings, tables and connections produced by Stage 2, the optional Stage 3
// thesis relevance, and the ExtractionGraph that owns all of them.
//
// JSON and YAML field names follow the model output contract (camelCase) so
// that sanitized values can be serialized and parsed again unchanged.
package types

// TokenCount records token usage for one model call or one stage.
type TokenCount struct {
	Input  int `json:"input" yaml:"input"`
	Output int `json:"output" yaml:"output"`
}

// Add returns the element-wise sum of c and o.
func (c TokenCount) Add(o TokenCount) TokenCount {
	return TokenCount{Input: c.Input + o.Input, Output: c.Output + o.Output}
}

// Total returns input plus output tokens.
func (c TokenCount) Total() int {
	return c.Input + c.Output
}

// StageTokens holds token usage per pipeline stage.
type StageTokens struct {
	Stage1 TokenCount `json:"stage1" yaml:"stage1"`
	Stage2 TokenCount `json:"stage2" yaml:"stage2"`
	Stage3 TokenCount `json:"stage3" yaml:"stage3"`
}

// Total sums usage across all stages.
func (s StageTokens) Total() TokenCount {
	return s.Stage1.Add(s.Stage2).Add(s.Stage3)
}

// Set records usage for the given stage number. Unknown stages are ignored.
func (s *StageTokens) Set(stage int, c TokenCount) {
	switch stage {
	case 1:
		s.Stage1 = c
	case 2:
		s.Stage2 = c
	case 3:
		s.Stage3 = c
	}
}
