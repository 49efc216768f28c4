// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-graph/pkg/types"
)

// documentSpec is the on-disk form of a document: bibliographic fields plus
// either inline fullText or a textFile path relative to the spec.
type documentSpec struct {
	types.DocumentContext `yaml:",inline"`

	TextFile string `json:"textFile,omitempty" yaml:"textFile,omitempty"`
}

// isSpecFile reports whether name looks like a YAML or JSON spec.
func isSpecFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// decodeFile reads path as JSON when it ends in .json and as YAML otherwise.
func decodeFile[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &v)
	} else {
		err = yaml.Unmarshal(data, &v)
	}
	if err != nil {
		return v, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// LoadDocument reads a document spec. A missing id defaults to the file
// name without extension.
func LoadDocument(path string) (types.DocumentContext, error) {
	doc, _, err := loadDocument(path)
	return doc, err
}

// loadDocument also returns every file the document was read from.
func loadDocument(path string) (types.DocumentContext, []string, error) {
	spec, err := decodeFile[documentSpec](path)
	if err != nil {
		return types.DocumentContext{}, nil, err
	}
	sources := []string{path}

	doc := spec.DocumentContext
	if spec.TextFile != "" {
		if doc.FullText != "" {
			return doc, nil, fmt.Errorf("document %s: fullText and textFile are mutually exclusive", path)
		}
		textPath := spec.TextFile
		if !filepath.IsAbs(textPath) {
			textPath = filepath.Join(filepath.Dir(path), textPath)
		}
		data, err := os.ReadFile(textPath)
		if err != nil {
			return doc, nil, fmt.Errorf("reading text for %s: %w", path, err)
		}
		doc.FullText = string(data)
		sources = append(sources, textPath)
	}

	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := checkID(doc.ID); err != nil {
		return doc, nil, fmt.Errorf("document %s: %w", path, err)
	}
	if strings.TrimSpace(doc.FullText) == "" {
		return doc, nil, fmt.Errorf("document %s has no text", doc.ID)
	}
	return doc, sources, nil
}

// checkID rejects ids that cannot be used as a file name inside the output
// directory.
func checkID(id string) error {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid id %q: must not contain path separators or \"..\"", id)
	}
	return nil
}

// LoadThesis reads a thesis title and description.
func LoadThesis(path string) (*types.ThesisContext, error) {
	t, err := decodeFile[types.ThesisContext](path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, fmt.Errorf("thesis %s has no title", path)
	}
	return &t, nil
}

// LoadExisting reads the list of documents already in the collection.
func LoadExisting(path string) ([]types.ExistingDocument, error) {
	docs, err := decodeFile[[]types.ExistingDocument](path)
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("existing document %d in %s has no id", i, path)
		}
	}
	return docs, nil
}

// LoadClassification reads a classification to use instead of Stage 1.
func LoadClassification(path string) (*types.ClassificationResult, error) {
	c, err := decodeFile[types.ClassificationResult](path)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Marshal serialises v in the given format (YAML unless FormatJSON).
func Marshal(v any, format types.OutputFormat) ([]byte, error) {
	if format == types.FormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(v)
}

// writeResult marshals the graph to path.
func writeResult(path string, g *types.ExtractionGraph, format types.OutputFormat) error {
	data, err := Marshal(g, format)
	if err != nil {
		return fmt.Errorf("marshaling graph: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
