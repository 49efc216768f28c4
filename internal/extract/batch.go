// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const defaultConcurrency = 2

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Failed
}

// HasFailures reports whether any documents failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// GraphPath returns the output path for a document's graph.
func GraphPath(outDir, documentID string, format types.OutputFormat) string {
	ext := ".yaml"
	if format == types.FormatJSON {
		ext = ".json"
	}
	return filepath.Join(outDir, documentID+"-graph"+ext)
}

// ExtractAll extracts every document spec in cfg.DocumentsDir and writes one
// graph per document to cfg.OutputDir. Documents whose graph is newer than
// their spec and text are skipped unless cfg.Force is set. Up to
// cfg.Concurrency documents run at once; one status line per document is
// written to w.
func ExtractAll(ctx context.Context, p *Pipeline, cfg types.BatchConfig, w io.Writer) (BatchSummary, error) {
	if err := cfg.Validate(); err != nil {
		return BatchSummary{}, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	entries, err := os.ReadDir(cfg.DocumentsDir)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading documents directory %s: %w", cfg.DocumentsDir, err)
	}
	var specs []string
	for _, entry := range entries {
		if entry.IsDir() || !isSpecFile(entry.Name()) || strings.Contains(entry.Name(), "-graph.") {
			continue
		}
		specs = append(specs, filepath.Join(cfg.DocumentsDir, entry.Name()))
	}
	sort.Strings(specs)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var (
		mu      sync.Mutex
		summary BatchSummary
	)
	report := func(count *int, format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		if count != nil {
			*count++
		}
		fmt.Fprintf(w, format, args...)
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, specPath := range specs {
		g.Go(func() error {
			name := filepath.Base(specPath)
			doc, sources, err := loadDocument(specPath)
			if err != nil {
				report(&summary.Failed, "failed  %s: %v\n", name, err)
				return nil
			}

			outPath := GraphPath(cfg.OutputDir, doc.ID, cfg.Format)
			if !cfg.Force {
				changed, err := hasChanged(sources, outPath)
				if err != nil {
					report(&summary.Failed, "failed  %s: %v\n", doc.ID, err)
					return nil
				}
				if !changed {
					report(&summary.Skipped, "skipped %s\n", doc.ID)
					return nil
				}
			}

			report(nil, "extracting %s\n", doc.ID)
			res := p.Extract(ctx, Request{
				Document:          doc,
				Thesis:            cfg.Thesis,
				ExistingDocuments: cfg.ExistingDocuments,
			})
			if !res.Success {
				report(&summary.Failed, "failed  %s: %s\n", doc.ID, res.Error)
				return nil
			}

			if err := writeResult(outPath, res.Graph, cfg.Format); err != nil {
				report(&summary.Failed, "failed  %s: write error: %v\n", doc.ID, err)
				return nil
			}
			report(&summary.Extracted, "extracted %s (%d findings)\n", doc.ID, len(res.Graph.Findings))
			return nil
		})
	}
	_ = g.Wait()

	return summary, ctx.Err()
}

// hasChanged reports whether any source file is newer than the output file.
// Returns true if the output does not exist.
func hasChanged(sources []string, outPath string) (bool, error) {
	outInfo, err := os.Stat(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat output %s: %w", outPath, err)
	}

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return false, fmt.Errorf("stat source %s: %w", src, err)
		}
		if info.ModTime().After(outInfo.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}
