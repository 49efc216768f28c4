// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-graph/internal/extract"
	"github.com/pdiddy/paper-graph/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [documents...]",
	Short: "Extract findings and connections from documents",
	Long: `Extract runs the three-stage pipeline on each document spec and writes
<id>-graph.yaml (or .json) to the output directory.

A document spec is a YAML or JSON file with id, title, authors, year, venue,
abstract and either fullText or textFile. With --thesis, each document is
also assessed against the thesis and linked to the documents listed in
--existing.

With --batch, every spec in --documents-dir is extracted. Documents whose
graph is newer than the spec are skipped unless --force is given.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("thesis", "", "thesis file (title, description); enables thesis integration")
	extractCmd.Flags().String("existing", "", "file listing existing documents (id, title, takeaway, role, year)")
	extractCmd.Flags().String("classification", "", "classification file used instead of Stage 1")
	extractCmd.Flags().Bool("skip-thesis", false, "skip thesis integration even when --thesis is set")
	extractCmd.Flags().String("out", "graphs", "output directory for graphs")
	extractCmd.Flags().String("format", "yaml", "output format: yaml or json")
	extractCmd.Flags().Bool("batch", false, "extract every document spec in --documents-dir")
	extractCmd.Flags().String("documents-dir", "documents", "directory of document specs for --batch")
	extractCmd.Flags().Int("concurrency", 0, "documents extracted in parallel with --batch (default 2)")
	extractCmd.Flags().Bool("force", false, "re-extract documents whose graph is up to date")

	rootCmd.AddCommand(extractCmd)
}

// thesisInputs loads the optional --thesis and --existing files.
func thesisInputs(cmd *cobra.Command) (*types.ThesisContext, []types.ExistingDocument, error) {
	var (
		thesis   *types.ThesisContext
		existing []types.ExistingDocument
		err      error
	)
	if path, _ := cmd.Flags().GetString("thesis"); path != "" {
		if thesis, err = extract.LoadThesis(path); err != nil {
			return nil, nil, err
		}
	}
	if path, _ := cmd.Flags().GetString("existing"); path != "" {
		if existing, err = extract.LoadExisting(path); err != nil {
			return nil, nil, err
		}
	}
	return thesis, existing, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetBool("batch")
	if !batch && len(args) == 0 {
		return fmt.Errorf("provide one or more document specs, or use --batch")
	}
	if path, _ := cmd.Flags().GetString("classification"); batch && path != "" {
		return fmt.Errorf("--classification applies to single documents and cannot be used with --batch")
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	thesis, existing, err := thesisInputs(cmd)
	if err != nil {
		return err
	}
	if skip, _ := cmd.Flags().GetBool("skip-thesis"); skip {
		thesis = nil
	}
	outDir, _ := cmd.Flags().GetString("out")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, reg, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer writeMetrics(cmd, reg)

	if batch {
		docsDir, _ := cmd.Flags().GetString("documents-dir")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		force, _ := cmd.Flags().GetBool("force")

		summary, err := extract.ExtractAll(ctx, p, types.BatchConfig{
			DocumentsDir:      docsDir,
			OutputDir:         outDir,
			Concurrency:       concurrency,
			Format:            format,
			Force:             force,
			Thesis:            thesis,
			ExistingDocuments: existing,
		}, os.Stdout)
		fmt.Printf("%d extracted, %d skipped, %d failed\n", summary.Extracted, summary.Skipped, summary.Failed)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d document(s) failed extraction", summary.Failed)
		}
		return nil
	}

	var opts extract.Options
	if path, _ := cmd.Flags().GetString("classification"); path != "" {
		c, err := extract.LoadClassification(path)
		if err != nil {
			return err
		}
		opts.ProvidedClassification = c
		opts.SkipClassification = true
	}
	opts.OnProgress = func(pr types.Progress) {
		fmt.Fprintf(os.Stderr, "  [%3d%%] %s: %s\n", pr.OverallProgress, pr.DocumentID, pr.Description)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	failed := 0
	for _, path := range args {
		doc, err := extract.LoadDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", path, err)
			failed++
			continue
		}

		res := p.Extract(ctx, extract.Request{
			Document:          doc,
			Thesis:            thesis,
			ExistingDocuments: existing,
			Options:           opts,
		})
		total := res.TokensUsed.Total()
		if !res.Success {
			fmt.Fprintf(os.Stdout, "failed  %s: %s (%d tokens)\n", doc.ID, res.Error, total.Total())
			failed++
			if ctx.Err() != nil {
				break
			}
			continue
		}

		data, err := extract.Marshal(res.Graph, format)
		if err != nil {
			return fmt.Errorf("marshaling graph: %w", err)
		}
		outPath := extract.GraphPath(outDir, doc.ID, format)
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Fprintf(os.Stdout, "extracted %s (%d findings, %d in / %d out tokens) -> %s\n",
			doc.ID, len(res.Graph.Findings), total.Input, total.Output, outPath)
	}

	if failed > 0 {
		return fmt.Errorf("%d document(s) failed extraction", failed)
	}
	return nil
}
