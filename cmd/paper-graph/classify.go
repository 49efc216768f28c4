// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-graph/internal/extract"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <document>",
	Short: "Classify a document without extracting findings",
	Long: `Classify runs Stage 1 only and prints the classification. The output can
be edited and passed back to extract with --classification.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("format", "yaml", "output format: yaml or json")

	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	doc, err := extract.LoadDocument(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	p, reg, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer writeMetrics(cmd, reg)

	c, usage, err := p.Classify(ctx, doc)
	if err != nil {
		return err
	}
	data, err := extract.Marshal(c, format)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	fmt.Fprintf(os.Stderr, "%d input / %d output tokens\n", usage.Input, usage.Output)
	return nil
}
