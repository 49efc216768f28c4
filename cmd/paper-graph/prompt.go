// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-graph/internal/extract"
	"github.com/pdiddy/paper-graph/internal/prompt"
	"github.com/pdiddy/paper-graph/internal/sanitize"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <document>",
	Short: "Print the prompt a stage would send, without calling a provider",
	Long: `Prompt renders the Stage 1 (classification) or Stage 2 (extraction)
prompt for a document. Stage 2 uses the classification from --classification,
or the default classification when none is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	promptCmd.Flags().Int("stage", 1, "stage to render: 1 or 2")
	promptCmd.Flags().String("classification", "", "classification file for Stage 2")

	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	doc, err := extract.LoadDocument(args[0])
	if err != nil {
		return err
	}
	doc = doc.WithEstimates()

	var pr prompt.Prompt
	switch stage, _ := cmd.Flags().GetInt("stage"); stage {
	case extract.StageClassification:
		pr, err = prompt.Classification(doc)
	case extract.StageExtraction:
		c := sanitize.DefaultClassification()
		if path, _ := cmd.Flags().GetString("classification"); path != "" {
			loaded, err := extract.LoadClassification(path)
			if err != nil {
				return err
			}
			c = *loaded
		}
		pr, err = prompt.Extraction(doc, c)
	default:
		return fmt.Errorf("--stage must be 1 or 2, got %d", stage)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== system ===\n%s\n\n=== user ===\n%s\n", pr.System, pr.User)
	return nil
}
