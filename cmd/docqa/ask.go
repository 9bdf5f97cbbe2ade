package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Answer a question from the ingested documents",
	Long: `Answer a question with citations.

Without --source the answer comes from the single document that best matches
the question. With --source it comes only from the given documents.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askSources  []string
	askTopK     int
	askPassages bool
)

func init() {
	askCmd.Flags().StringSliceVar(&askSources, "source", nil, "document ID to answer from (repeatable)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of passages to retrieve (default DEFAULT_TOP_K)")
	askCmd.Flags().BoolVar(&askPassages, "passages", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ans := a.Engine.Answer(cmd.Context(), rag.Query{
		Question: strings.Join(args, " "),
		DocIDs:   askSources,
		TopK:     askTopK,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Mode: %s\n", ans.Mode)
	if ans.LLMFailure != "" {
		fmt.Fprintf(out, "Hosted answer failed: %s\n", ans.LLMFailure)
	}
	if len(ans.Citations) > 0 {
		fmt.Fprintln(out, "Sources:")
		for _, c := range ans.Citations {
			fmt.Fprintf(out, "  - %s\n", c)
		}
	}
	if askPassages {
		fmt.Fprintln(out, "Passages:")
		for _, p := range ans.Passages {
			fmt.Fprintf(out, "  [%.3f] %s #%d\n    %s\n", p.Score, p.Chunk.Source, p.Chunk.Position, strings.ReplaceAll(p.Chunk.Text, "\n", " "))
		}
	}
	return nil
}
