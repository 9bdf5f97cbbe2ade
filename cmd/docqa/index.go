package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/history"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and provider status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the ingestion and query history",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every ingested document",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var (
	historyType  string
	historyClear bool
	resetYes     bool
)

func init() {
	historyCmd.Flags().StringVar(&historyType, "type", "", "only events of this type (ingest or query)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the selected events")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion")

	rootCmd.AddCommand(sourcesCmd, statusCmd, historyCmd, resetCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.Store.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents ingested.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %-8s %4d chunks  %s  %s\n",
			d.ID, d.Kind, d.Chunks, d.CreatedAt.Local().Format(time.DateTime), d.Source)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.Store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("store stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:   %s (%s)\n", stats.Backend, stats.Location)
	fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
	fmt.Fprintf(out, "Chunks:    %d\n", stats.Chunks)
	for _, s := range stats.Spaces {
		fmt.Fprintf(out, "  %s: %d chunks, dimension %d\n", s.Name, s.Chunks, s.Dimension)
	}
	if stats.Warning != "" {
		fmt.Fprintf(out, "Warning:   %s\n", stats.Warning)
	}
	if err := a.Store.Health(cmd.Context()); err != nil {
		fmt.Fprintf(out, "Health:    %v\n", err)
	}
	fmt.Fprintf(out, "Hosted embeddings: %s\n", enabled(a.Config.HostedEmbeddings()))
	fmt.Fprintf(out, "Hosted answers:    %s\n", enabled(a.Config.HostedLLM()))
	return nil
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func runHistory(cmd *cobra.Command, args []string) error {
	t := history.EventType(historyType)
	switch t {
	case "", history.EventIngest, history.EventQuery:
	default:
		return fmt.Errorf("unknown event type %q", historyType)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if historyClear {
		if err := a.History.Clear(t); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Fprintln(out, "History cleared.")
		return nil
	}

	events, err := a.History.Events(t)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No history.")
		return nil
	}
	for _, e := range events {
		ts := e.Time.Local().Format(time.DateTime)
		switch e.Type {
		case history.EventIngest:
			fmt.Fprintf(out, "%s  ingest  %s (%s, %d chunks)\n", ts, e.Source, e.Kind, e.Chunks)
		case history.EventQuery:
			fmt.Fprintf(out, "%s  query   %q [%s]\n", ts, e.Question, e.Mode)
			for _, c := range e.Citations {
				fmt.Fprintf(out, "    - %s\n", c)
			}
		}
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return errors.New("reset deletes every ingested document; rerun with --yes to confirm")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
	return nil
}
