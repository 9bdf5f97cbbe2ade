package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/loader"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Add documents to the index",
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [TEXT]",
	Short: "Ingest raw text (read from stdin when no argument is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestText,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file PATH...",
	Short: "Ingest PDF, markdown, HTML or text files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestFiles,
}

var ingestURLCmd = &cobra.Command{
	Use:   "url URL...",
	Short: "Ingest web pages or PDFs by URL",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestURLs,
}

var ingestGitHubCmd = &cobra.Command{
	Use:   "github OWNER/REPO[/PATH]",
	Short: "Ingest markdown and text files from a GitHub repository",
	Long: `Ingest every markdown and text file under PATH of a GitHub repository.
Each file becomes one document with source github:OWNER/REPO/FILE.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestGitHub,
}

var ingestSource string

func init() {
	ingestTextCmd.Flags().StringVar(&ingestSource, "source", "", "name shown in citations (default \"text\")")

	ingestCmd.AddCommand(ingestTextCmd, ingestFileCmd, ingestURLCmd, ingestGitHubCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestText(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	doc, err := loader.FromText(text, ingestSource)
	if err != nil {
		return indexer.LoadError(err)
	}
	return ingestDocs(cmd, []loader.Document{doc})
}

func runIngestFiles(cmd *cobra.Command, args []string) error {
	return ingestLoaded(cmd, args, func(l *loader.Loader, path string) ([]loader.Document, error) {
		return single(l.LoadFile(cmd.Context(), path))
	})
}

func runIngestURLs(cmd *cobra.Command, args []string) error {
	return ingestLoaded(cmd, args, func(l *loader.Loader, url string) ([]loader.Document, error) {
		return single(l.LoadURL(cmd.Context(), url))
	})
}

func runIngestGitHub(cmd *cobra.Command, args []string) error {
	return ingestLoaded(cmd, args, func(l *loader.Loader, ref string) ([]loader.Document, error) {
		return l.LoadGitHub(cmd.Context(), ref)
	})
}

func single(doc loader.Document, err error) ([]loader.Document, error) {
	if err != nil {
		return nil, err
	}
	return []loader.Document{doc}, nil
}

// ingestLoaded loads every argument, reports the ones that fail and ingests the rest.
func ingestLoaded(cmd *cobra.Command, args []string, load func(*loader.Loader, string) ([]loader.Document, error)) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var docs []loader.Document
	var failed int
	for _, arg := range args {
		loaded, err := load(a.Loader, arg)
		if err != nil {
			failed++
			fmt.Fprintf(out, "  - %s: %v\n", arg, indexer.LoadError(err))
			continue
		}
		docs = append(docs, loaded...)
	}

	if len(docs) > 0 {
		if err := ingestWith(cmd, a.Pipeline, docs); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources could not be loaded", failed, len(args))
	}
	return nil
}

func ingestDocs(cmd *cobra.Command, docs []loader.Document) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return ingestWith(cmd, a.Pipeline, docs)
}

func ingestWith(cmd *cobra.Command, p *indexer.Pipeline, docs []loader.Document) error {
	out := cmd.OutOrStdout()

	result, err := p.IngestAll(cmd.Context(), docs)
	for _, r := range result.Ingested {
		note := ""
		if r.Downgraded {
			note = " (local embeddings: hosted provider failed)"
		}
		fmt.Fprintf(out, "Ingested %s\n  doc_id: %s\n  chunks: %d\n  space:  %s%s\n", r.Source, r.DocID, r.Chunks, r.Space, note)
	}
	if len(result.FailedDocs) > 0 {
		fmt.Fprintln(out, "Failed documents:")
		for _, f := range result.FailedDocs {
			fmt.Fprintf(out, "  - %s: %s\n", f.Source, f.Reason)
		}
	}
	fmt.Fprintf(out, "Documents: %d/%d, chunks: %d, duration: %s\n",
		len(result.Ingested), result.TotalDocs, result.Chunks, result.Duration.Round(time.Millisecond))

	if errors.Is(err, indexer.ErrNotDurable) {
		return fmt.Errorf("index not saved, documents are lost on exit: %w", err)
	}
	if len(result.Ingested) == 0 {
		reasons := make([]string, 0, len(result.FailedDocs))
		for _, f := range result.FailedDocs {
			reasons = append(reasons, f.Reason)
		}
		return fmt.Errorf("nothing was ingested: %s", strings.Join(reasons, "; "))
	}
	return nil
}
