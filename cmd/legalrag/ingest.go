package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/indexer"
	"github.com/bull/legal-rag/internal/source"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs := make([]domain.Document, 0, len(args))
		for _, p := range args {
			doc, err := source.LoadFile(p)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return ingestDocs(cmd, docs)
	},
}

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir <dir>",
	Short: "Ingest every supported document under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := source.LoadDir(args[0], nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Found %d documents in %s\n", len(docs), args[0])
		return ingestDocs(cmd, docs)
	},
}

var githubRef string

var ingestGitHubCmd = &cobra.Command{
	Use:   "ingest-github <owner> <repo> <path>",
	Short: "Ingest documents from a GitHub repository directory",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Fetching %s/%s/%s...\n", args[0], args[1], args[2])
		fetcher := source.NewGitHubFetcher(a.GitHub, args[0], args[1], args[2], githubRef)
		docs, skipped, err := fetcher.FetchAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch from GitHub: %w", err)
		}
		for path, reason := range skipped {
			fmt.Fprintf(out, "  skipped %s: %v\n", path, reason)
		}

		result, err := a.Pipeline.IngestAll(cmd.Context(), docs)
		if result != nil {
			printBatch(out, result)
		}
		return err
	},
}

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest documents as they are written into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		w := source.NewWatcher(args[0], nil, watchDebounce, func(ctx context.Context, path string) {
			doc, err := source.LoadFile(path)
			if err != nil {
				a.Logger.Warn("Failed to read document", "path", path, "error", err)
				return
			}
			result, err := a.Pipeline.Ingest(ctx, doc)
			if err != nil {
				a.Logger.Warn("Failed to ingest document", "path", path, "error", err)
				return
			}
			fmt.Fprintf(out, "%s -> %s (%d chunks)\n", doc.Filename, result.DocID, result.ChunkCount)
		}, a.Logger)

		fmt.Fprintf(out, "Watching %s, press Ctrl-C to stop\n", args[0])
		return w.Run(cmd.Context())
	},
}

func init() {
	ingestGitHubCmd.Flags().StringVar(&githubRef, "ref", "", "branch, tag or commit (default branch when empty)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", source.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(ingestCmd, ingestDirCmd, ingestGitHubCmd, watchCmd)
}

func ingestDocs(cmd *cobra.Command, docs []domain.Document) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(docs) == 1 {
		result, err := a.Pipeline.Ingest(cmd.Context(), docs[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Ingested %s\n", docs[0].Filename)
		fmt.Fprintf(out, "  Doc ID: %s\n", result.DocID)
		fmt.Fprintf(out, "  Chunks: %d\n", result.ChunkCount)
		fmt.Fprintf(out, "  Images: %d\n", len(result.Images))
		return nil
	}

	result, err := a.Pipeline.IngestAll(cmd.Context(), docs)
	if result != nil {
		printBatch(out, result)
	}
	return err
}

func printBatch(out io.Writer, result *indexer.BatchResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Ingestion complete!")
	fmt.Fprintf(out, "  Documents: %d/%d\n", result.Succeeded, result.Total)
	fmt.Fprintf(out, "  Chunks: %d\n", result.Chunks)
	fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Failed) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, failed := range result.Failed {
			fmt.Fprintf(out, "  - %s: %s\n", failed.Filename, failed.Reason)
		}
	}
}
