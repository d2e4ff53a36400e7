package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/webdedesign/vergiai/internal/chunk"
	"github.com/webdedesign/vergiai/internal/extract"
	"github.com/webdedesign/vergiai/internal/indexer"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Add the PDF documents of a folder to the store",
	Long: `Reads every PDF in the folder (default: ingest.dir, ./belgeler), splits
each page into overlapping fragments and stores them.

Documents already in the store are skipped, never updated. Files that cannot
be read are reported and the remaining files are still ingested.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	dir := a.cfg.Ingest.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	chunker, err := chunk.NewChunker(a.cfg.ChunkerOptions()...)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ingesting %s into %s store (%s)...\n\n", dir, a.cfg.Store.Backend, chunker)

	pipeline := indexer.NewPipeline(extract.NewPDF(), chunker, store, a.logger,
		indexer.WithExtensions(a.cfg.Ingest.Extensions...),
		indexer.WithMetrics(a.metrics),
	)

	result, err := pipeline.IngestDir(ctx, dir)
	if result != nil {
		printIngestResult(cmd, result)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, result *indexer.Result) {
	out := cmd.OutOrStdout()

	for _, f := range result.Ingested() {
		fmt.Fprintf(out, "  %s: %d sayfa, %d parca -> %d kaydedildi\n", f.Document, f.Pages, f.Chunks, f.Written)
		if f.Partial() {
			fmt.Fprintf(out, "    eksik: %v\n", f.Err)
		}
	}

	if dups := result.Duplicates(); len(dups) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Already stored, skipped:")
		for _, f := range dups {
			fmt.Fprintf(out, "  - %s\n", f.Document)
		}
	}

	if empty := result.Empty(); len(empty) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "No text extracted (scanned or empty):")
		for _, f := range empty {
			fmt.Fprintf(out, "  - %s\n", f.Document)
		}
	}

	if failed := result.Failures(); len(failed) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, f := range failed {
			fmt.Fprintf(out, "  - %s: %v\n", f.Path, f.Err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ingest complete: %d files, %d fragments written in %s\n",
		len(result.Ingested()), result.TotalWritten, result.Duration.Round(time.Millisecond))
	if result.StoreTotal >= 0 {
		fmt.Fprintf(out, "Store total: %d fragments\n", result.StoreTotal)
	} else {
		fmt.Fprintln(out, "Store total: unknown (store unavailable)")
	}
}
