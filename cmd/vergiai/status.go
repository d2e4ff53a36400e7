package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the store backend and what it holds",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openReadStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend: %s (%s)\n", a.cfg.Store.Backend, a.cfg.Store.Table)

	exists, err := store.Exists(ctx)
	if err != nil {
		fmt.Fprintf(out, "Status:  unavailable (%v)\n", err)
		return nil
	}
	if !exists {
		fmt.Fprintln(out, "Status:  empty, run `vergiai ingest` to add documents")
		return nil
	}

	names, err := store.DocumentNames(ctx)
	if err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}

	docs := make([]string, 0, len(names))
	for name := range names {
		docs = append(docs, name)
	}
	sort.Strings(docs)

	fmt.Fprintln(out, "Status:  ready")
	fmt.Fprintf(out, "Entries: %d\n", total)
	fmt.Fprintf(out, "Documents (%d):\n", len(docs))
	for _, doc := range docs {
		fmt.Fprintf(out, "  - %s\n", doc)
	}
	return nil
}
