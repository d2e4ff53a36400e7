package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webdedesign/vergiai/internal/storage"
)

var confirmRecreate bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
}

var recreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Delete and recreate the vector index with the configured dimension",
	Long: `Drops the Qdrant collection and creates it again empty, with cosine
distance and the configured embedding dimension. Every stored document is
lost and must be ingested again.

Needed after changing embedding.model or store.qdrant.dimension, when
the existing collection reports a dimension mismatch.`,
	Args: cobra.NoArgs,
	RunE: runRecreate,
}

func init() {
	recreateCmd.Flags().BoolVar(&confirmRecreate, "yes", false, "confirm that all stored documents will be deleted")
	indexCmd.AddCommand(recreateCmd)
}

type recreator interface {
	Recreate(ctx context.Context) error
}

func runRecreate(cmd *cobra.Command, args []string) error {
	if !confirmRecreate {
		return errors.New("refusing to delete the index without --yes")
	}

	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Store.Backend != storage.BackendQdrant {
		return fmt.Errorf("index recreate needs the %s backend, configured: %s", storage.BackendQdrant, a.cfg.Store.Backend)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	r, ok := store.(recreator)
	if !ok {
		return fmt.Errorf("%s store cannot be recreated", a.cfg.Store.Backend)
	}
	if err := r.Recreate(ctx); err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Index %s recreated (dimension %d). Run `vergiai ingest` to fill it.\n",
		a.cfg.Store.Table, a.cfg.Store.Qdrant.Dimension)
	return nil
}
