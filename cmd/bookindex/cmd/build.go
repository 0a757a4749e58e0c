package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/internal/engine"
	"github.com/gcbaptista/go-book-indexer/internal/source"
)

// indexFlags are shared by the commands that build a throwaway index.
type indexFlags struct {
	sources []string
	fields  []string
}

func (f *indexFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.sources, "source", "s", nil, "Document collection file or http(s) URL (repeatable)")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "Field concatenation order (default title,text)")
	_ = cmd.MarkFlagRequired("source")
}

// load builds a single in-memory index from the configured sources.
func (f *indexFlags) load(ctx context.Context, a *app) (*engine.IndexInstance, error) {
	src, err := source.FromLocations(f.sources, a.httpOptions())
	if err != nil {
		return nil, err
	}
	instance, err := engine.NewIndexInstance(config.IndexSettings{Name: "cli", Fields: f.fields}, engine.InstanceOptions{})
	if err != nil {
		return nil, err
	}
	if err := instance.Load(ctx, src); err != nil {
		return nil, err
	}
	return instance, nil
}

func newBuildCmd(a *app) *cobra.Command {
	var flags indexFlags
	var document int

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an index and print it as JSON",
		Long: `Build an index from one or more document collections and print the
term -> document positions mapping. With --document, print only the terms
occurring in that document, each with its full posting list.`,
		Example: `  bookindex build --source books.json
  bookindex build --source books.json --source https://example.com/more.json --document 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			instance, err := flags.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("document") {
				return writeJSON(cmd.OutOrStdout(), instance.GetDocumentIndex(document))
			}
			return writeJSON(cmd.OutOrStdout(), instance.GetIndex())
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&document, "document", "d", 0, "Only print the terms of this document position")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
