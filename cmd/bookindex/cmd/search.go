package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
)

func newSearchCmd(a *app) *cobra.Command {
	var flags indexFlags

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Build an index and look up terms in it",
		Long: `Build an index from one or more document collections and print, for
every distinct normalized term of the arguments, the documents containing it
or found=false. Quoted arguments may hold several words.`,
		Example: `  bookindex search --source books.json alice dwarf king
  bookindex search --source books.json "ring and king"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := flags.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), instance.SearchIndex(tokenizer.Strings(args...)))
		},
	}

	flags.register(cmd)
	return cmd
}
