package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func searchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "search [substring]",
		Aliases: []string{"ls"},
		Short:   "List files whose name contains a substring",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			substr := ""
			if len(args) == 1 {
				substr = args[0]
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.Search(substr)
			if err != nil {
				return err
			}
			for name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
