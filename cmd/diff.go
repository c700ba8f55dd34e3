package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func diffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <name> <local-file>",
		Short: "Compare a stored file with a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, local := args[0], args[1]

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Stat(cmd.Context(), name)
			if err != nil {
				return err
			}

			var diff string
			if info.Encrypted {
				err = withPassphrase(cmd, store, func(passphrase []byte) error {
					var err error
					diff, err = store.Diff(cmd.Context(), name, local, passphrase)
					return err
				})
			} else {
				diff, err = store.Diff(cmd.Context(), name, local, nil)
			}
			if err != nil {
				return err
			}

			if diff == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no differences\n", info.Name)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}
