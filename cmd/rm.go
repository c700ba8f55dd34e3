package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func rmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name> [name...]",
		Short: "Delete files",
		Long:  "Deletes each named file. Every name is attempted; the errors are reported together.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var errs []error
			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed: %s\n", name)
			}
			return errors.Join(errs...)
		},
	}
}
