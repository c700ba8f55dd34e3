package cmd

import (
	"github.com/spf13/cobra"
)

func catCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "cat <name>",
		Short: "Print a file, decrypting it if needed",
		Long: `Prints a stored file. For an encrypted file the passphrase is taken from
FILEVAULT_PASSWORD, then the OS keyring, then a terminal prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := readStored(cmd, store, args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a local file instead of stdout")
	return cmd
}
