package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/crypto"
)

func rekeyCmd(opts *options) *cobra.Command {
	var decrypt bool

	cmd := &cobra.Command{
		Use:   "rekey <name>",
		Short: "Change the passphrase of a file, or encrypt or decrypt it",
		Long: `Re-encrypts a file under a new passphrase. A plaintext file is encrypted.
With --decrypt the file is stored as plaintext. The new passphrase is read
from FILEVAULT_NEW_PASSWORD or prompted for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Stat(cmd.Context(), name)
			if err != nil {
				return err
			}

			var newKey []byte
			if !decrypt {
				newKey, err = newPassphrase(cmd.Context(), EnvNewPassphrase)
				if err != nil {
					return err
				}
				defer crypto.ClearBytes(newKey)
			}

			if info.Encrypted {
				err = withPassphrase(cmd, store, func(oldKey []byte) error {
					return store.Rekey(cmd.Context(), name, oldKey, newKey)
				})
			} else {
				err = store.Rekey(cmd.Context(), name, nil, newKey)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rekeyed: %s (%s)\n", info.Name, describeMode(!decrypt))
			return nil
		},
	}

	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "store the file as plaintext")
	return cmd
}
