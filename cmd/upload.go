package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keys"
)

func uploadCmd(opts *options) *cobra.Command {
	var encrypt bool

	cmd := &cobra.Command{
		Use:   "upload <source> [name]",
		Short: "Copy a local file into the store",
		Long:  "Copies a local file into the store. The name defaults to the source's base name.",
		Example: `  filevault upload ~/Downloads/report.pdf
  filevault upload ./id_ed25519 ssh-key --encrypt`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			name := filepath.Base(source)
			if len(args) == 2 {
				name = args[1]
			}

			var key []byte
			if encrypt {
				var err error
				key, err = newPassphrase(cmd.Context(), keys.EnvPassphrase)
				if err != nil {
					return err
				}
				defer crypto.ClearBytes(key)
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Upload(cmd.Context(), name, source, key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "uploaded: %s -> %s (%s)\n", source, name, describeMode(encrypt))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "encrypt with a passphrase")
	return cmd
}
