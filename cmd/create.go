package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keys"
)

func createCmd(opts *options) *cobra.Command {
	var (
		content string
		encrypt bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a file from --content or stdin",
		Example: `  filevault create notes.txt --content "hello"
  echo "API_KEY=123" | filevault create .env --encrypt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := []byte(content)
			if !cmd.Flags().Changed("content") {
				var err error
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
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

			if err := store.Create(cmd.Context(), args[0], data, key); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created: %s (%s)\n", args[0], describeMode(encrypt))
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "file content (default: read stdin)")
	cmd.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "encrypt with a passphrase")
	return cmd
}

func describeMode(encrypted bool) string {
	if encrypted {
		return "encrypted"
	}
	return "plaintext"
}
