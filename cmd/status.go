package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/git"
	"github.com/illarion/filevault/internal/keyring"
)

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store summary, file list and git hygiene",
		Long:  "Shows the store summary. Does not require a passphrase.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			status, err := store.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store: %s\n", status.Root)
			fmt.Fprintf(out, "   ID: %s (created %s)\n", status.StoreID, status.Created.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "   Files: %d (%d encrypted, %d plaintext)\n", len(status.Files), status.Encrypted, status.Plaintext)
			fmt.Fprintf(out, "   Total size: %s\n", formatSize(status.TotalSize))
			if keyring.HasPassphrase(status.StoreID) {
				fmt.Fprintln(out, "   Keyring: passphrase stored")
			}

			if len(status.Files) > 0 {
				fmt.Fprintln(out, "\nFiles:")
				for _, f := range status.Files {
					marker := "plain"
					if f.Encrypted {
						marker = "enc  "
					}
					fmt.Fprintf(out, "   %s  %10s  %s\n", marker, formatSize(f.Size), f.Name)
				}
			}

			fmt.Fprint(out, git.FormatGitStatus(status.Git))
			return nil
		},
	}
}
