package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func statCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <name>",
		Short: "Show size, modification time and encryption of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := store.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:      %s\n", info.Name)
			fmt.Fprintf(out, "Size:      %s\n", formatSize(info.Size))
			fmt.Fprintf(out, "Modified:  %s\n", info.ModTime.Format(time.RFC3339))
			if info.Encrypted {
				fmt.Fprintf(out, "Encrypted: yes (AES-256-GCM, %s)\n", info.KDF)
			} else {
				fmt.Fprintln(out, "Encrypted: no")
			}
			return nil
		},
	}
}
