package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/core"
)

func compactCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the journal database to reclaim disk space",
		Long:  "Compacts the store's journal database. Does not require a passphrase.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			dbPath := filepath.Join(store.Root(), core.JournalFile)
			info, err := os.Stat(dbPath)
			if err != nil {
				return err
			}
			sizeBefore := info.Size()

			if err := store.Compact(); err != nil {
				return err
			}

			info, err = os.Stat(dbPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(info.Size()))
			return nil
		},
	}
}
