package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/storage"
)

func logCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "log [name]",
		Short: "Show the journal of completed operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.History(cmd.Context(), name)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "(no history)")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "%6d  %s  %-7s %s\n", rec.Seq, rec.At.Local().Format(time.DateTime), rec.Op, describeRecord(rec))
			}
			return nil
		},
	}
}

func describeRecord(rec storage.Record) string {
	switch rec.Op {
	case storage.OpRename:
		return fmt.Sprintf("%s -> %s", rec.Name, rec.NewName)
	case storage.OpDelete:
		return rec.Name
	}

	detail := describeMode(rec.Encrypted)
	if rec.MimeType != "" {
		detail += ", " + rec.MimeType
	}
	return fmt.Sprintf("%s (%s, %s)", rec.Name, formatSize(rec.Size), detail)
}
