package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/core"
	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keyring"
	"github.com/illarion/filevault/internal/keys"
)

func keyringCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the store passphrase in the OS keyring",
	}
	cmd.AddCommand(keyringSaveCmd(opts), keyringDeleteCmd(opts), keyringStatusCmd(opts))
	return cmd
}

func keyringSaveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the passphrase to the OS keyring",
		Long: `Saves the passphrase for this store to the OS keyring. When the store holds
encrypted files, the passphrase must open one of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			chain := keys.Chain{keys.Env{}, keys.Prompt{}}
			passphrase, err := chain.Passphrase(cmd.Context())
			if errors.Is(err, keys.ErrNoPassphrase) {
				return fmt.Errorf("passphrase required: set %s or run in a terminal", keys.EnvPassphrase)
			}
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(passphrase)

			if err := verifyPassphrase(cmd, store, passphrase); err != nil {
				return err
			}

			storeID, err := store.StoreID()
			if err != nil {
				return err
			}
			if err := keyring.SavePassphrase(storeID, passphrase); err != nil {
				return fmt.Errorf("failed to save to keyring: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase saved to keyring")
			return nil
		},
	}
}

func keyringDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the passphrase from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			storeID, err := store.StoreID()
			if err != nil {
				return err
			}

			if err := keyring.DeletePassphrase(storeID); err != nil {
				if keyring.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "No passphrase stored in keyring")
					return nil
				}
				return fmt.Errorf("failed to delete from keyring: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Passphrase removed from keyring")
			return nil
		},
	}
}

func keyringStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a passphrase is stored in the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			storeID, err := store.StoreID()
			if err != nil {
				return err
			}

			if keyring.HasPassphrase(storeID) {
				fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: stored in keyring")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Passphrase: not stored")
			}
			return nil
		},
	}
}

// verifyPassphrase checks passphrase against the first encrypted file. A
// store without encrypted files accepts any passphrase.
func verifyPassphrase(cmd *cobra.Command, store *core.Store, passphrase []byte) error {
	names, err := store.Search("")
	if err != nil {
		return err
	}
	for name := range names {
		info, err := store.Stat(cmd.Context(), name)
		if err != nil || !info.Encrypted {
			continue
		}
		data, err := store.Read(cmd.Context(), name, passphrase)
		crypto.ClearBytes(data)
		return err
	}
	return nil
}
