package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/illarion/filevault/internal/core"
	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keys"
)

// EnvNewPassphrase supplies the new passphrase for rekey without a prompt.
const EnvNewPassphrase = "FILEVAULT_NEW_PASSWORD"

// passphraseSources lists where an existing passphrase is looked up, in order.
func passphraseSources(storeID string) []keys.Provider {
	return []keys.Provider{
		keys.Env{},
		keys.Keyring{StoreID: storeID},
		keys.Prompt{},
	}
}

// withPassphrase runs fn with a passphrase for an existing encrypted file.
// A keyring entry that fails authentication is treated as stale and the
// next source is asked. The passphrase is cleared after fn returns.
func withPassphrase(cmd *cobra.Command, store *core.Store, fn func(passphrase []byte) error) error {
	ctx := cmd.Context()
	storeID, err := store.StoreID()
	if err != nil {
		return err
	}

	for _, provider := range passphraseSources(storeID) {
		passphrase, err := provider.Passphrase(ctx)
		if errors.Is(err, keys.ErrNoPassphrase) {
			continue
		}
		if err != nil {
			return err
		}

		err = fn(passphrase)
		crypto.ClearBytes(passphrase)

		if _, fromKeyring := provider.(keys.Keyring); fromKeyring && errors.Is(err, core.ErrAuthenticationFailed) {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: passphrase in keyring is stale")
			continue
		}
		return err
	}
	return core.ErrKeyRequired
}

// readStored returns the content of name, asking for a passphrase only when
// the file is encrypted.
func readStored(cmd *cobra.Command, store *core.Store, name string) ([]byte, error) {
	info, err := store.Stat(cmd.Context(), name)
	if err != nil {
		return nil, err
	}
	if !info.Encrypted {
		return store.Read(cmd.Context(), name, nil)
	}

	var data []byte
	err = withPassphrase(cmd, store, func(passphrase []byte) error {
		var err error
		data, err = store.Read(cmd.Context(), name, passphrase)
		return err
	})
	if errors.Is(err, core.ErrKeyRequired) {
		return nil, &core.OpError{Op: "read", Name: info.Name, Err: err}
	}
	return data, err
}

// newPassphrase asks for a passphrase to encrypt new content with.
func newPassphrase(ctx context.Context, envVar string) ([]byte, error) {
	chain := keys.Chain{
		keys.Env{Var: envVar},
		keys.Prompt{Message: "New passphrase: ", Confirm: true},
	}
	passphrase, err := chain.Passphrase(ctx)
	if errors.Is(err, keys.ErrNoPassphrase) {
		return nil, fmt.Errorf("passphrase required: set %s or run in a terminal", envVar)
	}
	return passphrase, err
}

// writeOutput writes data to stdout when path is empty or "-", otherwise via
// a temp file then rename.
func writeOutput(out io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := out.Write(data)
		return err
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(core.FilePermSecure); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// HandleError prints err in a user-facing form and exits 1.
func HandleError(err error) {
	fmt.Fprintln(os.Stderr, Describe(err))
	os.Exit(1)
}

// Describe maps err to the message shown to the user.
func Describe(err error) string {
	var opErr *core.OpError
	name := "file"
	if errors.As(err, &opErr) {
		name = opErr.Name
	}

	switch {
	case errors.Is(err, core.ErrInvalidName):
		return fmt.Sprintf("Error: %s\nNames must be a single file name inside the store", err)
	case errors.Is(err, core.ErrAlreadyExists):
		return fmt.Sprintf("Error: %s already exists in the store", name)
	case errors.Is(err, core.ErrNotFound):
		return fmt.Sprintf("Error: %s not found in the store\nUse 'filevault search' to list files", name)
	case errors.Is(err, core.ErrSourceUnreadable):
		return fmt.Sprintf("Error: cannot read source file: %s", err)
	case errors.Is(err, core.ErrAuthenticationFailed):
		return fmt.Sprintf("Error: %s: wrong passphrase or corrupted file", name)
	case errors.Is(err, core.ErrKeyRequired):
		return fmt.Sprintf("Error: %s is encrypted\nSet %s, save it with 'filevault keyring save', or run in a terminal", name, keys.EnvPassphrase)
	case errors.Is(err, core.ErrBusy):
		return fmt.Sprintf("Error: %s is busy, try again or raise --lock-timeout", name)
	case errors.Is(err, context.Canceled):
		return "Error: interrupted"
	default:
		return fmt.Sprintf("Error: %s", err)
	}
}
