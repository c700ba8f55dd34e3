// Package keys supplies passphrases to the store from the environment, the
// OS keyring or an interactive terminal.
package keys

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/keyring"
)

// EnvPassphrase is the environment variable read by Env.
const EnvPassphrase = "FILEVAULT_PASSWORD"

// ErrNoPassphrase means a provider has nothing to offer. Chain moves on to
// the next provider; any other error stops it.
var ErrNoPassphrase = errors.New("no passphrase available")

// Provider returns a passphrase. The caller owns the returned slice and
// should clear it with crypto.ClearBytes when done.
type Provider interface {
	Passphrase(ctx context.Context) ([]byte, error)
}

// Env reads the passphrase from an environment variable.
type Env struct {
	Var string // defaults to EnvPassphrase
}

func (e Env) Passphrase(ctx context.Context) ([]byte, error) {
	name := e.Var
	if name == "" {
		name = EnvPassphrase
	}
	value := os.Getenv(name)
	if value == "" {
		return nil, ErrNoPassphrase
	}
	// Return a copy to avoid issues when clearing the bytes
	return []byte(value), nil
}

// Static always returns the same passphrase.
type Static []byte

func (s Static) Passphrase(ctx context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, ErrNoPassphrase
	}
	return bytes.Clone(s), nil
}

// Keyring reads the passphrase saved in the OS keyring for a store.
type Keyring struct {
	StoreID string
}

func (k Keyring) Passphrase(ctx context.Context) ([]byte, error) {
	if k.StoreID == "" {
		return nil, ErrNoPassphrase
	}
	passphrase, err := keyring.GetPassphrase(k.StoreID)
	if keyring.IsNotFound(err) {
		return nil, ErrNoPassphrase
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return passphrase, nil
}

// Prompt reads the passphrase from a terminal without echoing it. When the
// descriptor is not a terminal it offers nothing.
type Prompt struct {
	Message string    // defaults to "Enter passphrase: "
	Confirm bool      // ask twice and require both entries to match
	FD      int       // terminal to read from; zero is stdin
	Out     io.Writer // where prompts go; defaults to stderr
}

func (p Prompt) Passphrase(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !term.IsTerminal(p.FD) {
		return nil, ErrNoPassphrase
	}

	message := p.Message
	if message == "" {
		message = "Enter passphrase: "
	}

	first, err := p.read(message)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, ErrNoPassphrase
	}
	if !p.Confirm {
		return first, nil
	}

	second, err := p.read("Confirm passphrase: ")
	if err != nil {
		crypto.ClearBytes(first)
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		crypto.ClearBytes(first)
		return nil, errors.New("passphrases do not match")
	}
	return first, nil
}

func (p Prompt) read(message string) ([]byte, error) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, message)

	passphrase, err := term.ReadPassword(p.FD)
	fmt.Fprintln(out) // New line after passphrase
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// Chain asks each provider in order and returns the first passphrase found.
type Chain []Provider

func (c Chain) Passphrase(ctx context.Context) ([]byte, error) {
	for _, p := range c {
		passphrase, err := p.Passphrase(ctx)
		if err == nil {
			return passphrase, nil
		}
		if !errors.Is(err, ErrNoPassphrase) {
			return nil, err
		}
	}
	return nil, ErrNoPassphrase
}
