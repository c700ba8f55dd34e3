package keys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	fvkeyring "github.com/illarion/filevault/internal/keyring"
)

type failing struct{ err error }

func (f failing) Passphrase(context.Context) ([]byte, error) { return nil, f.err }

func TestEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv(EnvPassphrase, "from-env")
	got, err := Env{}.Passphrase(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-env"), got)

	t.Setenv("CUSTOM_PASS", "")
	_, err = Env{Var: "CUSTOM_PASS"}.Passphrase(ctx)
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestStaticReturnsCopy(t *testing.T) {
	s := Static("fixed")
	got, err := s.Passphrase(context.Background())
	require.NoError(t, err)
	got[0] = 'X'
	assert.Equal(t, Static("fixed"), s, "clearing the result must not touch the source")

	_, err = Static(nil).Passphrase(context.Background())
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	k := Keyring{StoreID: "store-1"}
	_, err := k.Passphrase(ctx)
	assert.ErrorIs(t, err, ErrNoPassphrase)

	require.NoError(t, fvkeyring.SavePassphrase("store-1", []byte("kept")))
	got, err := k.Passphrase(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), got)

	_, err = Keyring{}.Passphrase(ctx)
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestPromptWithoutTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "not-a-tty"))
	require.NoError(t, err)
	defer f.Close()

	_, err = Prompt{FD: int(f.Fd())}.Passphrase(context.Background())
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("keyring locked")

	got, err := Chain{Static(nil), Static("second"), Static("third")}.Passphrase(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	_, err = Chain{Static(nil), failing{boom}, Static("never")}.Passphrase(ctx)
	assert.ErrorIs(t, err, boom, "a real failure stops the chain")

	_, err = Chain{Static(nil)}.Passphrase(ctx)
	assert.ErrorIs(t, err, ErrNoPassphrase)

	_, err = Chain{}.Passphrase(ctx)
	assert.ErrorIs(t, err, ErrNoPassphrase)
}
