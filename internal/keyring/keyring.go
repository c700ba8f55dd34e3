// Package keyring keeps store passphrases in the OS keyring, one entry per
// store ID.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "filevault"

// ErrNotFound is returned when no passphrase is stored for a store ID.
var ErrNotFound = keyring.ErrNotFound

// SavePassphrase stores the passphrase for storeID.
func SavePassphrase(storeID string, passphrase []byte) error {
	return keyring.Set(serviceName, storeID, string(passphrase))
}

// GetPassphrase returns the passphrase stored for storeID.
func GetPassphrase(storeID string) ([]byte, error) {
	secret, err := keyring.Get(serviceName, storeID)
	if err != nil {
		return nil, err
	}
	return []byte(secret), nil
}

// DeletePassphrase removes the passphrase for storeID. Deleting an absent
// entry returns ErrNotFound.
func DeletePassphrase(storeID string) error {
	return keyring.Delete(serviceName, storeID)
}

// HasPassphrase reports whether a passphrase is stored for storeID.
func HasPassphrase(storeID string) bool {
	_, err := keyring.Get(serviceName, storeID)
	return err == nil
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, keyring.ErrNotFound)
}
