package config

import "errors"

var (
	// ErrEmptyRoot indicates the store directory path is empty.
	ErrEmptyRoot = errors.New("config: store root must not be empty")

	// ErrInvalidLockTimeout indicates the lock timeout is malformed or negative.
	ErrInvalidLockTimeout = errors.New("config: invalid lock timeout")

	// ErrInvalidKDF indicates the key derivation name is not recognized.
	ErrInvalidKDF = errors.New("config: invalid kdf (must be \"pbkdf2\" or \"scrypt\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level")
)
