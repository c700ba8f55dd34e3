package core

import (
	"errors"
	"fmt"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/security"
)

var (
	ErrInvalidName          = security.ErrInvalidName
	ErrAlreadyExists        = errors.New("file already exists")
	ErrNotFound             = errors.New("file does not exist")
	ErrSourceUnreadable     = errors.New("source file unreadable")
	ErrAuthenticationFailed = crypto.ErrAuthFailed
	ErrBusy                 = errors.New("file is busy")
	ErrKeyRequired          = errors.New("file is encrypted, key required")
)

// OpError records the operation and logical name a failure belongs to.
// Callers branch on the cause with errors.Is.
type OpError struct {
	Op   string
	Name string
	Err  error
}

func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opErr(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OpError
	if errors.As(err, &existing) {
		return err
	}
	return &OpError{Op: op, Name: name, Err: err}
}
