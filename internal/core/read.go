package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/storage"
)

// FileInfo describes one stored file without decrypting it.
type FileInfo struct {
	Name      string
	Size      int64 // bytes on disk, header included
	ModTime   time.Time
	Encrypted bool
	KDF       string // empty for plaintext files
}

// Read returns the content stored under name. Encrypted files are decrypted
// with key; reading one without a key fails with ErrKeyRequired. A key given
// for a file that is not encrypted fails with ErrAuthenticationFailed.
func (s *Store) Read(ctx context.Context, name string, key []byte) ([]byte, error) {
	const op = "read"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return nil, opErr(op, name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, opErr(op, canonical, err)
	}

	data, err := s.readStored(canonical)
	if err != nil {
		return nil, opErr(op, canonical, err)
	}

	plaintext, err := decode(data, key)
	if err != nil {
		return nil, opErr(op, canonical, err)
	}
	return plaintext, nil
}

// Stat reports metadata for name. Only the header is read.
func (s *Store) Stat(ctx context.Context, name string) (*FileInfo, error) {
	const op = "stat"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return nil, opErr(op, name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, opErr(op, canonical, err)
	}

	info, err := s.lookup(canonical)
	if err != nil {
		return nil, opErr(op, canonical, err)
	}

	fi := &FileInfo{
		Name:    canonical,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	f, err := s.resolver.Open(canonical)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, opErr(op, canonical, ErrNotFound)
	}
	if err != nil {
		return nil, opErr(op, canonical, err)
	}
	defer f.Close()

	head := make([]byte, crypto.HeaderSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, opErr(op, canonical, fmt.Errorf("failed to read header: %w", err))
	}
	head = head[:n]

	if crypto.IsEnvelope(head) {
		fi.Encrypted = true
		if env, err := crypto.ParseHeader(head); err == nil {
			fi.KDF = env.KDF.ID.String()
		} else {
			fi.KDF = "unknown"
		}
	}
	return fi, nil
}

// Rekey re-encrypts name from oldKey to newKey under the name's lock. An
// empty oldKey reads a plaintext file; an empty newKey stores the content as
// plaintext. The new content replaces the old with one rename.
func (s *Store) Rekey(ctx context.Context, name string, oldKey, newKey []byte) error {
	const op = "rekey"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return opErr(op, name, err)
	}

	release, err := s.lock(ctx, canonical)
	if err != nil {
		return opErr(op, canonical, err)
	}
	defer release()

	data, err := s.readStored(canonical)
	if err != nil {
		return opErr(op, canonical, err)
	}

	plaintext, err := decode(data, oldKey)
	if err != nil {
		return opErr(op, canonical, err)
	}
	defer crypto.ClearBytes(plaintext)

	payload, err := s.encode(plaintext, newKey)
	if err != nil {
		return opErr(op, canonical, err)
	}

	if err := s.writeFile(ctx, canonical, payload, true); err != nil {
		return opErr(op, canonical, err)
	}

	s.record(storage.Record{
		Op:        storage.OpRekey,
		Name:      canonical,
		Size:      int64(len(payload)),
		Encrypted: len(newKey) > 0,
	})
	s.logger.Info().Str("op", op).Str("name", canonical).Bool("encrypted", len(newKey) > 0).Msg("rekeyed")
	return nil
}

func (s *Store) readStored(name string) ([]byte, error) {
	if _, err := s.lookup(name); err != nil {
		return nil, err
	}
	data, err := s.resolver.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	return data, nil
}

// decode opens an envelope with key. Without a key, data lacking an
// envelope header is returned unchanged. With a key, it must be an envelope:
// a damaged magic cannot turn a sealed file into plaintext.
func decode(data, key []byte) ([]byte, error) {
	if len(key) == 0 {
		if crypto.IsEnvelope(data) {
			return nil, ErrKeyRequired
		}
		return data, nil
	}
	if !crypto.IsEnvelope(data) {
		return nil, ErrAuthenticationFailed
	}

	env, err := crypto.ParseEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	return crypto.Open(env, key)
}
