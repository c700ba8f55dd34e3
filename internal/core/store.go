package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/illarion/filevault/internal/crypto"
	"github.com/illarion/filevault/internal/security"
	"github.com/illarion/filevault/internal/storage"
)

const (
	JournalFile        = security.ReservedPrefix + ".db"
	DirPermSecure      = 0700 // Directory: owner rwx only
	FilePermSecure     = 0600 // File: owner rw only
	DefaultLockTimeout = 5 * time.Second
	copyChunkSize      = 32 * 1024
)

// Store manages one directory of optionally encrypted files. It is safe for
// concurrent use: mutations on the same logical name are serialized, while
// mutations on different names run independently.
type Store struct {
	resolver    *security.NameResolver
	journal     *storage.Journal
	journalMu   sync.RWMutex // held exclusively while the journal is compacted
	locks       *lockTable
	lockTimeout time.Duration
	kdf         crypto.KDFParams
	logger      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long an operation waits for a busy name.
// Zero or negative waits until the caller's context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// WithKDF selects the key derivation used for newly encrypted files.
// Existing files keep the KDF recorded in their header.
func WithKDF(params crypto.KDFParams) Option {
	return func(s *Store) {
		s.kdf = params
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens the store rooted at root, creating the directory if needed.
// Temp files left by an interrupted write are removed.
func Open(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("store root must not be empty")
	}
	if err := os.MkdirAll(root, DirPermSecure); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	resolver, err := security.New(root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize name resolver: %w", err)
	}

	journal, err := storage.Open(filepath.Join(resolver.Path(), JournalFile))
	if err != nil {
		resolver.Close()
		return nil, err
	}

	s := &Store{
		resolver:    resolver,
		journal:     journal,
		lockTimeout: DefaultLockTimeout,
		kdf:         crypto.DefaultKDFParams(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.kdf.Validate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid key derivation settings: %w", err)
	}
	s.locks = newLockTable(s.lockTimeout)

	removed, err := resolver.SweepTemps()
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to remove stale temp files")
	} else if len(removed) > 0 {
		s.logger.Info().Int("count", len(removed)).Msg("removed stale temp files")
	}

	return s, nil
}

// Close releases the journal and the root handle.
func (s *Store) Close() error {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	return errors.Join(s.journal.Close(), s.resolver.Close())
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.resolver.Path()
}

// Create stores content under name. With a non-empty key the content is
// encrypted; otherwise it is stored as raw bytes.
func (s *Store) Create(ctx context.Context, name string, content []byte, key []byte) error {
	const op = "create"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return opErr(op, name, err)
	}

	err = s.put(ctx, storage.OpCreate, canonical, key, func() ([]byte, error) {
		return content, nil
	})
	return opErr(op, canonical, err)
}

// Upload copies the file at sourcePath into the store under name,
// encrypting it when key is non-empty.
func (s *Store) Upload(ctx context.Context, name, sourcePath string, key []byte) error {
	const op = "upload"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return opErr(op, name, err)
	}

	err = s.put(ctx, storage.OpUpload, canonical, key, func() ([]byte, error) {
		return readSource(ctx, sourcePath)
	})
	return opErr(op, canonical, err)
}

// Rename moves oldName to newName. Both names stay locked for the whole
// check and move.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	const op = "rename"
	oldCanonical, err := s.resolver.Resolve(oldName)
	if err != nil {
		return opErr(op, oldName, err)
	}
	newCanonical, err := s.resolver.Resolve(newName)
	if err != nil {
		return opErr(op, newName, err)
	}

	release, err := s.lock(ctx, oldCanonical, newCanonical)
	if err != nil {
		return opErr(op, oldCanonical, err)
	}
	defer release()

	info, err := s.lookup(oldCanonical)
	if err != nil {
		return opErr(op, oldCanonical, err)
	}

	occupied, err := s.occupied(newCanonical)
	if err != nil {
		return opErr(op, newCanonical, err)
	}
	if occupied {
		return opErr(op, newCanonical, ErrAlreadyExists)
	}

	if err := ctx.Err(); err != nil {
		return opErr(op, oldCanonical, err)
	}

	if err := s.resolver.Rename(oldCanonical, newCanonical); err != nil {
		return opErr(op, oldCanonical, fmt.Errorf("failed to rename: %w", err))
	}

	s.record(storage.Record{
		Op:      storage.OpRename,
		Name:    oldCanonical,
		NewName: newCanonical,
		Size:    info.Size(),
	})
	s.logger.Info().Str("op", op).Str("name", oldCanonical).Str("new_name", newCanonical).Msg("renamed")
	return nil
}

// Delete removes the file stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	const op = "delete"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return opErr(op, name, err)
	}

	release, err := s.lock(ctx, canonical)
	if err != nil {
		return opErr(op, canonical, err)
	}
	defer release()

	info, err := s.lookup(canonical)
	if err != nil {
		return opErr(op, canonical, err)
	}

	if err := ctx.Err(); err != nil {
		return opErr(op, canonical, err)
	}

	if err := s.resolver.Remove(canonical); err != nil {
		return opErr(op, canonical, fmt.Errorf("failed to remove: %w", err))
	}

	s.record(storage.Record{Op: storage.OpDelete, Name: canonical, Size: info.Size()})
	s.logger.Info().Str("op", op).Str("name", canonical).Msg("deleted")
	return nil
}

// Search returns the stored names containing substr, sorted lexically.
// The directory is listed once when Search is called; the sequence then
// yields from that snapshot. An empty substr matches every file.
func (s *Store) Search(substr string) (iter.Seq[string], error) {
	entries, err := fs.ReadDir(s.resolver.Root().FS(), ".")
	if err != nil {
		return nil, opErr("search", substr, fmt.Errorf("failed to list store: %w", err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || security.IsReserved(name) {
			continue
		}
		if strings.Contains(name, substr) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return slices.Values(names), nil
}

// put runs the Absent -> Present transition shared by Create and Upload.
// The existence check, the load and the publish all happen under the lock.
func (s *Store) put(ctx context.Context, op storage.Op, name string, key []byte, load func() ([]byte, error)) error {
	release, err := s.lock(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	occupied, err := s.occupied(name)
	if err != nil {
		return err
	}
	if occupied {
		return ErrAlreadyExists
	}

	plaintext, err := load()
	if err != nil {
		return err
	}

	payload, err := s.encode(plaintext, key)
	if err != nil {
		return err
	}

	if err := s.writeFile(ctx, name, payload, false); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyExists
		}
		return err
	}

	rec := storage.Record{
		Op:        op,
		Name:      name,
		Size:      int64(len(payload)),
		Encrypted: len(key) > 0,
	}
	if !rec.Encrypted {
		rec.MimeType = DetectMimeType(plaintext)
	}
	s.record(rec)
	s.logger.Info().
		Str("op", string(op)).
		Str("name", name).
		Bool("encrypted", rec.Encrypted).
		Int64("size", rec.Size).
		Msg("stored")
	return nil
}

func (s *Store) lock(ctx context.Context, names ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	release, err := s.locks.acquire(ctx, names...)
	if err != nil {
		s.logger.Debug().Err(err).Strs("names", names).Msg("lock not acquired")
		return nil, err
	}
	s.logger.Debug().Strs("names", names).Msg("lock acquired")
	return release, nil
}

// lookup returns the info of the regular file stored under name.
func (s *Store) lookup(name string) (os.FileInfo, error) {
	info, err := s.resolver.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	return info, nil
}

// occupied reports whether any directory entry already uses name.
func (s *Store) occupied(name string) (bool, error) {
	_, err := s.resolver.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// encode seals plaintext when a key is given and returns it unchanged otherwise.
func (s *Store) encode(plaintext, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return plaintext, nil
	}

	env, err := crypto.Seal(plaintext, key, s.kdf)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return env.MarshalBinary()
}

// writeFile writes payload to a fresh temp file and publishes it under name.
// With replace the publish is a single rename over the old content; without
// it the publish fails with fs.ErrExist if name appeared meanwhile. On any
// failure, including cancellation before the publish, the temp file is
// removed and name is left untouched.
func (s *Store) writeFile(ctx context.Context, name string, payload []byte, replace bool) error {
	f, tmpName, err := s.resolver.CreateTemp(FilePermSecure)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := writeChunks(ctx, f, payload); err != nil {
		_ = f.Close()
		s.discardTemp(tmpName)
		return err
	}
	if err := f.Close(); err != nil {
		s.discardTemp(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		s.discardTemp(tmpName)
		return err
	}

	publish := s.resolver.PublishNew
	if replace {
		publish = s.resolver.Publish
	}
	if err := publish(tmpName, name); err != nil {
		s.discardTemp(tmpName)
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

func (s *Store) discardTemp(tmpName string) {
	if err := s.resolver.RemoveTemp(tmpName); err != nil {
		s.logger.Warn().Err(err).Str("temp", tmpName).Msg("failed to remove temp file")
	}
}

func writeChunks(ctx context.Context, f *os.File, payload []byte) error {
	for off := 0; off < len(payload); off += copyChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+copyChunkSize, len(payload))
		if _, err := f.Write(payload[off:end]); err != nil {
			return fmt.Errorf("failed to write temp file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	return nil
}

// readSource reads a regular file from outside the store, checking ctx
// between chunks.
func readSource(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrSourceUnreadable, path)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	chunk := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
		}
	}
	return buf.Bytes(), nil
}

// record appends to the journal. The mutation already happened on disk, so
// a journal failure is logged rather than returned.
func (s *Store) record(rec storage.Record) {
	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	if _, err := s.journal.Append(rec); err != nil {
		s.logger.Warn().Err(err).Str("op", string(rec.Op)).Str("name", rec.Name).Msg("failed to journal operation")
	}
}
