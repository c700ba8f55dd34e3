package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ReservedPrefix marks names owned by the store itself (journal, temp files).
const ReservedPrefix = ".filevault"

// TempPrefix is the name prefix of in-flight writes awaiting publish.
const TempPrefix = ReservedPrefix + "-tmp-"

// MaxNameLength is the longest canonical name in bytes (NAME_MAX on common
// filesystems).
const MaxNameLength = 255

var (
	ErrInvalidName  = errors.New("invalid name")
	ErrEmptyPath    = fmt.Errorf("%w: empty name not allowed", ErrInvalidName)
	ErrAbsolutePath = fmt.Errorf("%w: absolute paths are not allowed", ErrInvalidName)
	ErrPathEscapes  = fmt.Errorf("%w: path escapes store root", ErrInvalidName)
	ErrNestedPath   = fmt.Errorf("%w: nested paths are not allowed", ErrInvalidName)
	ErrReservedName = fmt.Errorf("%w: name is reserved", ErrInvalidName)
	ErrBadCharacter = fmt.Errorf("%w: name contains a NUL byte", ErrInvalidName)
	ErrNameTooLong  = fmt.Errorf("%w: name is too long", ErrInvalidName)
)

// NameResolver maps logical names to canonical entries directly under the
// store root. All file operations go through an os.Root so that nothing can
// be read or written outside the store, even via symlinks.
type NameResolver struct {
	root     *os.Root
	rootPath string
}

// New creates a NameResolver for the store directory at the given path.
func New(rootPath string) (*NameResolver, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store root: %w", err)
	}

	return &NameResolver{
		root:     root,
		rootPath: absPath,
	}, nil
}

// Close releases the root handle.
func (r *NameResolver) Close() error {
	if r.root != nil {
		return r.root.Close()
	}
	return nil
}

// Path returns the absolute path of the store root.
func (r *NameResolver) Path() string {
	return r.rootPath
}

// Root returns the confined root handle.
func (r *NameResolver) Root() *os.Root {
	return r.root
}

// Resolve validates a user-supplied name and returns its canonical form.
// It rejects:
// - Empty names (including "." and "./")
// - Absolute paths
// - Names that escape the root (using ..)
// - Names that still contain a separator after cleaning
// - Names in the reserved .filevault namespace
// - Names containing a NUL byte or longer than MaxNameLength
//
// Equivalent spellings such as "a.txt" and "./a.txt" resolve to the same
// canonical name. Resolve never touches the filesystem.
func (r *NameResolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrBadCharacter, name)
	}

	// filepath.IsLocal rejects absolute paths, escaping paths and
	// Windows reserved names in one go
	if !filepath.IsLocal(name) {
		if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, name)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}

	cleanName := filepath.Clean(name)
	if cleanName == "." {
		return "", ErrEmptyPath
	}

	// The store is flat: one directory entry per logical name
	if strings.ContainsRune(cleanName, filepath.Separator) || strings.Contains(cleanName, "/") {
		return "", fmt.Errorf("%w: %s", ErrNestedPath, name)
	}

	if IsReserved(cleanName) {
		return "", fmt.Errorf("%w: %s", ErrReservedName, name)
	}

	if len(cleanName) > MaxNameLength {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrNameTooLong, len(cleanName), MaxNameLength)
	}

	return cleanName, nil
}

// IsReserved reports whether a directory entry belongs to the store itself.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// Stat returns file info for a canonical name without following symlinks.
func (r *NameResolver) Stat(name string) (os.FileInfo, error) {
	if _, err := r.Resolve(name); err != nil {
		return nil, err
	}
	return r.root.Lstat(name)
}

// ReadFile reads a stored file by canonical name.
func (r *NameResolver) ReadFile(name string) ([]byte, error) {
	if _, err := r.Resolve(name); err != nil {
		return nil, err
	}
	return r.root.ReadFile(name)
}

// Open opens a stored file for reading by canonical name.
func (r *NameResolver) Open(name string) (*os.File, error) {
	if _, err := r.Resolve(name); err != nil {
		return nil, err
	}
	return r.root.Open(name)
}

// Remove deletes a stored file by canonical name.
func (r *NameResolver) Remove(name string) error {
	if _, err := r.Resolve(name); err != nil {
		return err
	}
	return r.root.Remove(name)
}

// Rename moves a stored file between two canonical names. The rename is a
// single directory-entry operation and therefore atomic.
func (r *NameResolver) Rename(oldName, newName string) error {
	if _, err := r.Resolve(oldName); err != nil {
		return err
	}
	if _, err := r.Resolve(newName); err != nil {
		return err
	}
	return r.root.Rename(oldName, newName)
}

// CreateTemp creates a fresh temp file inside the root with exclusive-create
// semantics. The returned name is only valid for Publish and RemoveTemp.
func (r *NameResolver) CreateTemp(perm os.FileMode) (*os.File, string, error) {
	name := TempPrefix + uuid.NewString()
	f, err := r.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

// Publish atomically moves a temp file to its canonical name, replacing
// whatever was stored there.
func (r *NameResolver) Publish(tempName, name string) error {
	if err := r.checkPublish(tempName, name); err != nil {
		return err
	}
	return r.root.Rename(tempName, name)
}

// PublishNew makes a temp file visible under name only if name is still
// free. The hard link fails with fs.ErrExist when another writer got there
// first, even one outside this process; the temp entry is removed after.
func (r *NameResolver) PublishNew(tempName, name string) error {
	if err := r.checkPublish(tempName, name); err != nil {
		return err
	}
	if err := r.root.Link(tempName, name); err != nil {
		return err
	}
	return r.RemoveTemp(tempName)
}

func (r *NameResolver) checkPublish(tempName, name string) error {
	if !strings.HasPrefix(tempName, TempPrefix) {
		return fmt.Errorf("%w: not a temp file: %s", ErrInvalidName, tempName)
	}
	_, err := r.Resolve(name)
	return err
}

// RemoveTemp deletes a temp file. Missing files are not an error.
func (r *NameResolver) RemoveTemp(tempName string) error {
	if !strings.HasPrefix(tempName, TempPrefix) {
		return fmt.Errorf("%w: not a temp file: %s", ErrInvalidName, tempName)
	}
	if err := r.root.Remove(tempName); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SweepTemps removes temp files left behind by an interrupted process.
func (r *NameResolver) SweepTemps() ([]string, error) {
	dir, err := r.root.Open(".")
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range names {
		if !strings.HasPrefix(name, TempPrefix) {
			continue
		}
		if err := r.RemoveTemp(name); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}
