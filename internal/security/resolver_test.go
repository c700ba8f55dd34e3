package security

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNameResolver_Resolve(t *testing.T) {
	tmpDir := t.TempDir()

	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	tests := []struct {
		name    string
		input   string
		want    string
		errType error
	}{
		// Valid names
		{"simple file", "test.txt", "test.txt", nil},
		{"hidden file", ".env", ".env", nil},
		{"dot slash", "./test.txt", "test.txt", nil},
		{"redundant slashes", ".//test.txt", "test.txt", nil},
		{"inner parent collapses", "a/../test.txt", "test.txt", nil},

		// Path traversal attempts
		{"parent directory", "../test.txt", "", ErrPathEscapes},
		{"nested parent", "a/../../test.txt", "", ErrPathEscapes},
		{"multiple parents", "../../etc/passwd", "", ErrPathEscapes},
		{"bare parent", "..", "", ErrPathEscapes},
		{"absolute path unix", "/etc/passwd", "", ErrAbsolutePath},

		// Empty names
		{"empty path", "", "", ErrEmptyPath},
		{"dot", ".", "", ErrEmptyPath},
		{"dot slash only", "./", "", ErrEmptyPath},

		// Flat namespace
		{"file in subdirectory", "subdir/test.txt", "", ErrNestedPath},
		{"redundant inner slashes", "a//b", "", ErrNestedPath},

		// Reserved names
		{"journal", ".filevault.db", "", ErrReservedName},
		{"temp file", ".filevault-tmp-123", "", ErrReservedName},

		// Names the filesystem cannot hold
		{"nul byte", "a\x00b", "", ErrBadCharacter},
		{"trailing nul", "a.txt\x00", "", ErrBadCharacter},
		{"too long", strings.Repeat("n", MaxNameLength+1), "", ErrNameTooLong},
		{"at the limit", strings.Repeat("n", MaxNameLength), strings.Repeat("n", MaxNameLength), nil},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, []struct {
			name    string
			input   string
			want    string
			errType error
		}{
			{"absolute path windows", "C:\\Windows\\System32\\config", "", ErrAbsolutePath},
			{"unc path", "\\\\server\\share\\file", "", ErrPathEscapes},
		}...)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := resolver.Resolve(tt.input)

			if tt.errType != nil {
				if err == nil {
					t.Errorf("Expected error for input %q, got %q", tt.input, result)
					return
				}
				if !errors.Is(err, tt.errType) {
					t.Errorf("Expected error %v, got %v", tt.errType, err)
				}
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("Error %v should wrap ErrInvalidName", err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error for input %q: %v", tt.input, err)
				return
			}
			if result != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, result, tt.want)
			}
		})
	}
}

func TestNameResolver_EquivalentSpellings(t *testing.T) {
	resolver, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	a, err := resolver.Resolve("a.txt")
	if err != nil {
		t.Fatalf("Resolve(a.txt): %v", err)
	}
	b, err := resolver.Resolve("./a.txt")
	if err != nil {
		t.Fatalf("Resolve(./a.txt): %v", err)
	}
	if a != b {
		t.Errorf("a.txt and ./a.txt resolved differently: %q vs %q", a, b)
	}
}

func TestNameResolver_ResolveIsPure(t *testing.T) {
	tmpDir := t.TempDir()
	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	if _, err := resolver.Resolve("not-there.txt"); err != nil {
		t.Fatalf("Resolve of a missing file should succeed: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Resolve created %d entries in the root", len(entries))
	}
}

func TestNameResolver_TempPublish(t *testing.T) {
	tmpDir := t.TempDir()
	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	f, tmpName, err := resolver.CreateTemp(0600)
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if !strings.HasPrefix(tmpName, TempPrefix) {
		t.Errorf("temp name %q lacks prefix %q", tmpName, TempPrefix)
	}
	if _, err := f.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := resolver.Publish(tmpName, "final.txt"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "final.txt"))
	if err != nil {
		t.Fatalf("Failed to read published file: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("content = %q, want payload", content)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, tmpName)); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone after publish, stat err = %v", err)
	}
}

func TestNameResolver_PublishNew(t *testing.T) {
	tmpDir := t.TempDir()
	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	writeTemp := func(content string) string {
		t.Helper()
		f, tmpName, err := resolver.CreateTemp(0600)
		if err != nil {
			t.Fatalf("CreateTemp: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		return tmpName
	}

	first := writeTemp("first")
	if err := resolver.PublishNew(first, "taken.txt"); err != nil {
		t.Fatalf("PublishNew: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, first)); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone after publish, stat err = %v", err)
	}

	second := writeTemp("second")
	if err := resolver.PublishNew(second, "taken.txt"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("PublishNew over an existing file should fail with fs.ErrExist, got %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, "taken.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "first" {
		t.Errorf("existing file was replaced: content = %q", content)
	}

	if err := resolver.Publish(second, "taken.txt"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	content, err = os.ReadFile(filepath.Join(tmpDir, "taken.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "second" {
		t.Errorf("Publish should replace: content = %q", content)
	}
}

func TestNameResolver_PublishRejectsNonTemp(t *testing.T) {
	tmpDir := t.TempDir()
	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	if err := os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("a"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := resolver.Publish("a.txt", "b.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Publish from a non-temp name should fail with ErrInvalidName, got %v", err)
	}
	if err := resolver.PublishNew("a.txt", "b.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("PublishNew from a non-temp name should fail with ErrInvalidName, got %v", err)
	}
	if err := resolver.RemoveTemp("a.txt"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("RemoveTemp of a non-temp name should fail with ErrInvalidName, got %v", err)
	}
}

func TestNameResolver_SweepTemps(t *testing.T) {
	tmpDir := t.TempDir()
	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	for i := 0; i < 3; i++ {
		f, _, err := resolver.CreateTemp(0600)
		if err != nil {
			t.Fatalf("CreateTemp: %v", err)
		}
		f.Close()
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "keep.txt"), []byte("keep"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	removed, err := resolver.SweepTemps()
	if err != nil {
		t.Fatalf("SweepTemps: %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("removed %d temp files, want 3", len(removed))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep.txt" {
		t.Errorf("unexpected entries after sweep: %v", entries)
	}
}

// Test that os.Root actually prevents escaping through a symlink
func TestNameResolver_ActualEscapePrevention(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	tmpDir := t.TempDir()
	outsideDir := t.TempDir()
	secret := filepath.Join(outsideDir, "secret.txt")
	if err := os.WriteFile(secret, []byte("secret"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := os.Symlink(secret, filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	resolver, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	defer resolver.Close()

	if _, err := resolver.ReadFile("link.txt"); err == nil {
		t.Error("Expected error when reading through a symlink that leaves the root")
	}
}
