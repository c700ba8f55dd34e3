package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"plain ASCII text", []byte("Hello, World!\nThis is a test."), true},
		{"UTF-8 with special chars", []byte("Hello 世界! Ñoño café"), true},
		{"empty file", []byte(""), true},
		{"whitespace only", []byte("\n\n  \t  \n"), true},
		{"JSON content", []byte(`{"key": "value", "number": 123}`), true},
		{"null bytes", []byte("Hello\x00World"), false},
		{"invalid UTF-8", []byte{0x80, 0x81, 0x82, 0x83, 0x84}, false},
		{"control characters", []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileType(tt.content); got != tt.want {
				t.Errorf("DetectFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}, "image/png"},
		{"pdf", []byte("%PDF-1.7\n"), "application/pdf"},
		{"text", []byte("just some notes\n"), "text/plain"},
		{"empty", nil, "text/plain"},
		{"unknown binary", []byte{0x00, 0x13, 0x37, 0x00}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMimeType(tt.content))
		})
	}
}

func TestCompareFiles(t *testing.T) {
	assert.True(t, CompareFiles([]byte("same"), []byte("same")))
	assert.True(t, CompareFiles(nil, []byte{}))
	assert.False(t, CompareFiles([]byte("a"), []byte("b")))
	assert.False(t, CompareFiles([]byte("line1\n"), []byte("line1")))
}

func TestGenerateUnifiedDiff(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		diff, err := GenerateUnifiedDiff("a.txt", []byte("same\n"), []byte("same\n"))
		require.NoError(t, err)
		assert.Empty(t, diff)
	})

	t.Run("changed line", func(t *testing.T) {
		stored := []byte("line1\nline2\nline3\n")
		local := []byte("line1\nCHANGED\nline3\n")

		diff, err := GenerateUnifiedDiff("a.txt", stored, local)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(diff, "--- a/a.txt\n+++ b/a.txt\n"))
		assert.Contains(t, diff, "-line2")
		assert.Contains(t, diff, "+CHANGED")
	})

	t.Run("binary", func(t *testing.T) {
		diff, err := GenerateUnifiedDiff("img", []byte{0x00, 0x01}, []byte{0x00, 0x02})
		require.NoError(t, err)
		assert.Equal(t, "Binary file img has changed\n", diff)
	})
}

func TestStoreDiff(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "config.env", []byte("alpha\nbeta\n"), testKey))

	local := filepath.Join(t.TempDir(), "config.env")
	require.NoError(t, os.WriteFile(local, []byte("alpha\ngamma\n"), 0600))

	diff, err := s.Diff(ctx, "config.env", local, testKey)
	require.NoError(t, err)
	assert.Contains(t, diff, "-beta")
	assert.Contains(t, diff, "+gamma")

	require.NoError(t, os.WriteFile(local, []byte("alpha\nbeta\n"), 0600))
	diff, err = s.Diff(ctx, "config.env", local, testKey)
	require.NoError(t, err)
	assert.Empty(t, diff)

	_, err = s.Diff(ctx, "config.env", local, nil)
	assert.ErrorIs(t, err, ErrKeyRequired)

	_, err = s.Diff(ctx, "config.env", filepath.Join(t.TempDir(), "missing"), testKey)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
}
