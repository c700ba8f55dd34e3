package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	BinarySampleSize   = 8192 // Bytes to sample for text/binary detection
	BinaryThresholdPct = 10   // Max % non-printable chars for text files
	sniffSize          = 261  // filetype needs at most this many bytes
)

const (
	mimeText   = "text/plain"
	mimeBinary = "application/octet-stream"
)

// DetectFileType determines if content is likely text.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary (executables, images, etc.)
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func DetectFileType(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data[:min(len(data), BinarySampleSize)]
	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		// Allow common whitespace: space, tab, newline, carriage return
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}

	threshold := len(sample) * BinaryThresholdPct / 100
	return nonPrintable <= threshold
}

// DetectMimeType sniffs the content type from magic numbers, falling back
// to text/plain or application/octet-stream.
func DetectMimeType(data []byte) string {
	kind, err := filetype.Match(data[:min(len(data), sniffSize)])
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if DetectFileType(data) {
		return mimeText
	}
	return mimeBinary
}

// CompareFiles checks if two contents are identical by SHA-256.
func CompareFiles(a, b []byte) bool {
	aHash := sha256.Sum256(a)
	bHash := sha256.Sum256(b)
	return bytes.Equal(aHash[:], bHash[:])
}

// GenerateUnifiedDiff creates a unified diff of stored against local content.
// Returns "" when they are identical.
func GenerateUnifiedDiff(name string, storedData, localData []byte) (string, error) {
	if CompareFiles(storedData, localData) {
		return "", nil
	}

	if !DetectFileType(storedData) || !DetectFileType(localData) {
		return fmt.Sprintf("Binary file %s has changed\n", name), nil
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	storedStr, localStr := string(storedData), string(localData)
	a, b, lineArray := dmp.DiffLinesToChars(storedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(storedStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", name))
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}

// Diff compares the stored content of name with the file at localPath.
func (s *Store) Diff(ctx context.Context, name, localPath string, key []byte) (string, error) {
	const op = "diff"
	canonical, err := s.resolver.Resolve(name)
	if err != nil {
		return "", opErr(op, name, err)
	}

	stored, err := s.Read(ctx, canonical, key)
	if err != nil {
		return "", err
	}

	local, err := os.ReadFile(localPath)
	if err != nil {
		return "", opErr(op, canonical, fmt.Errorf("%w: %w", ErrSourceUnreadable, err))
	}

	return GenerateUnifiedDiff(canonical, stored, local)
}
