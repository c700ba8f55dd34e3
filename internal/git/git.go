package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitStatus reports how the plaintext files of a store relate to the git
// work tree the store lives in.
type GitStatus struct {
	IsRepo           bool
	TrackedPlaintext []string // Plaintext files tracked by git (bad)
	IgnoredPlaintext []string // Plaintext files in .gitignore (good)
	ExposedPlaintext []string // Plaintext files neither tracked nor ignored (warning)
}

// Clean reports whether no plaintext file is tracked or at risk of being added.
func (s *GitStatus) Clean() bool {
	return !s.IsRepo || (len(s.TrackedPlaintext) == 0 && len(s.ExposedPlaintext) == 0)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(ctx context.Context, workDir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir

	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// CheckStore classifies the given plaintext file names, relative to workDir.
// Outside a git work tree it returns a status with IsRepo false.
func CheckStore(ctx context.Context, workDir string, plaintextNames []string) (*GitStatus, error) {
	status := &GitStatus{}

	if !IsGitRepo(ctx, workDir) {
		return status, nil
	}
	status.IsRepo = true

	for _, name := range plaintextNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch {
		case IsTracked(ctx, workDir, name):
			status.TrackedPlaintext = append(status.TrackedPlaintext, name)
		case IsIgnored(ctx, workDir, name):
			status.IgnoredPlaintext = append(status.IgnoredPlaintext, name)
		default:
			status.ExposedPlaintext = append(status.ExposedPlaintext, name)
		}
	}

	return status, nil
}

// FormatGitStatus formats git status for display
func FormatGitStatus(status *GitStatus) string {
	if status == nil || !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if len(status.TrackedPlaintext) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d plaintext file(s) tracked by git:\n", len(status.TrackedPlaintext)))
		for _, name := range status.TrackedPlaintext {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", name, name))
		}
	}

	for _, name := range status.ExposedPlaintext {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore (add to .gitignore or re-create with a key)\n", name))
	}

	if status.Clean() {
		if n := len(status.IgnoredPlaintext); n > 0 {
			result.WriteString(fmt.Sprintf("   ok: %d plaintext file(s) in .gitignore\n", n))
		} else {
			result.WriteString("   ok: no plaintext files exposed to git\n")
		}
	}

	return result.String()
}
