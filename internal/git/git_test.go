package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckStoreOutsideRepo(t *testing.T) {
	status, err := CheckStore(context.Background(), t.TempDir(), []string{"a.txt"})
	if err != nil {
		t.Fatalf("CheckStore failed: %v", err)
	}
	if status.IsRepo {
		t.Skip("temp dir is inside a git work tree")
	}
	if !status.Clean() {
		t.Error("status outside a repo should be clean")
	}
	if out := FormatGitStatus(status); out != "" {
		t.Errorf("FormatGitStatus outside a repo = %q, want empty", out)
	}
}

func TestCheckStoreClassifiesPlaintext(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitCmd := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
		}
	}

	for name, content := range map[string]string{
		"tracked.txt": "t",
		"ignored.txt": "i",
		"exposed.txt": "e",
		".gitignore":  "ignored.txt\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	gitCmd("init", "-q")
	gitCmd("add", "tracked.txt", ".gitignore")

	status, err := CheckStore(context.Background(), dir, []string{"tracked.txt", "ignored.txt", "exposed.txt"})
	if err != nil {
		t.Fatalf("CheckStore failed: %v", err)
	}
	if !status.IsRepo {
		t.Fatal("expected a git repo")
	}

	check := func(label string, got []string, want string) {
		t.Helper()
		if len(got) != 1 || got[0] != want {
			t.Errorf("%s = %v, want [%s]", label, got, want)
		}
	}
	check("TrackedPlaintext", status.TrackedPlaintext, "tracked.txt")
	check("IgnoredPlaintext", status.IgnoredPlaintext, "ignored.txt")
	check("ExposedPlaintext", status.ExposedPlaintext, "exposed.txt")

	out := FormatGitStatus(status)
	if !strings.Contains(out, "git rm --cached tracked.txt") {
		t.Errorf("output should suggest untracking: %q", out)
	}
	if !strings.Contains(out, "warning: exposed.txt not in .gitignore") {
		t.Errorf("output should warn about exposed file: %q", out)
	}
}

func TestFormatGitStatusClean(t *testing.T) {
	status := &GitStatus{IsRepo: true, IgnoredPlaintext: []string{"a", "b"}}
	if got := FormatGitStatus(status); !strings.Contains(got, "ok: 2 plaintext file(s) in .gitignore") {
		t.Errorf("unexpected output: %q", got)
	}

	status = &GitStatus{IsRepo: true}
	if got := FormatGitStatus(status); !strings.Contains(got, "ok: no plaintext files exposed to git") {
		t.Errorf("unexpected output: %q", got)
	}
}
