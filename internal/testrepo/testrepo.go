// Package testrepo builds throwaway Git repositories for tests.
package testrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Repo is a Git repository rooted in a test temp directory.
type Repo struct {
	t    *testing.T
	Root string
}

// SkipIfGitNotAvailable skips the test if git binary is not found in PATH.
func SkipIfGitNotAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// New initializes an empty repository, skipping the test when git is missing.
func New(t *testing.T) *Repo {
	t.Helper()
	SkipIfGitNotAvailable(t)
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	r := &Repo{t: t, Root: root}
	r.Git(time.Time{}, "init", "-q")
	return r
}

// Git runs a git command in the repository with a fixed identity. A non-zero
// when pins both author and committer dates.
func (r *Repo) Git(when time.Time, args ...string) string {
	r.t.Helper()
	fullArgs := append([]string{"-c", "commit.gpgsign=false", "-C", r.Root}, args...)
	cmd := exec.Command("git", fullArgs...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test Author",
		"GIT_AUTHOR_EMAIL=author@example.com",
		"GIT_COMMITTER_NAME=Test Committer",
		"GIT_COMMITTER_EMAIL=committer@example.com",
		"GIT_CONFIG_NOSYSTEM=1",
	)
	if !when.IsZero() {
		stamp := when.Format(time.RFC3339)
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+stamp, "GIT_COMMITTER_DATE="+stamp)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Write creates or replaces a file, creating parent directories.
func (r *Repo) Write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", path, err)
	}
}

// Move renames a tracked file with git mv.
func (r *Repo) Move(from, to string) {
	r.t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(r.Root, filepath.FromSlash(to))), 0o755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", to, err)
	}
	r.Git(time.Time{}, "mv", from, to)
}

// Remove deletes a tracked file with git rm.
func (r *Repo) Remove(path string) {
	r.t.Helper()
	r.Git(time.Time{}, "rm", "-q", path)
}

// Commit stages everything and commits at the given time, returning the hash.
func (r *Repo) Commit(msg string, when time.Time) string {
	r.t.Helper()
	r.Git(time.Time{}, "add", "-A")
	r.Git(when, "commit", "-q", "-m", msg)
	return r.Git(time.Time{}, "rev-parse", "HEAD")
}

// Fixture is a small repository history with a rename:
//
//	c1: add src/app.py, util.py
//	c2: edit src/app.py, util.py
//	c3: git mv src/app.py lib/app.py
//	c4: edit lib/app.py
//	c5: add notes.txt
type Fixture struct {
	*Repo
	Commits []string
	Dates   []time.Time
}

// NewFixture builds the standard fixture repository.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	r := New(t)
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	f := &Fixture{Repo: r}
	commit := func(msg string) {
		when := base.Add(time.Duration(len(f.Commits)) * 24 * time.Hour)
		f.Commits = append(f.Commits, r.Commit(msg, when))
		f.Dates = append(f.Dates, when)
	}

	r.Write("src/app.py", "def main():\n    return 1\n")
	r.Write("util.py", "# helpers\nX = 1\n")
	commit("initial")

	r.Write("src/app.py", "def main():\n    # entry\n    if True:\n        return 2\n")
	r.Write("util.py", "# helpers\nX = 2\n")
	commit("edit both")

	r.Move("src/app.py", "lib/app.py")
	commit("move app")

	r.Write("lib/app.py", "def main():\n    # entry\n    if True:\n        if True:\n            return 3\n")
	commit("deepen app")

	r.Write("notes.txt", "plain notes\n")
	commit("add notes")
	return f
}
