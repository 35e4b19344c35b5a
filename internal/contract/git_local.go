package contract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/xrays/schema"
)

// commitMarker prefixes each commit header in the history log output.
const commitMarker = "@@XRAYS@@"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s. If this is not a Git repository, verify the path or run 'git init'", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoHash implements the GitClient interface.
func (c *LocalGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ListFiles implements the GitClient interface.
func (c *LocalGitClient) ListFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.Run(ctx, repoPath, "ls-files", "-z")
	if err != nil {
		return nil, &schema.HistoryExtractionError{Op: "ls-files", Err: err}
	}
	return splitNul(out), nil
}

// GetFileHistory implements the GitClient interface.
func (c *LocalGitClient) GetFileHistory(ctx context.Context, repoPath string, path string) ([]schema.CommitSnapshot, error) {
	args := []string{
		"log",
		"--follow",
		"--name-status",
		"--format=format:" + commitMarker + "%H %aI %cI",
		"--", path,
	}
	out, err := c.Run(ctx, repoPath, args...)
	if err != nil {
		return nil, &schema.HistoryExtractionError{Op: "log", File: path, Err: err}
	}
	return ParseFileHistory(path, out)
}

// GetFileSnapshot implements the GitClient interface.
func (c *LocalGitClient) GetFileSnapshot(ctx context.Context, repoPath string, commit string, name string) ([]byte, error) {
	out, err := c.Run(ctx, repoPath, "cat-file", "blob", commit+":"+name)
	if err != nil {
		return nil, &schema.HistoryExtractionError{Op: "cat-file", File: name, Commit: commit, Err: err}
	}
	return out, nil
}

// ParseFileHistory parses `git log --follow --name-status` output produced with
// the commit marker format. Each header must carry exactly three fields: the
// commit hash, the strict ISO author date and the strict ISO committer date.
// A commit without a status line (merges) inherits the name of the entry
// after it in log order, starting from path itself.
func ParseFileHistory(path string, out []byte) ([]schema.CommitSnapshot, error) {
	var history []schema.CommitSnapshot
	seen := make(map[string]struct{})
	knownName := path
	current := -1

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if header, ok := strings.CutPrefix(line, commitMarker); ok {
			fields := strings.Fields(header)
			if len(fields) != 3 {
				return nil, &schema.HistoryExtractionError{
					Op:   "log",
					File: path,
					Err:  fmt.Errorf("malformed commit header %q: expected 3 fields, got %d", header, len(fields)),
				}
			}
			authorDate, err := time.Parse(time.RFC3339, fields[1])
			if err != nil {
				return nil, &schema.HistoryExtractionError{Op: "log", File: path, Commit: fields[0], Err: err}
			}
			commitDate, err := time.Parse(time.RFC3339, fields[2])
			if err != nil {
				return nil, &schema.HistoryExtractionError{Op: "log", File: path, Commit: fields[0], Err: err}
			}
			if _, dup := seen[fields[0]]; dup {
				current = -1
				continue
			}
			seen[fields[0]] = struct{}{}
			history = append(history, schema.CommitSnapshot{
				Commit:       fields[0],
				AuthorDate:   authorDate,
				CommitDate:   commitDate,
				SnapshotName: knownName,
			})
			current = len(history) - 1
			continue
		}

		// Status line: "M\tpath", "D\tpath" or "R086\told\tnew".
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			return nil, &schema.HistoryExtractionError{
				Op:   "log",
				File: path,
				Err:  fmt.Errorf("malformed status line %q", line),
			}
		}
		if current < 0 {
			continue
		}
		names := make([]string, 0, len(parts)-1)
		for _, quoted := range parts[1:] {
			name, err := unquoteName(quoted)
			if err != nil {
				return nil, &schema.HistoryExtractionError{
					Op:     "log",
					File:   path,
					Commit: history[current].Commit,
					Err:    fmt.Errorf("malformed path %q in status line: %w", quoted, err),
				}
			}
			names = append(names, name)
		}
		status := parts[0]
		name := names[len(names)-1]
		history[current].SnapshotName = name
		history[current].Deleted = strings.HasPrefix(status, "D")

		// Older commits carry the pre-rename name.
		if strings.HasPrefix(status, "R") || strings.HasPrefix(status, "C") {
			knownName = names[0]
		} else {
			knownName = name
		}
		current = -1
	}
	if err := scanner.Err(); err != nil {
		return nil, &schema.HistoryExtractionError{Op: "log", File: path, Err: err}
	}
	return history, nil
}

// unquoteName undoes git's C-style path quoting. Names holding a quote,
// backslash or control character, or any byte above 0x7f, come back as a
// double-quoted string with backslash and octal escapes, which strconv reads
// back byte for byte.
func unquoteName(name string) (string, error) {
	if !strings.HasPrefix(name, `"`) {
		return name, nil
	}
	return strconv.Unquote(name)
}

// splitNul splits NUL-terminated git output, dropping empty entries.
func splitNul(out []byte) []string {
	parts := strings.Split(string(out), "\x00")
	files := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}
