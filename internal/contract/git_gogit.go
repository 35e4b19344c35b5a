package contract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/huangsam/xrays/schema"
)

// GoGitClient reads files and snapshots in-process with go-git and delegates
// rename-following history to the local git binary, which go-git lacks.
type GoGitClient struct {
	*LocalGitClient

	mu    sync.Mutex // go-git repositories are not safe for concurrent object reads
	repos map[string]*git.Repository
}

var _ GitClient = &GoGitClient{} // Compile-time check

// NewGoGitClient creates a new instance of the go-git backed client.
func NewGoGitClient() *GoGitClient {
	return &GoGitClient{
		LocalGitClient: NewLocalGitClient(),
		repos:          make(map[string]*git.Repository),
	}
}

// open returns the cached repository for repoPath. Callers must hold c.mu.
func (c *GoGitClient) open(repoPath string) (*git.Repository, error) {
	if repo, ok := c.repos[repoPath]; ok {
		return repo, nil
	}
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %q: %w", repoPath, err)
	}
	c.repos[repoPath] = repo
	return repo, nil
}

// GetRepoHash implements the GitClient interface.
func (c *GoGitClient) GetRepoHash(_ context.Context, repoPath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	repo, err := c.open(repoPath)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ListFiles implements the GitClient interface using the index, matching `git ls-files`.
func (c *GoGitClient) ListFiles(_ context.Context, repoPath string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	repo, err := c.open(repoPath)
	if err != nil {
		return nil, &schema.HistoryExtractionError{Op: "ls-files", Err: err}
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, &schema.HistoryExtractionError{Op: "ls-files", Err: err}
	}
	seen := make(map[string]struct{}, len(idx.Entries))
	files := make([]string, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		if _, ok := seen[entry.Name]; ok {
			continue // conflict stages repeat the name
		}
		seen[entry.Name] = struct{}{}
		files = append(files, entry.Name)
	}
	sort.Strings(files)
	return files, nil
}

// GetFileSnapshot implements the GitClient interface by reading the blob from the commit tree.
func (c *GoGitClient) GetFileSnapshot(ctx context.Context, repoPath string, commit string, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wrap := func(err error) error {
		return &schema.HistoryExtractionError{Op: "cat-file", File: name, Commit: commit, Err: err}
	}

	repo, err := c.open(repoPath)
	if err != nil {
		return nil, wrap(err)
	}
	obj, err := repo.CommitObject(plumbing.NewHash(commit))
	if err != nil {
		return nil, wrap(err)
	}
	file, err := obj.File(name)
	if err != nil {
		return nil, wrap(err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, wrap(err)
	}
	defer func() { _ = reader.Close() }()
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, wrap(err)
	}
	return content, nil
}
