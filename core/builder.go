package core

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/progress"
	"github.com/huangsam/xrays/schema"
	"github.com/sourcegraph/conc/pool"
)

// BuildOutput is the record table of one compute run.
type BuildOutput struct {
	Files   []string
	Records []schema.FileRevisionRecord
}

// RecordBuilder drives the history and metrics collaborators over every
// tracked file matching the configured pattern.
type RecordBuilder struct {
	cfg     *contract.Config
	git     contract.GitClient
	counter contract.MetricsCounter
	cache   contract.CacheStore // nil disables snapshot metrics caching
}

// NewRecordBuilder is the starting point for building a record table.
func NewRecordBuilder(cfg *contract.Config, client contract.GitClient, counter contract.MetricsCounter, mgr contract.CacheManager) *RecordBuilder {
	rb := &RecordBuilder{cfg: cfg, git: client, counter: counter}
	if mgr != nil {
		rb.cache = mgr.GetMetricsStore()
	}
	return rb
}

// MatchingFiles lists tracked files whose repository-relative path fully
// matches the file pattern and lies under the configured path prefix.
func (rb *RecordBuilder) MatchingFiles(ctx context.Context) ([]string, error) {
	re, err := regexp.Compile("^(?:" + rb.cfg.FilePattern + ")$")
	if err != nil {
		return nil, err
	}
	tracked, err := rb.git.ListFiles(ctx, rb.cfg.RepoPath)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(tracked))
	for _, f := range tracked {
		if rb.cfg.PathPrefix != "" && !strings.HasPrefix(f, rb.cfg.PathPrefix) {
			continue
		}
		if re.MatchString(f) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, &schema.EmptyResultError{RepoPath: rb.cfg.RepoPath, Pattern: rb.cfg.FilePattern, Tracked: len(tracked)}
	}
	sort.Strings(files)
	return files, nil
}

// Build produces one record per (file, commit) pair. Files are processed on a
// bounded pool; the first failure cancels the remaining work and is returned.
// A cancelled build returns the context error and no records.
func (rb *RecordBuilder) Build(ctx context.Context) (*BuildOutput, error) {
	files, err := rb.MatchingFiles(ctx)
	if err != nil {
		return nil, err
	}
	contract.LogInfo("Analyzing %d files", len(files))

	tracker := progress.NewTracker("Building", len(files), rb.cfg.ShowProgress)
	var mu sync.Mutex
	var records []schema.FileRevisionRecord

	p := pool.New().
		WithMaxGoroutines(max(rb.cfg.Workers, 1)).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for _, file := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			built, err := newFileRevisionBuilder(ctx, rb, file).
				FetchHistory().
				MeasureSnapshots().
				Build()
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, built...)
			mu.Unlock()
			tracker.Tick()
			return nil
		})
	}
	err = p.Wait()
	tracker.Finish()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if !a.CommitDate.Equal(b.CommitDate) {
			return a.CommitDate.Before(b.CommitDate)
		}
		return a.Commit < b.Commit
	})
	return &BuildOutput{Files: files, Records: records}, nil
}

// fileRevisionBuilder builds the records of one file. The first error sticks
// and turns later steps into no-ops.
type fileRevisionBuilder struct {
	ctx     context.Context
	rb      *RecordBuilder
	path    string
	history []schema.CommitSnapshot
	records []schema.FileRevisionRecord
	err     error
}

func newFileRevisionBuilder(ctx context.Context, rb *RecordBuilder, path string) *fileRevisionBuilder {
	return &fileRevisionBuilder{ctx: ctx, rb: rb, path: path}
}

// FetchHistory loads the commits touching the file, following renames.
func (b *fileRevisionBuilder) FetchHistory() *fileRevisionBuilder {
	if b.err != nil {
		return b
	}
	b.history, b.err = b.rb.git.GetFileHistory(b.ctx, b.rb.cfg.RepoPath, b.path)
	return b
}

// MeasureSnapshots runs every historical snapshot through the metrics collaborator.
func (b *fileRevisionBuilder) MeasureSnapshots() *fileRevisionBuilder {
	if b.err != nil {
		return b
	}
	b.records = make([]schema.FileRevisionRecord, 0, len(b.history))
	for _, snap := range b.history {
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return b
		}
		m, err := b.measure(snap)
		if err != nil {
			b.err = err
			return b
		}
		b.records = append(b.records, schema.FileRevisionRecord{
			File:           b.path,
			CommitFilename: snap.SnapshotName,
			Commit:         snap.Commit,
			AuthorDate:     snap.AuthorDate,
			CommitDate:     snap.CommitDate,
			Indentation:    m.Indentation,
			LinesCode:      m.LinesCode,
			LinesComment:   m.LinesComment,
		})
	}
	return b
}

// Build returns the records or the first error encountered.
func (b *fileRevisionBuilder) Build() ([]schema.FileRevisionRecord, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.records, nil
}

// measure returns the metrics of one snapshot, consulting the cache first.
// A deletion has no content and measures as zero.
func (b *fileRevisionBuilder) measure(snap schema.CommitSnapshot) (schema.SnapshotMetrics, error) {
	if snap.Deleted {
		return schema.SnapshotMetrics{}, nil
	}
	backend := b.rb.counter.Backend()
	key := metricsCacheKey(backend, snap.Commit, snap.SnapshotName)
	if m, ok := loadCachedMetrics(b.rb.cache, key); ok {
		return m, nil
	}

	content, err := b.rb.git.GetFileSnapshot(b.ctx, b.rb.cfg.RepoPath, snap.Commit, snap.SnapshotName)
	if err != nil {
		return schema.SnapshotMetrics{}, err
	}
	m, err := b.rb.counter.Count(b.ctx, snap.SnapshotName, content)
	if err != nil {
		if ctxErr := b.ctx.Err(); ctxErr != nil {
			return schema.SnapshotMetrics{}, ctxErr
		}
		var metricsErr *schema.MetricsExtractionError
		if !errors.As(err, &metricsErr) {
			metricsErr = &schema.MetricsExtractionError{Tool: string(backend), Err: err}
		}
		metricsErr.File = b.path
		metricsErr.Commit = snap.Commit
		metricsErr.Snapshot = snap.SnapshotName
		return schema.SnapshotMetrics{}, metricsErr
	}
	storeCachedMetrics(b.rb.cache, key, m)
	return m, nil
}
