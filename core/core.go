// Package core builds record tables and answers hotspot and coupling queries.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/xrays/core/agg"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/internal/metrics"
	"github.com/huangsam/xrays/internal/outwriter"
	"github.com/huangsam/xrays/internal/parquet"
	"github.com/huangsam/xrays/schema"
)

// ExecutorFunc defines the function signature for executing a command.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteCompute builds the record table for cfg.RepoPath, writes it to
// cfg.DataFile and prints a summary to stdout.
func ExecuteCompute(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	client := contract.NewGitClient(cfg.GitBackend)
	counter := metrics.New(cfg.MetricsBackend)
	summary, err := compute(ctx, cfg, client, counter, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteCompute(summary, cfg)
}

// compute runs one tracked build and persists its table. The table file is
// only replaced when the build succeeds.
func compute(ctx context.Context, cfg *contract.Config, client contract.GitClient, counter contract.MetricsCounter, mgr contract.CacheManager) (schema.ComputeSummary, error) {
	start := time.Now()
	run := beginRun(start, cfg, mgr)

	summary := schema.ComputeSummary{RepoPath: cfg.RepoPath, DataFile: cfg.DataFile, AnalysisID: run.id}
	output, err := NewRecordBuilder(cfg, client, counter, mgr).Build(ctx)
	if err == nil {
		summary.Files = len(output.Files)
		summary.Records = len(output.Records)
		err = writeTable(cfg, output.Records)
	}
	summary.Duration = time.Since(start)
	run.end(ctx, summary, err)
	return summary, err
}

func writeTable(cfg *contract.Config, records []schema.FileRevisionRecord) error {
	if cfg.DataFile == "" {
		return errors.New("no data directory given")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return parquet.WriteRecordTable(cfg.DataFile, records)
}

// LoadRecordTable reads the table written by a previous compute run.
func LoadRecordTable(path string) ([]schema.FileRevisionRecord, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no record table at %s, run 'xrays compute' first", path)
	}
	return parquet.ReadRecordTable(path)
}

// QueryHotspots summarizes records and returns the top rows together with
// the number of files that passed the filter and cutoff.
func QueryHotspots(records []schema.FileRevisionRecord, filter string, revisionCutoff, limit int) ([]schema.FileHotspotSummary, int, error) {
	summaries, err := agg.SummarizeHotspots(records, filter, revisionCutoff)
	if err != nil {
		return nil, 0, err
	}
	total := len(summaries)
	return limitHotspots(summaries, limit), total, nil
}

// QueryCoupling computes coupling edges, optionally mirrored, and returns
// the top edges together with the number of edges before the limit.
func QueryCoupling(records []schema.FileRevisionRecord, filter string, couplingCutoff, maxCommitFiles int, symmetric bool, limit int) (schema.CouplingResult, int, error) {
	result, err := agg.ComputeCouplingCapped(records, filter, couplingCutoff, maxCommitFiles)
	if err != nil {
		return schema.CouplingResult{}, 0, err
	}
	if symmetric {
		result.Edges = agg.Symmetric(result.Edges)
	}
	total := len(result.Edges)
	result.Edges = limitEdges(result.Edges, limit)
	return result, total, nil
}

// GetHotspotResults loads the configured table and runs a hotspot query on it.
func GetHotspotResults(_ context.Context, cfg *contract.Config) ([]schema.FileHotspotSummary, int, error) {
	records, err := LoadRecordTable(cfg.DataFile)
	if err != nil {
		return nil, 0, err
	}
	return QueryHotspots(records, cfg.PathFilter, cfg.RevisionCutoff, cfg.ResultLimit)
}

// GetCouplingResults loads the configured table and runs a coupling query on it.
func GetCouplingResults(_ context.Context, cfg *contract.Config) (schema.CouplingResult, int, error) {
	records, err := LoadRecordTable(cfg.DataFile)
	if err != nil {
		return schema.CouplingResult{}, 0, err
	}
	return QueryCoupling(records, cfg.PathFilter, cfg.CouplingCutoff, cfg.MaxCommitFiles, cfg.Symmetric, cfg.ResultLimit)
}

// GetTableInfo describes the configured table.
func GetTableInfo(_ context.Context, cfg *contract.Config) (schema.TableInfo, error) {
	records, err := LoadRecordTable(cfg.DataFile)
	if err != nil {
		return schema.TableInfo{}, err
	}
	return schema.DescribeTable(cfg.DataFile, records), nil
}

// ExecuteHotspots runs a hotspot query and prints the ranked summaries.
func ExecuteHotspots(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	ranked, total, err := GetHotspotResults(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteHotspots(ranked, total, cfg, time.Since(start))
}

// ExecuteCoupling runs a coupling query and prints the edges.
func ExecuteCoupling(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	result, total, err := GetCouplingResults(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteCoupling(result, total, cfg, time.Since(start))
}
