package core

import (
	"context"
	"time"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// trackedRun is a compute run registered with the analysis store. A zero
// id means tracking is off or failed to start, and end does nothing.
type trackedRun struct {
	store contract.AnalysisStore
	id    int64
}

func beginRun(start time.Time, cfg *contract.Config, mgr contract.CacheManager) trackedRun {
	if mgr == nil {
		return trackedRun{}
	}
	store := mgr.GetAnalysisStore()
	if store == nil {
		return trackedRun{}
	}
	configParams := map[string]any{
		"file_pattern":    cfg.FilePattern,
		"path_prefix":     cfg.PathPrefix,
		"workers":         cfg.Workers,
		"git_backend":     string(cfg.GitBackend),
		"metrics_backend": string(cfg.MetricsBackend),
		"cache_backend":   string(cfg.CacheBackend),
	}
	id, err := store.BeginAnalysis(start, cfg.RepoPath, cfg.FilePattern, configParams)
	if err != nil {
		contract.LogWarn("Analysis tracking initialization failed", err)
		return trackedRun{}
	}
	return trackedRun{store: store, id: id}
}

func (r trackedRun) end(ctx context.Context, summary schema.ComputeSummary, err error) {
	if r.store == nil || r.id <= 0 {
		return
	}
	status := schema.CompleteStatus
	switch {
	case ctx.Err() != nil:
		status = schema.CancelledStatus
	case err != nil:
		status = schema.FailedStatus
	}
	runSummary := schema.RunSummary{
		EndTime:      time.Now(),
		Status:       status,
		TotalFiles:   summary.Files,
		TotalRecords: summary.Records,
		Err:          err,
	}
	if endErr := r.store.EndAnalysis(r.id, runSummary); endErr != nil {
		contract.LogWarn("Failed to finalize analysis tracking", endErr)
	}
}
