package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// metricsCacheVersion defines the version of the cached metrics encoding.
// Bump it when a metrics collaborator changes how it counts.
const metricsCacheVersion = 1

// metricsCacheKey identifies a snapshot's metrics. Snapshots are immutable,
// so the key carries no repository state and entries never go stale.
func metricsCacheKey(backend schema.MetricsBackend, commit, name string) string {
	key := fmt.Sprintf("%s:%s:%s", backend, commit, name)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}

// loadCachedMetrics attempts to retrieve and validate a cached entry.
func loadCachedMetrics(store contract.CacheStore, key string) (schema.SnapshotMetrics, bool) {
	if store == nil {
		return schema.SnapshotMetrics{}, false
	}
	data, version, _, err := store.Get(key)
	if err != nil || version != metricsCacheVersion {
		return schema.SnapshotMetrics{}, false // Cache miss
	}
	var m schema.SnapshotMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return schema.SnapshotMetrics{}, false
	}
	return m, true
}

// storeCachedMetrics writes an entry, ignoring store failures.
func storeCachedMetrics(store contract.CacheStore, key string, m schema.SnapshotMetrics) {
	if store == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = store.Set(key, data, metricsCacheVersion, time.Now().Unix())
}
