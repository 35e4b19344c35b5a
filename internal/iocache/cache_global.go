package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// metricsTable holds the snapshot metrics cache.
const metricsTable = "xrays_metrics_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for cache storage.
func GetDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for analysis storage.
func GetAnalysisDBFilePath() string {
	return contract.GetAnalysisDBFilePath()
}

// InitStores initializes the global manager. An empty backend leaves the
// corresponding store unset.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, analysisBackend schema.DatabaseBackend, analysisConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var metrics contract.CacheStore
		var err error
		if cacheBackend != "" {
			metrics, err = NewCacheStore(metricsTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize metrics cache: %w", err)
				return
			}
		}

		var analysis contract.AnalysisStore
		if analysisBackend != "" {
			analysis, err = NewAnalysisStore(analysisBackend, analysisConnStr)
			if err != nil {
				if metrics != nil {
					_ = metrics.Close()
				}
				initErr = fmt.Errorf("failed to initialize analysis store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.metrics = metrics
		Manager.analysis = analysis
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.metrics != nil {
			_ = Manager.metrics.Close()
		}
		if Manager.analysis != nil {
			_ = Manager.analysis.Close()
		}
	})
}

// ClearCache removes the snapshot metrics cache.
// SQLite deletes the database file; MySQL and PostgreSQL drop the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, metricsTable)
}

// ClearAnalysis removes every recorded run along with the migration history,
// so the next store open starts from an empty schema.
func ClearAnalysis(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, analysisRunsTable, "schema_migrations")
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(backend, connStr, tables...)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// dropTables connects to the SQL database and drops each table if it exists.
func dropTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	db, err := sql.Open(driverName(backend), connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}
	for _, table := range tables {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
