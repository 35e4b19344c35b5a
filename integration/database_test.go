//go:build database

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/huangsam/xrays/internal/iocache"
	"github.com/huangsam/xrays/internal/testrepo"
	"github.com/huangsam/xrays/schema"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// backendEnv holds connection strings for two separate databases on one server,
// since the cache and the analysis store must not share a database.
type backendEnv struct {
	backend      schema.DatabaseBackend
	cacheConn    string
	analysisConn string
}

func (b backendEnv) vars() []string {
	return []string{
		"XRAYS_CACHE_BACKEND=" + string(b.backend),
		"XRAYS_CACHE_DB_CONNECT=" + b.cacheConn,
		"XRAYS_ANALYSIS_BACKEND=" + string(b.backend),
		"XRAYS_ANALYSIS_DB_CONNECT=" + b.analysisConn,
	}
}

func startMySQL(t *testing.T) backendEnv {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "xrays",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	dsn := func(db string) string {
		return fmt.Sprintf("root:secret123@tcp(%s:%s)/%s?parseTime=true", host, port.Port(), db)
	}
	createDatabase(t, "mysql", dsn("xrays"), "CREATE DATABASE xrays_runs")
	return backendEnv{backend: schema.MySQLBackend, cacheConn: dsn("xrays"), analysisConn: dsn("xrays_runs")}
}

func startPostgres(t *testing.T) backendEnv {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := func(db string) string {
		return fmt.Sprintf("host=%s port=%s user=postgres dbname=%s sslmode=disable", host, port.Port(), db)
	}
	createDatabase(t, "pgx", dsn("postgres"), "CREATE DATABASE xrays_runs")
	return backendEnv{backend: schema.PostgreSQLBackend, cacheConn: dsn("postgres"), analysisConn: dsn("xrays_runs")}
}

func createDatabase(t *testing.T, driver, connStr, stmt string) {
	t.Helper()
	db, err := sql.Open(driver, connStr)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.Eventually(t, func() bool { return db.Ping() == nil }, 30*time.Second, 500*time.Millisecond)
	_, err = db.Exec(stmt)
	require.NoError(t, err)
}

// exerciseStores drives the cache, the analysis store and migrations directly.
func exerciseStores(t *testing.T, env backendEnv) {
	t.Helper()

	cache, err := iocache.NewCacheStore("xrays_it_cache", env.backend, env.cacheConn)
	require.NoError(t, err)
	require.NoError(t, cache.Set("k1", []byte(`{"lines_code":3}`), 1, time.Now().Unix()))
	require.NoError(t, cache.Set("k1", []byte(`{"lines_code":4}`), 2, time.Now().Unix()))
	value, version, _, err := cache.Get("k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lines_code":4}`, string(value))
	assert.Equal(t, 2, version)
	cacheStatus, err := cache.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, cacheStatus.TotalEntries)
	assert.Positive(t, cacheStatus.TableSizeBytes)
	require.NoError(t, cache.Close())

	result, err := iocache.MigrateAnalysis(env.backend, env.analysisConn, -1)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint(3), result.To)

	store, err := iocache.NewAnalysisStore(env.backend, env.analysisConn)
	require.NoError(t, err)
	start := time.Now().Add(-time.Second)
	id, err := store.BeginAnalysis(start, "/repo", ".*", map[string]any{"workers": 2})
	require.NoError(t, err)
	require.NoError(t, store.EndAnalysis(id, schema.RunSummary{
		EndTime: time.Now(), Status: schema.CompleteStatus, TotalFiles: 3, TotalRecords: 7,
	}))
	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, schema.CompleteStatus, runs[0].Status)
	require.NotNil(t, runs[0].RunDurationMs)
	assert.GreaterOrEqual(t, *runs[0].RunDurationMs, int64(1000))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(3), status.MigrationVersion)
	assert.Equal(t, int64(7), status.TotalRecordsBuilt)
	require.NoError(t, store.Close())

	require.NoError(t, iocache.ClearAnalysis(env.backend, "", env.analysisConn))
	require.NoError(t, iocache.ClearCache(env.backend, "", env.cacheConn))
}

// exerciseCLI runs compute and the store commands against the backend.
func exerciseCLI(t *testing.T, env backendEnv) {
	t.Helper()
	fixture := testrepo.NewFixture(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	_, err := runXrays(t, env.vars(), "cache", "clear")
	require.NoError(t, err)
	_, err = runXrays(t, env.vars(), "analysis", "clear")
	require.NoError(t, err)

	// The second run is served from the cache and must build the same table.
	for range 2 {
		out, err := runXrays(t, env.vars(), "compute", fixture.Root, dataDir)
		require.NoError(t, err)
		assert.Contains(t, out, "Built 7 records for 3 files")
	}

	out, err := runXrays(t, env.vars(), "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 7")

	out, err = runXrays(t, env.vars(), "analysis", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")

	exportFile := filepath.Join(t.TempDir(), "runs.parquet")
	_, err = runXrays(t, env.vars(), "analysis", "export", "--output-file", exportFile)
	require.NoError(t, err)
	assert.FileExists(t, exportFile)

	out, err = runXrays(t, env.vars(), "analysis", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema already at version 3")
}

// TestXraysWithMySQL tests the stores and the CLI with a MySQL backend.
func TestXraysWithMySQL(t *testing.T) {
	env := startMySQL(t)
	t.Run("stores", func(t *testing.T) { exerciseStores(t, env) })
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, env) })
}

// TestXraysWithPostgres tests the stores and the CLI with a PostgreSQL backend.
func TestXraysWithPostgres(t *testing.T) {
	env := startPostgres(t)
	t.Run("stores", func(t *testing.T) { exerciseStores(t, env) })
	t.Run("cli", func(t *testing.T) { exerciseCLI(t, env) })
}
