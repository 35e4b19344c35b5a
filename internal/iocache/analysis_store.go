package iocache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// analysisRunsTable is created by the embedded migrations.
const analysisRunsTable = "xrays_analysis_runs"

// AnalysisStoreImpl records compute runs in a migrated SQL table.
type AnalysisStoreImpl struct {
	db       *sql.DB
	migrator *migrate.Migrate
	backend  schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore opens the backend and migrates it to the latest schema.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		return &AnalysisStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetAnalysisDBFilePath())
	if err != nil {
		return nil, err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := applyMigration(m, -1); err != nil {
		_, _ = m.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate analysis store: %w", err)
	}
	return &AnalysisStoreImpl{db: db, migrator: m, backend: backend}, nil
}

func (as *AnalysisStoreImpl) disabled() bool {
	return as.backend == schema.NoneBackend || as.db == nil
}

func (as *AnalysisStoreImpl) table() string {
	return quoteTableName(analysisRunsTable, as.backend)
}

// BeginAnalysis inserts a run in the running state and returns its ID.
// The none backend returns ID 0.
func (as *AnalysisStoreImpl) BeginAnalysis(startTime time.Time, repoPath, filePattern string, configParams map[string]any) (int64, error) {
	if as.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	cols := "repo_path, file_pattern, start_time, status, config_params"
	values := strings.Join(placeholders(as.backend, 5), ", ")
	args := []any{repoPath, filePattern, formatTime(startTime, as.backend), string(schema.RunningStatus), string(configJSON)}

	var analysisID int64
	if as.backend == schema.PostgreSQLBackend {
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING analysis_id`, as.table(), cols, values)
		err = as.db.QueryRow(query, args...).Scan(&analysisID)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, as.table(), cols, values)
		var result sql.Result
		if result, err = as.db.Exec(query, args...); err == nil {
			analysisID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}
	return analysisID, nil
}

// EndAnalysis stores the terminal state of a run and its duration.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, summary schema.RunSummary) error {
	if as.disabled() {
		return nil
	}

	var start nullableTime
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = %s`, as.table(), placeholders(as.backend, 1)[0])
	if err := as.db.QueryRow(query, analysisID).Scan(&start); err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}
	durationMs := summary.EndTime.Sub(start.Time).Milliseconds()

	var errMsg *string
	if summary.Err != nil {
		msg := summary.Err.Error()
		errMsg = &msg
	}

	ph := placeholders(as.backend, 7)
	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, status = %s, total_files = %s, total_records = %s, error_message = %s WHERE analysis_id = %s`,
		as.table(), ph[0], ph[1], ph[2], ph[3], ph[4], ph[5], ph[6])
	_, err := as.db.Exec(update,
		formatTime(summary.EndTime, as.backend), durationMs, string(summary.Status),
		summary.TotalFiles, summary.TotalRecords, errMsg, analysisID)
	if err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	return nil
}

// GetStatus summarizes the recorded runs and the schema version.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:      string(as.backend),
		Connected:    as.db != nil,
		RunsByStatus: make(map[schema.RunStatus]int64),
	}
	if as.disabled() {
		return status, nil
	}

	if as.migrator != nil {
		version, err := currentVersion(as.migrator)
		if err != nil {
			return status, err
		}
		status.MigrationVersion = version
		if latest, err := latestMigration(as.backend); err == nil {
			status.MigrationAvailable = latest > version
		}
	}

	row := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_records), 0) FROM %s", as.table()))
	if err := row.Scan(&status.TotalRuns, &status.TotalRecordsBuilt); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	var lastRun, oldestRun nullableTime
	row = as.db.QueryRow(fmt.Sprintf("SELECT analysis_id, start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", as.table()))
	if err := row.Scan(&status.LastRunID, &lastRun); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	status.LastRunTime = lastRun.Time

	row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", as.table()))
	if err := row.Scan(&oldestRun); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = oldestRun.Time

	rows, err := as.db.Query(fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", as.table()))
	if err != nil {
		return status, fmt.Errorf("failed to count runs by status: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var runStatus string
		var count int64
		if err := rows.Scan(&runStatus, &count); err != nil {
			return status, fmt.Errorf("failed to scan run status count: %w", err)
		}
		status.RunsByStatus[schema.RunStatus(runStatus)] = count
	}
	return status, rows.Err()
}

// GetAllAnalysisRuns returns every run ordered by ID.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	if as.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, repo_path, file_pattern, start_time, end_time, run_duration_ms,
		status, total_files, total_records, error_message, config_params FROM %s ORDER BY analysis_id`, as.table())
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var record schema.AnalysisRunRecord
		var start, end nullableTime
		var runStatus string
		if err := rows.Scan(&record.AnalysisID, &record.RepoPath, &record.FilePattern, &start, &end,
			&record.RunDurationMs, &runStatus, &record.TotalFiles, &record.TotalRecords,
			&record.ErrorMessage, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		record.StartTime = start.Time
		if end.Valid {
			endTime := end.Time
			record.EndTime = &endTime
		}
		record.Status = schema.RunStatus(runStatus)
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}
	return results, nil
}

// Close releases the migrator and the connection.
func (as *AnalysisStoreImpl) Close() error {
	var errs []error
	if as.migrator != nil {
		srcErr, dbErr := as.migrator.Close()
		errs = append(errs, srcErr, dbErr)
	}
	if as.db != nil {
		errs = append(errs, as.db.Close())
	}
	return errors.Join(errs...)
}
