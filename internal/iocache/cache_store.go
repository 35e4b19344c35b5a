package iocache

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/xrays/internal/contract"
	"github.com/huangsam/xrays/schema"
)

// CacheStoreImpl is a versioned key/value table on one of the SQL backends.
type CacheStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.CacheStore = &CacheStoreImpl{} // Compile-time check

// NewCacheStore opens the backend and creates the table when missing.
// The none backend yields a store that never hits and drops every write.
func NewCacheStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &CacheStoreImpl{tableName: tableName, backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createCacheTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return &CacheStoreImpl{db: db, tableName: tableName, backend: backend, connStr: connStr}, nil
}

func createCacheTableQuery(tableName string, backend schema.DatabaseBackend) string {
	keyType, valueType, intType := "TEXT", "BLOB", "INTEGER"
	switch backend {
	case schema.MySQLBackend:
		keyType, valueType, intType = "VARCHAR(255)", "BLOB", "INT"
	case schema.PostgreSQLBackend:
		valueType = "BYTEA"
	}
	tsType := "BIGINT"
	if backend == schema.SQLiteBackend {
		tsType = "INTEGER"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cache_key %s PRIMARY KEY,
		cache_value %s NOT NULL,
		cache_version %s NOT NULL,
		cache_timestamp %s NOT NULL
	)`, quoteTableName(tableName, backend), keyType, valueType, intType, tsType)
}

func (cs *CacheStoreImpl) disabled() bool {
	return cs.backend == schema.NoneBackend || cs.db == nil
}

// Get returns the value, version and write timestamp for key.
// A miss is reported as sql.ErrNoRows.
func (cs *CacheStoreImpl) Get(key string) ([]byte, int, int64, error) {
	if cs.disabled() {
		return nil, 0, 0, sql.ErrNoRows
	}
	query := fmt.Sprintf(`SELECT cache_value, cache_version, cache_timestamp FROM %s WHERE cache_key = %s`,
		quoteTableName(cs.tableName, cs.backend), placeholders(cs.backend, 1)[0])

	var value []byte
	var version int
	var ts int64
	if err := cs.db.QueryRow(query, key).Scan(&value, &version, &ts); err != nil {
		return nil, 0, 0, err
	}
	return value, version, ts, nil
}

// Set inserts or replaces a key/value pair.
func (cs *CacheStoreImpl) Set(key string, value []byte, version int, timestamp int64) error {
	if cs.disabled() {
		return nil
	}
	_, err := cs.db.Exec(cs.upsertQuery(), key, value, version, timestamp)
	return err
}

func (cs *CacheStoreImpl) upsertQuery() string {
	table := quoteTableName(cs.tableName, cs.backend)
	cols := "cache_key, cache_value, cache_version, cache_timestamp"
	values := strings.Join(placeholders(cs.backend, 4), ", ")
	switch cs.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, cache_version = new.cache_version, cache_timestamp = new.cache_timestamp`,
			table, cols, values)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, cache_version = EXCLUDED.cache_version, cache_timestamp = EXCLUDED.cache_timestamp`,
			table, cols, values)
	default:
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (%s)`, table, cols, values)
	}
}

// Close closes the underlying DB connection.
func (cs *CacheStoreImpl) Close() error {
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}

// GetStatus reports entry counts, the entry time range and the table size.
func (cs *CacheStoreImpl) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(cs.backend),
		Connected: cs.db != nil,
	}
	if cs.disabled() {
		return status, nil
	}

	table := quoteTableName(cs.tableName, cs.backend)
	if err := cs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&status.TotalEntries); err != nil {
		return status, fmt.Errorf("failed to get total entries: %w", err)
	}
	if status.TotalEntries == 0 {
		return status, nil
	}

	var newest, oldest int64
	row := cs.db.QueryRow(fmt.Sprintf("SELECT MAX(cache_timestamp), MIN(cache_timestamp) FROM %s", table))
	if err := row.Scan(&newest, &oldest); err != nil {
		return status, fmt.Errorf("failed to get entry time range: %w", err)
	}
	status.LastEntryTime = time.Unix(newest, 0)
	status.OldestEntryTime = time.Unix(oldest, 0)
	status.TableSizeBytes = cs.tableSize(status.TotalEntries)
	return status, nil
}

// tableSize asks the backend for the on-disk size, falling back to a rough
// per-row estimate.
func (cs *CacheStoreImpl) tableSize(entries int) int64 {
	estimate := int64(entries) * 256
	var size int64
	var err error
	switch cs.backend {
	case schema.SQLiteBackend:
		err = cs.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	case schema.MySQLBackend:
		cfg, parseErr := mysql.ParseDSN(cs.connStr)
		if parseErr != nil || cfg.DBName == "" {
			return estimate
		}
		err = cs.db.QueryRow("SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, cs.tableName).Scan(&size)
	case schema.PostgreSQLBackend:
		err = cs.db.QueryRow("SELECT pg_total_relation_size($1)", cs.tableName).Scan(&size)
	default:
		return estimate
	}
	if err != nil {
		return estimate
	}
	return size
}
