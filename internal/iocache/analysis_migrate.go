package iocache

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huangsam/xrays/schema"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationResult describes what a migration call changed.
type MigrationResult struct {
	From    uint
	To      uint
	Changed bool
}

// migrationDir maps a backend to its directory under migrations/.
func migrationDir(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "postgres", nil
	default:
		return "", fmt.Errorf("migrations are not supported for the %s backend", backend)
	}
}

// migrationSource returns the embedded migrations of a backend.
func migrationSource(backend schema.DatabaseBackend) (source.Driver, error) {
	dir, err := migrationDir(backend)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access migrations directory: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	return src, nil
}

// latestMigration returns the highest version shipped for a backend.
func latestMigration(backend schema.DatabaseBackend) (uint, error) {
	src, err := migrationSource(backend)
	if err != nil {
		return 0, err
	}
	defer func() { _ = src.Close() }()

	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if errors.Is(err, os.ErrNotExist) {
			return version, nil
		}
		if err != nil {
			return 0, err
		}
		version = next
	}
}

// newMigrator binds the embedded migrations to an open database.
// Closing the migrator closes db.
func newMigrator(db *sql.DB, backend schema.DatabaseBackend) (*migrate.Migrate, error) {
	var driver database.Driver
	var err error
	switch backend {
	case schema.SQLiteBackend:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case schema.MySQLBackend:
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case schema.PostgreSQLBackend:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("migrations are not supported for the %s backend", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migrate driver: %w", backend, err)
	}

	src, err := migrationSource(backend)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithInstance("iofs", src, "xrays", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// currentVersion reads the applied version; zero means nothing applied.
func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("database is in a dirty state at version %d. Please fix manually or force version", version)
	}
	return version, nil
}

// applyMigration moves m to targetVersion.
//   - targetVersion < 0 migrates to the latest version.
//   - targetVersion == 0 rolls back every migration.
//   - targetVersion > 0 migrates up or down to that version.
func applyMigration(m *migrate.Migrate, targetVersion int) (MigrationResult, error) {
	from, err := currentVersion(m)
	if err != nil {
		return MigrationResult{From: from}, err
	}

	switch {
	case targetVersion < 0:
		err = m.Up()
	case targetVersion == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(targetVersion))
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{From: from, To: from}, nil
	}
	if err != nil {
		return MigrationResult{From: from}, fmt.Errorf("failed to migrate from version %d: %w", from, err)
	}

	to, err := currentVersion(m)
	if err != nil {
		return MigrationResult{From: from, To: to}, err
	}
	return MigrationResult{From: from, To: to, Changed: from != to}, nil
}

// MigrateAnalysis runs the analysis store migrations against the given
// database. See applyMigration for the meaning of targetVersion.
func MigrateAnalysis(backend schema.DatabaseBackend, connStr string, targetVersion int) (MigrationResult, error) {
	if backend == schema.NoneBackend {
		return MigrationResult{}, fmt.Errorf("migrations are not supported for the %s backend", backend)
	}
	db, err := openDB(backend, connStr, GetAnalysisDBFilePath())
	if err != nil {
		return MigrationResult{}, err
	}
	m, err := newMigrator(db, backend)
	if err != nil {
		_ = db.Close()
		return MigrationResult{}, err
	}
	defer func() {
		_, _ = m.Close()
		_ = db.Close()
	}()
	return applyMigration(m, targetVersion)
}
