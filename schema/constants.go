package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and run tracking.
	DatabaseBackend string

	// GitBackend represents the history collaborator implementation.
	GitBackend string

	// MetricsBackend represents the metrics collaborator implementation.
	MetricsBackend string

	// RunStatus represents the terminal state of a compute run.
	RunStatus string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All history collaborators supported.
const (
	ExecGitBackend  GitBackend = "exec" // default
	GoGitGitBackend GitBackend = "gogit"
)

// All metrics collaborators supported.
const (
	NativeMetricsBackend MetricsBackend = "native" // default
	ClocMetricsBackend   MetricsBackend = "cloc"
)

// All run states recorded by the analysis store.
const (
	RunningStatus   RunStatus = "running"
	CompleteStatus  RunStatus = "complete"
	FailedStatus    RunStatus = "failed"
	CancelledStatus RunStatus = "cancelled"
)

// DefaultDataFile is the record table file name inside a data directory.
const DefaultDataFile = "hotspots.parquet"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidGitBackends lists all valid history collaborators.
var ValidGitBackends = map[GitBackend]struct{}{
	ExecGitBackend:  {},
	GoGitGitBackend: {},
}

// ValidMetricsBackends lists all valid metrics collaborators.
var ValidMetricsBackends = map[MetricsBackend]struct{}{
	NativeMetricsBackend: {},
	ClocMetricsBackend:   {},
}
