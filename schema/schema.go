// Package schema has the records and results shared across xrays.
package schema

import "time"

// FileRevisionRecord is one row of the record table: a tracked file as it
// existed at one commit that touched it.
type FileRevisionRecord struct {
	File           string    `json:"file"`            // path as currently known
	CommitFilename string    `json:"commit_filename"` // path at that commit
	Commit         string    `json:"commit"`
	AuthorDate     time.Time `json:"author_date"`
	CommitDate     time.Time `json:"commit_date"`
	Indentation    int64     `json:"indentation"`
	LinesCode      int64     `json:"lines_code"`
	LinesComment   int64     `json:"lines_comment"`
}

// FileHotspotSummary is the per-file hotspot row derived from the record table.
type FileHotspotSummary struct {
	File        string  `json:"file"`
	Revisions   int     `json:"revisions"`
	LinesCode   int64   `json:"lines_code"`
	Indentation int64   `json:"indentation"`
	Urgency     float64 `json:"urgency"`
}

// ChangeCouplingEdge counts the commits shared by two distinct files.
type ChangeCouplingEdge struct {
	FileX   string `json:"file_x"`
	FileY   string `json:"file_y"`
	Commits int    `json:"commits"`
}

// CommitSnapshot is one entry of a file's history as reported by a history
// collaborator. SnapshotName is the path the file held at Commit.
type CommitSnapshot struct {
	Commit       string
	AuthorDate   time.Time
	CommitDate   time.Time
	SnapshotName string
	Deleted      bool // the commit removed the file, so no content exists
}

// SnapshotMetrics is what a metrics collaborator reports for one snapshot.
type SnapshotMetrics struct {
	LinesCode    int64 `json:"lines_code"`
	LinesComment int64 `json:"lines_comment"`
	Indentation  int64 `json:"indentation"`
}

// CouplingResult is the output of a coupling query together with the number
// of commits excluded by the per-commit file cap.
type CouplingResult struct {
	Edges          []ChangeCouplingEdge `json:"edges"`
	SkippedCommits int                  `json:"skipped_commits"`
}

// TableInfo describes a loaded record table.
type TableInfo struct {
	Path        string    `json:"path"`
	Records     int       `json:"records"`
	Files       int       `json:"files"`
	Commits     int       `json:"commits"`
	FirstCommit time.Time `json:"first_commit"`
	LastCommit  time.Time `json:"last_commit"`
}

// DescribeTable computes summary statistics for a record table.
func DescribeTable(path string, records []FileRevisionRecord) TableInfo {
	info := TableInfo{Path: path, Records: len(records)}
	files := make(map[string]struct{})
	commits := make(map[string]struct{})
	for _, r := range records {
		files[r.File] = struct{}{}
		commits[r.Commit] = struct{}{}
		if info.FirstCommit.IsZero() || r.CommitDate.Before(info.FirstCommit) {
			info.FirstCommit = r.CommitDate
		}
		if r.CommitDate.After(info.LastCommit) {
			info.LastCommit = r.CommitDate
		}
	}
	info.Files = len(files)
	info.Commits = len(commits)
	return info
}

// ComputeSummary reports the outcome of one compute run.
type ComputeSummary struct {
	RepoPath   string        `json:"repo_path"`
	DataFile   string        `json:"data_file"`
	Files      int           `json:"files"`
	Records    int           `json:"records"`
	Duration   time.Duration `json:"duration"`
	AnalysisID int64         `json:"analysis_id,omitempty"`
}
