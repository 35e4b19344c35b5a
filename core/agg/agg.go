// Package agg derives hotspot summaries and change coupling from the record table.
// Every function here is pure: the record slice is only read.
package agg

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/huangsam/xrays/schema"
)

// pathMatcher applies a path filter with one regex evaluation per distinct file.
type pathMatcher struct {
	re   *regexp.Regexp
	seen map[string]bool
}

// newPathMatcher compiles a path filter. The empty filter matches every path.
func newPathMatcher(filter string) (*pathMatcher, error) {
	re, err := regexp.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid path filter %q: %w", filter, err)
	}
	return &pathMatcher{re: re, seen: make(map[string]bool)}, nil
}

// match reports whether the filter matches anywhere in file.
func (m *pathMatcher) match(file string) bool {
	ok, cached := m.seen[file]
	if !cached {
		ok = m.re.MatchString(file)
		m.seen[file] = ok
	}
	return ok
}

// fileGroup accumulates the records of one file.
type fileGroup struct {
	commits map[string]struct{}
	latest  schema.FileRevisionRecord
}

// newer reports whether a is a more recent snapshot than b: by commit date,
// then author date, then commit id.
func newer(a, b schema.FileRevisionRecord) bool {
	if !a.CommitDate.Equal(b.CommitDate) {
		return a.CommitDate.After(b.CommitDate)
	}
	if !a.AuthorDate.Equal(b.AuthorDate) {
		return a.AuthorDate.After(b.AuthorDate)
	}
	return a.Commit > b.Commit
}

// ratio divides with a zero denominator yielding zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// SummarizeHotspots produces one summary per file whose path matches filter
// and that has at least revisionCutoff distinct commits. Urgency maxima are
// taken before the cutoff is applied. Results are ordered by urgency
// descending, then by file.
func SummarizeHotspots(records []schema.FileRevisionRecord, filter string, revisionCutoff int) ([]schema.FileHotspotSummary, error) {
	matcher, err := newPathMatcher(filter)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*fileGroup)
	for _, rec := range records {
		if !matcher.match(rec.File) {
			continue
		}
		g, ok := groups[rec.File]
		if !ok {
			g = &fileGroup{commits: make(map[string]struct{}), latest: rec}
			groups[rec.File] = g
		} else if newer(rec, g.latest) {
			g.latest = rec
		}
		g.commits[rec.Commit] = struct{}{}
	}

	var maxIndentation, maxRevisions float64
	for _, g := range groups {
		maxIndentation = math.Max(maxIndentation, float64(g.latest.Indentation))
		maxRevisions = math.Max(maxRevisions, float64(len(g.commits)))
	}

	summaries := make([]schema.FileHotspotSummary, 0, len(groups))
	for file, g := range groups {
		revisions := len(g.commits)
		if revisions < revisionCutoff {
			continue
		}
		urgency := ratio(float64(g.latest.Indentation), maxIndentation) * math.Sqrt(ratio(float64(revisions), maxRevisions))
		summaries = append(summaries, schema.FileHotspotSummary{
			File:        file,
			Revisions:   revisions,
			LinesCode:   g.latest.LinesCode,
			Indentation: g.latest.Indentation,
			Urgency:     urgency,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Urgency != summaries[j].Urgency {
			return summaries[i].Urgency > summaries[j].Urgency
		}
		return summaries[i].File < summaries[j].File
	})
	return summaries, nil
}

// ComputeCoupling returns every unordered file pair changed together in at
// least couplingCutoff commits, restricted to files matching filter.
func ComputeCoupling(records []schema.FileRevisionRecord, filter string, couplingCutoff int) ([]schema.ChangeCouplingEdge, error) {
	result, err := ComputeCouplingCapped(records, filter, couplingCutoff, 0)
	if err != nil {
		return nil, err
	}
	return result.Edges, nil
}

// ComputeCouplingCapped is ComputeCoupling with a cap on files per commit.
// Commits touching more than maxFiles matching files are skipped and counted;
// maxFiles <= 0 disables the cap. Each edge has FileX < FileY. Edges are
// ordered by commits descending, then by (FileX, FileY).
func ComputeCouplingCapped(records []schema.FileRevisionRecord, filter string, couplingCutoff, maxFiles int) (schema.CouplingResult, error) {
	matcher, err := newPathMatcher(filter)
	if err != nil {
		return schema.CouplingResult{}, err
	}

	byCommit := make(map[string]map[string]struct{})
	for _, rec := range records {
		if !matcher.match(rec.File) {
			continue
		}
		files, ok := byCommit[rec.Commit]
		if !ok {
			files = make(map[string]struct{})
			byCommit[rec.Commit] = files
		}
		files[rec.File] = struct{}{}
	}

	type pair struct{ x, y string }
	counts := make(map[pair]int)
	result := schema.CouplingResult{}
	for _, set := range byCommit {
		if maxFiles > 0 && len(set) > maxFiles {
			result.SkippedCommits++
			continue
		}
		files := make([]string, 0, len(set))
		for f := range set {
			files = append(files, f)
		}
		sort.Strings(files)
		for i := range files {
			for j := i + 1; j < len(files); j++ {
				counts[pair{files[i], files[j]}]++
			}
		}
	}

	result.Edges = make([]schema.ChangeCouplingEdge, 0, len(counts))
	for p, n := range counts {
		if n < couplingCutoff {
			continue
		}
		result.Edges = append(result.Edges, schema.ChangeCouplingEdge{FileX: p.x, FileY: p.y, Commits: n})
	}
	sortEdges(result.Edges)
	return result, nil
}

// Symmetric returns both orderings of every edge, as a heatmap would show them.
func Symmetric(edges []schema.ChangeCouplingEdge) []schema.ChangeCouplingEdge {
	out := make([]schema.ChangeCouplingEdge, 0, 2*len(edges))
	for _, e := range edges {
		out = append(out, e, schema.ChangeCouplingEdge{FileX: e.FileY, FileY: e.FileX, Commits: e.Commits})
	}
	sortEdges(out)
	return out
}

func sortEdges(edges []schema.ChangeCouplingEdge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Commits != b.Commits {
			return a.Commits > b.Commits
		}
		if a.FileX != b.FileX {
			return a.FileX < b.FileX
		}
		return a.FileY < b.FileY
	})
}
