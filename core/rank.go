package core

import (
	"github.com/huangsam/xrays/schema"
)

// limitHotspots returns at most 'limit' summaries, keeping the ranking that
// agg.SummarizeHotspots produced. A non-positive limit keeps every row.
func limitHotspots(summaries []schema.FileHotspotSummary, limit int) []schema.FileHotspotSummary {
	if limit > 0 && len(summaries) > limit {
		return summaries[:limit]
	}
	return summaries
}

// limitEdges returns at most 'limit' coupling edges, keeping their order.
func limitEdges(edges []schema.ChangeCouplingEdge, limit int) []schema.ChangeCouplingEdge {
	if limit > 0 && len(edges) > limit {
		return edges[:limit]
	}
	return edges
}
