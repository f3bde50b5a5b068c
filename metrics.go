package gbili

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics
// of a graph-construction run. Implement this interface to integrate with
// monitoring systems.
type MetricsCollector interface {
	// RecordSearch is called after each k-nearest-neighbor query.
	// k is the number of neighbors requested, duration is the time taken,
	// err is nil if successful.
	RecordSearch(k int, duration time.Duration, err error)

	// RecordVertex is called after each vertex evaluation.
	// accepted is the number of directed candidate edges the vertex
	// proposed, duration is the total time taken.
	RecordVertex(accepted int, duration time.Duration)

	// RecordAssemble is called once after the merge phase.
	// edges is the number of undirected edges in the assembled graph.
	RecordAssemble(edges int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordVertex(int, time.Duration)        {}
func (NoopMetricsCollector) RecordAssemble(int, time.Duration)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and run summaries without external dependencies.
// Safe for concurrent use.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	VertexCount      atomic.Int64
	ArcCount         atomic.Int64
	VertexTotalNanos atomic.Int64
	MergedEdges      atomic.Int64
	MergeNanos       atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordVertex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVertex(accepted int, duration time.Duration) {
	b.VertexCount.Add(1)
	b.ArcCount.Add(int64(accepted))
	b.VertexTotalNanos.Add(duration.Nanoseconds())
}

// RecordAssemble implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssemble(edges int, duration time.Duration) {
	b.MergedEdges.Store(int64(edges))
	b.MergeNanos.Store(duration.Nanoseconds())
}

// AverageSearchDuration returns the mean duration of all recorded searches.
func (b *BasicMetricsCollector) AverageSearchDuration() time.Duration {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(b.SearchTotalNanos.Load() / count)
}
