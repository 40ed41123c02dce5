package imgsim

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAddImage is called after each single-image ingestion step.
	// status reports the outcome, err is nil unless the store failed.
	RecordAddImage(status AddStatus, duration time.Duration, err error)

	// RecordBuild is called after each BuildDatabase run.
	RecordBuild(report BuildReport, duration time.Duration, err error)

	// RecordSearch is called after each search operation. kind is "image"
	// or "text", k is the number of neighbors requested.
	RecordSearch(kind string, k int, duration time.Duration, err error)

	// RecordClear is called after each Clear operation.
	RecordClear(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAddImage(AddStatus, time.Duration, error)   {}
func (NoopMetricsCollector) RecordBuild(BuildReport, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSearch(string, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordClear(time.Duration, error)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddFresh         atomic.Int64
	AddSkipped       atomic.Int64 // missing + encode failures
	AddErrors        atomic.Int64
	AddTotalNanos    atomic.Int64
	BuildCount       atomic.Int64
	BuildImages      atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	ClearCount       atomic.Int64
	ClearErrors      atomic.Int64
}

// RecordAddImage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddImage(status AddStatus, duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())

	switch {
	case err != nil:
		b.AddErrors.Add(1)
	case status == AddStatusFresh:
		b.AddFresh.Add(1)
	case status == AddStatusMissing || status == AddStatusEncodeFailed:
		b.AddSkipped.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(report BuildReport, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildImages.Add(int64(report.Total))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(kind string, k int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordClear implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClear(duration time.Duration, err error) {
	b.ClearCount.Add(1)
	if err != nil {
		b.ClearErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddFresh:       b.AddFresh.Load(),
		AddSkipped:     b.AddSkipped.Load(),
		AddErrors:      b.AddErrors.Load(),
		AddAvgNanos:    b.avgNanos(b.AddTotalNanos.Load(), b.AddCount.Load()),
		BuildCount:     b.BuildCount.Load(),
		BuildImages:    b.BuildImages.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		ClearCount:     b.ClearCount.Load(),
		ClearErrors:    b.ClearErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount       int64
	AddFresh       int64
	AddSkipped     int64
	AddErrors      int64
	AddAvgNanos    int64
	BuildCount     int64
	BuildImages    int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	ClearCount     int64
	ClearErrors    int64
}
