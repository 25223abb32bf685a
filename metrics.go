package replaytables

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    insertCounter   prometheus.Counter
//	    sampleHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
//	    p.insertCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordInsert is called after each item insert.
	RecordInsert(duration time.Duration, err error)

	// RecordSample is called after each Sample or SampleBatch call.
	// n is the number of items requested.
	RecordSample(n int, duration time.Duration, err error)

	// RecordRelease is called after each reference release.
	RecordRelease(err error)

	// RecordRemove is called whenever an item record is removed, either
	// explicitly or because its last reference was released.
	RecordRemove()

	// RecordUpdate is called after each table binding or priority change.
	RecordUpdate(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)      {}
func (NoopMetricsCollector) RecordSample(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRelease(error)                    {}
func (NoopMetricsCollector) RecordRemove()                          {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	SampleCount      atomic.Int64
	SampleItems      atomic.Int64
	SampleErrors     atomic.Int64
	SampleTotalNanos atomic.Int64
	ReleaseCount     atomic.Int64
	ReleaseErrors    atomic.Int64
	RemoveCount      atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSample(n int, duration time.Duration, err error) {
	b.SampleCount.Add(1)
	b.SampleTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SampleErrors.Add(1)
		return
	}
	b.SampleItems.Add(int64(n))
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(err error) {
	b.ReleaseCount.Add(1)
	if err != nil {
		b.ReleaseErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove() {
	b.RemoveCount.Add(1)
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:    b.InsertCount.Load(),
		InsertErrors:   b.InsertErrors.Load(),
		InsertAvgNanos: avgNanos(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		SampleCount:    b.SampleCount.Load(),
		SampleItems:    b.SampleItems.Load(),
		SampleErrors:   b.SampleErrors.Load(),
		SampleAvgNanos: avgNanos(b.SampleTotalNanos.Load(), b.SampleCount.Load()),
		ReleaseCount:   b.ReleaseCount.Load(),
		ReleaseErrors:  b.ReleaseErrors.Load(),
		RemoveCount:    b.RemoveCount.Load(),
		UpdateCount:    b.UpdateCount.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount    int64
	InsertErrors   int64
	InsertAvgNanos int64
	SampleCount    int64
	SampleItems    int64
	SampleErrors   int64
	SampleAvgNanos int64
	ReleaseCount   int64
	ReleaseErrors  int64
	RemoveCount    int64
	UpdateCount    int64
	UpdateErrors   int64
}
