package nanovdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see the
// metric package for a Prometheus implementation.
type MetricsCollector interface {
	// RecordUpsert is called after each upsert.
	// count is the number of records in the batch.
	RecordUpsert(count int, duration time.Duration, err error)

	// RecordQuery is called after each query.
	// k is the number of results requested, results the number returned.
	RecordQuery(k, results int, duration time.Duration, err error)

	// RecordRemove is called after each remove with the number of removed records.
	RecordRemove(count int, duration time.Duration)

	// RecordSave is called after persisting a store.
	RecordSave(duration time.Duration, err error)

	// RecordLoad is called after loading persisted state.
	RecordLoad(duration time.Duration, err error)

	// RecordEviction is called after a tenant eviction attempt.
	RecordEviction(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpsert(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRemove(int, time.Duration)            {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)            {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)            {}
func (NoopMetricsCollector) RecordEviction(time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpsertCount      atomic.Int64
	UpsertRecords    atomic.Int64
	UpsertErrors     atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	RemoveCount      atomic.Int64
	RemovedRecords   atomic.Int64
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveTotalNanos   atomic.Int64
	LoadCount        atomic.Int64
	LoadErrors       atomic.Int64
	EvictionCount    atomic.Int64
	EvictionFailures atomic.Int64
}

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(count int, _ time.Duration, err error) {
	b.UpsertCount.Add(1)
	if err != nil {
		b.UpsertErrors.Add(1)
		return
	}
	b.UpsertRecords.Add(int64(count))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_, _ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(count int, _ time.Duration) {
	b.RemoveCount.Add(1)
	b.RemovedRecords.Add(int64(count))
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(_ time.Duration, err error) {
	if err != nil {
		b.EvictionFailures.Add(1)
		return
	}
	b.EvictionCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertCount:      b.UpsertCount.Load(),
		UpsertRecords:    b.UpsertRecords.Load(),
		UpsertErrors:     b.UpsertErrors.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		RemoveCount:      b.RemoveCount.Load(),
		RemovedRecords:   b.RemovedRecords.Load(),
		SaveCount:        b.SaveCount.Load(),
		SaveErrors:       b.SaveErrors.Load(),
		SaveAvgNanos:     avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
		EvictionCount:    b.EvictionCount.Load(),
		EvictionFailures: b.EvictionFailures.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpsertCount      int64
	UpsertRecords    int64
	UpsertErrors     int64
	QueryCount       int64
	QueryErrors      int64
	QueryAvgNanos    int64
	RemoveCount      int64
	RemovedRecords   int64
	SaveCount        int64
	SaveErrors       int64
	SaveAvgNanos     int64
	LoadCount        int64
	LoadErrors       int64
	EvictionCount    int64
	EvictionFailures int64
}
