// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Failures that were degraded rather than surfaced (rerank fallback,
	// enrichment raw fallback).
	Fallbacks int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
	Fallbacks   int64   `json:"fallbacks,omitempty"`
}

// Snapshot represents the full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Embedding     *OperationSnapshot `json:"embedding,omitempty"`
	Enrich        *OperationSnapshot `json:"enrich,omitempty"`
	Rerank        *OperationSnapshot `json:"rerank,omitempty"`
	Generate      *OperationSnapshot `json:"generate,omitempty"`
	DBQuery       *OperationSnapshot `json:"db_query,omitempty"`
	IndexSearch   *OperationSnapshot `json:"index_search,omitempty"`
}

// Operation names for the collector.
const (
	OpEmbedding   = "embedding"
	OpEnrich      = "enrich"
	OpRerank      = "rerank"
	OpGenerate    = "generate"
	OpDBQuery     = "db_query"
	OpIndexSearch = "index_search"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordFallback counts a degraded execution of an operation, such as a
// rerank that fell back to fusion order.
func (c *Collector) RecordFallback(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(op).Fallbacks++
}

// Time runs fn and records its duration under op.
func (c *Collector) Time(op string, fn func()) {
	start := time.Now()
	fn()
	c.RecordTiming(op, time.Since(start))
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || (m.Count == 0 && m.Fallbacks == 0) {
		return nil
	}

	snap := &OperationSnapshot{
		Count:     m.Count,
		Fallbacks: m.Fallbacks,
	}
	if m.Count > 0 {
		snap.TotalTimeMs = m.TotalTime.Milliseconds()
		snap.AvgTimeMs = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		snap.MinTimeMs = m.MinTime.Milliseconds()
		snap.MaxTimeMs = m.MaxTime.Milliseconds()
	}
	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Embedding:     snapshotOp(c.ops[OpEmbedding]),
		Enrich:        snapshotOp(c.ops[OpEnrich]),
		Rerank:        snapshotOp(c.ops[OpRerank]),
		Generate:      snapshotOp(c.ops[OpGenerate]),
		DBQuery:       snapshotOp(c.ops[OpDBQuery]),
		IndexSearch:   snapshotOp(c.ops[OpIndexSearch]),
	}
}
