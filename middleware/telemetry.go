package middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// Metrics holds request counts and duration statistics per method.
type Metrics struct {
	mu      sync.RWMutex
	methods map[string]*MethodMetrics
}

// MethodMetrics holds metrics for a single method.
type MethodMetrics struct {
	Count   atomic.Int64
	Errors  atomic.Int64
	TotalNs atomic.Int64
	MaxNs   atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{methods: make(map[string]*MethodMetrics)}
}

func (m *Metrics) getOrCreate(method string) *MethodMetrics {
	m.mu.RLock()
	mm, ok := m.methods[method]
	m.mu.RUnlock()
	if ok {
		return mm
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mm, ok := m.methods[method]; ok {
		return mm
	}
	mm = &MethodMetrics{}
	m.methods[method] = mm
	return mm
}

func (mm *MethodMetrics) observe(elapsed time.Duration, failed bool) {
	mm.Count.Add(1)
	mm.TotalNs.Add(int64(elapsed))
	if failed {
		mm.Errors.Add(1)
	}
	for {
		cur := mm.MaxNs.Load()
		if int64(elapsed) <= cur || mm.MaxNs.CompareAndSwap(cur, int64(elapsed)) {
			return
		}
	}
}

// MethodSnapshot is a point-in-time copy of metrics for one method.
type MethodSnapshot struct {
	Method    string
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MaxTime   time.Duration
}

// Average returns the mean duration per call.
func (s MethodSnapshot) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Count)
}

// Snapshot returns a point-in-time copy of all method metrics, sorted by
// method name.
func (m *Metrics) Snapshot() []MethodSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make([]MethodSnapshot, 0, len(m.methods))
	for name, mm := range m.methods {
		snap = append(snap, MethodSnapshot{
			Method:    name,
			Count:     mm.Count.Load(),
			Errors:    mm.Errors.Load(),
			TotalTime: time.Duration(mm.TotalNs.Load()),
			MaxTime:   time.Duration(mm.MaxNs.Load()),
		})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Method < snap[j].Method })
	return snap
}

// Telemetry returns middleware that collects request count and latency metrics.
func Telemetry(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
			mm := metrics.getOrCreate(req.Method)
			start := time.Now()
			result, err := next(ctx, conn, req)
			mm.observe(time.Since(start), err != nil)
			return result, err
		}
	}
}
