package orchestrator

import (
	"sync"
	"time"
)

// Timer records start/end instants per named operation step and renders
// them into a flat duration-in-milliseconds report, the Go equivalent of
// original_source/src/utils/benchmarking.rs's OperationTimer.
type Timer struct {
	mu     sync.Mutex
	starts map[string]time.Time
	totals map[string]time.Duration
}

// NewTimer builds an empty Timer.
func NewTimer() *Timer {
	return &Timer{
		starts: make(map[string]time.Time),
		totals: make(map[string]time.Duration),
	}
}

// Start marks the beginning of the named operation.
func (t *Timer) Start(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[name] = time.Now()
}

// End marks the end of the named operation, recording its duration. A call
// to End without a matching Start is a no-op.
func (t *Timer) End(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.starts[name]
	if !ok {
		return
	}
	t.totals[name] = time.Since(start)
	delete(t.starts, name)
}

// Time runs fn, recording its duration under name, and returns whatever fn
// returns.
func Time[T any](t *Timer, name string, fn func() (T, error)) (T, error) {
	t.Start(name)
	defer t.End(name)
	return fn()
}

// Report renders the recorded durations as milliseconds.
func (t *Timer) Report() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	report := make(map[string]int64, len(t.totals))
	for name, d := range t.totals {
		report[name] = d.Milliseconds()
	}
	return report
}
