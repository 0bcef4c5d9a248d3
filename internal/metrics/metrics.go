// Package metrics tracks operational counts and phase timings for a build
// run.
//
// Counters track totals such as rows parsed or bytes downloaded. Timings
// track how long each phase of a pipeline took. A snapshot of both is
// logged at debug level when a build completes.
package metrics

import (
	"sync"
	"time"
)

// Tracker collects counters and timings. All methods are safe for
// concurrent use.
type Tracker struct {
	mu       sync.Mutex
	counters map[string]int64
	timings  map[string][]time.Duration
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		counters: make(map[string]int64),
		timings:  make(map[string][]time.Duration),
	}
}

// Add increases the named counter by delta.
func (t *Tracker) Add(name string, delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters[name] += delta
}

// Counter returns the current value of the named counter.
func (t *Tracker) Counter(name string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters[name]
}

// Time starts timing the named phase and returns a function that records
// the elapsed duration when called:
//
//	defer tracker.Time("download")()
func (t *Tracker) Time(name string) func() {
	started := time.Now()
	return func() {
		t.Record(name, time.Since(started))
	}
}

// Record adds one duration measurement for the named phase.
func (t *Tracker) Record(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timings[name] = append(t.timings[name], d)
}

// Snapshot returns all counters together with per-phase timing totals in
// milliseconds, keyed as <phase>_ms.
func (t *Tracker) Snapshot() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := make(map[string]any, len(t.counters)+len(t.timings))
	for name, v := range t.counters {
		snap[name] = v
	}
	for name, durations := range t.timings {
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		snap[name+"_ms"] = total.Milliseconds()
	}

	return snap
}
