// Package tracker counts gateway calls using atomics.
package tracker

import "sync/atomic"

// Tracker counts in-flight and completed remote calls.
type Tracker struct {
	running atomic.Int64
	total   atomic.Int64
}

// Inc marks a call as started.
func (t *Tracker) Inc() {
	t.running.Add(1)
	t.total.Add(1)
}

// Dec marks a call as finished.
func (t *Tracker) Dec() { t.running.Add(-1) }

// Running returns the number of calls in flight.
func (t *Tracker) Running() int64 { return t.running.Load() }

// Total returns the number of calls started since creation.
func (t *Tracker) Total() int64 { return t.total.Load() }
