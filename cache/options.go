package cache

import (
	"time"
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
//
// Hooks are called under the cache lock; keep them cheap.
type Metrics interface {
	// Read is called for every Value call, stale or not.
	Read()
	// Refresh is called after each producer invocation with its duration
	// and the error it returned (nil on success).
	Refresh(took time.Duration, err error)
	// Size reports the number of stored values after a refresh.
	Size(entries int)
}

// Clock provides monotonic time in nanoseconds; useful for deterministic tests.
//
// The value must never go backwards. A regressing clock makes staleness
// detection refresh too early or too late; the cache does not guard against it.
type Clock interface{ MonotonicNanos() int64 }

// ClockFunc adapts an ordinary function to the Clock interface.
type ClockFunc func() int64

// MonotonicNanos calls f.
func (f ClockFunc) MonotonicNanos() int64 { return f() }

// monotonicClock reads the runtime's monotonic clock relative to base.
type monotonicClock struct{ base time.Time }

func (c monotonicClock) MonotonicNanos() int64 { return int64(time.Since(c.base)) }

// Options configures a Cache. Zero values are safe except for Producer;
// defaults are applied in New():
//   - nil Clock    => runtime monotonic clock
//   - nil Metrics  => NoopMetrics
//   - nil Logger   => NopLogger
type Options struct {
	// Name identifies the cache in logs and errors (usually the metric family name).
	Name string

	// TTL is the maximum age of the stored snapshot. A read refreshes only when
	// the elapsed time since the last refresh is strictly greater than TTL.
	// Zero means a refresh whenever the clock has advanced at all.
	TTL time.Duration

	// Producer repopulates the cache. Required.
	Producer Producer

	// Observability
	Metrics Metrics
	Logger  Logger

	// Clock allows overriding the time source (tests). Nil => monotonic runtime clock.
	Clock Clock
}
