package cache

import (
	"fmt"
	"sync"
	"time"
)

// Cache is a TTL-gated, lazily refreshed value cache for one metric family.
// All methods are safe for concurrent use by multiple goroutines.
//
// Every read runs the staleness check, the optional refresh and the lookup
// as one critical section, so at most one producer invocation is in flight
// and no reader ever observes a half-repopulated store.
type Cache struct {
	// ---- guarded by mu ----
	mu          sync.Mutex
	store       *store
	lastRefresh int64 // monotonic nanos of the last refresh attempt
	refreshed   bool  // false until the first refresh attempt

	// ---- immutable after New ----
	name     string
	ttl      int64
	producer Producer
	clock    Clock
	metrics  Metrics
	log      Logger
}

// New constructs a Cache with the provided Options.
// Defaults:
//   - nil Clock    -> runtime monotonic clock
//   - nil Metrics  -> NoopMetrics
//   - nil Logger   -> NopLogger
//
// New panics if Producer is nil or TTL is negative.
// No producer invocation happens before the first Value call.
func New(opt Options) *Cache {
	if opt.Producer == nil {
		panic("Producer must not be nil")
	}
	if opt.TTL < 0 {
		panic("TTL must be >= 0")
	}
	if opt.Clock == nil {
		opt.Clock = monotonicClock{base: time.Now()}
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = NopLogger{}
	}

	return &Cache{
		store:    newStore(),
		name:     opt.Name,
		ttl:      int64(opt.TTL),
		producer: opt.Producer,
		clock:    opt.Clock,
		metrics:  opt.Metrics,
		log:      opt.Logger,
	}
}

// Name returns the name the cache was constructed with.
func (c *Cache) Name() string { return c.name }

// TTL returns the configured refresh interval.
func (c *Cache) TTL() time.Duration { return time.Duration(c.ttl) }

// Value returns the value stored under key, refreshing first if the snapshot
// is older than the TTL. Unknown keys read as 0 without error.
//
// If this call triggered a refresh and the producer failed, the error is
// returned as a *RefreshError together with whatever the store holds after
// the failed attempt. The attempt still counts: the next refresh happens
// only after another TTL has elapsed.
func (c *Cache) Value(key string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.Read()

	var err error
	now := c.clock.MonotonicNanos()
	if c.expiredLocked(now) {
		// Advance before invoking so a slow or re-reading producer
		// cannot trigger another refresh.
		c.lastRefresh = now
		c.refreshed = true
		err = c.refreshLocked()
	}
	return c.store.get(key), err
}

// Len returns the number of stored values without triggering a refresh.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}

// -------------------- internals (mu held) --------------------

// expiredLocked reports whether a refresh is due. The first read is always
// stale, whatever the TTL.
func (c *Cache) expiredLocked(now int64) bool {
	return !c.refreshed || now-c.lastRefresh > c.ttl
}

// refreshLocked runs the producer once with a fresh Operations handle.
func (c *Cache) refreshLocked() error {
	h := &ops{s: c.store, onLeak: c.leaked}
	defer h.expire()

	start := time.Now()
	err := c.invoke(h)
	took := time.Since(start)

	c.metrics.Refresh(took, err)
	c.metrics.Size(c.store.len())

	if err != nil {
		c.log.Warn("refresh failed", Fields{"cache": c.name, "took": took, "error": err})
		return &RefreshError{Name: c.name, Err: err}
	}
	c.log.Debug("refreshed", Fields{"cache": c.name, "entries": c.store.len(), "took": took})
	return nil
}

// invoke calls the producer, turning a panic into an error.
func (c *Cache) invoke(h *ops) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
	}()
	return c.producer(h)
}

func (c *Cache) leaked(op string) {
	c.log.Warn("operations handle used after refresh", Fields{"cache": c.name, "op": op})
}
