package cache

import "sync"

// store is the value map of a Cache. It has no lock of its own:
// every access happens under Cache.mu.
type store struct {
	m map[string]float64
}

func newStore() *store {
	return &store{m: make(map[string]float64)}
}

// get returns the value for key, or 0 if absent.
func (s *store) get(key string) float64 { return s.m[key] }

func (s *store) len() int { return len(s.m) }

func (s *store) clear() { clear(s.m) }

func (s *store) set(key string, v float64) { s.m[key] = v }

// -------------------- producer handle --------------------

// ops is the Operations handle for one refresh. It is invalidated when the
// refresh returns so a producer that leaks it cannot mutate the store
// outside the cache lock.
//
// mu covers the expiry check together with the store write, so a call that
// races with expire either completes before the refresh returns or is
// dropped.
type ops struct {
	s      *store
	onLeak func(op string)

	mu      sync.Mutex
	expired bool
}

func (o *ops) expire() {
	o.mu.Lock()
	o.expired = true
	o.mu.Unlock()
}

func (o *ops) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.expired {
		o.onLeak("Clear")
		return
	}
	o.s.clear()
}

func (o *ops) Update(labels LabelSet, value float64) {
	key := labels.Fingerprint()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.expired {
		o.onLeak("Update")
		return
	}
	o.s.set(key, value)
}

var _ Operations = (*ops)(nil)
