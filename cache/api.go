package cache

// Operations is the write-only view of a Cache handed to a Producer during a
// refresh. It deliberately has no read, enumerate or delete-by-key methods:
// a producer rebuilds its values from the source of truth, never from its
// own previous output.
//
// A handle is bound to a single refresh. Calls made after the producer has
// returned are ignored.
type Operations interface {
	// Clear removes every stored value. The cache never clears on its own;
	// producers that want rows of a shrunk label space to read 0 again
	// must call Clear before repopulating.
	Clear()

	// Update upserts the value stored under labels.Fingerprint().
	Update(labels LabelSet, value float64)
}

// Producer recomputes the values of one metric family.
//
// It runs synchronously under the cache lock, at most once per TTL window,
// and should be fast relative to the TTL. It must not read the same Cache:
// the lock is not reentrant. A returned error is reported to
// the reader that triggered the refresh; the refresh still counts, so a
// failing producer is retried once per TTL window, not on every read.
type Producer func(ops Operations) error
