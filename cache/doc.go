// Package cache provides a TTL-gated, lazily refreshed value cache that sits
// between a pull-based metrics exporter and an expensive producer callback.
// However many rows are polled, and however concurrently, the producer runs
// at most once per TTL window.
//
// Design
//
//   - Gate: every Value call takes one mutex, checks whether the snapshot is
//     older than the TTL (elapsed > TTL, equality is still fresh), runs the
//     producer if so, and reads the key, all inside the same critical section.
//     Readers never see a store that the producer cleared but has not yet
//     repopulated.
//
//   - Timestamp first: the last-refresh instant is advanced before the producer
//     runs. A failing producer is therefore retried once per TTL window rather
//     than on every read.
//
//   - Capability: the producer receives an Operations handle with only Clear and
//     Update. It cannot read the cache, and the handle stops working once the
//     refresh returns.
//
//   - Keys: rows are identified by a LabelSet; its Fingerprint sorts pairs and
//     quotes names and values, which makes the key order-independent and
//     collision-free.
//
//   - Lazy: nothing runs until the first read, and the first read always
//     refreshes, whatever the TTL.
//
//   - Errors: unknown keys read as 0. A producer error (or panic) is returned as a
//     *RefreshError to the one reader that triggered the refresh.
//
// Basic usage
//
//	c := cache.New(cache.Options{
//	    Name: "queue_depth",
//	    TTL:  30 * time.Second,
//	    Producer: func(ops cache.Operations) error {
//	        depths, err := fetchDepths() // expensive
//	        if err != nil {
//	            return err
//	        }
//	        ops.Clear()
//	        for q, d := range depths {
//	            ops.Update(cache.Labels("queue", q), float64(d))
//	        }
//	        return nil
//	    },
//	})
//	rows := c.Bind(cache.Labels("queue", "a"), cache.Labels("queue", "b"))
//	v := rows[0].Value() // first read runs the producer
//
// Exporting to Prometheus
//
// The metrics/prom package wraps a Cache into a prometheus.Collector
// (MultiGauge) that exports every bound row as a gauge sample, and provides an
// Adapter implementing Metrics for refresh counters and durations.
//
// Thread-safety
//
// All methods are safe for concurrent use. Value blocks for as long as a
// refresh takes; each Cache has its own lock and nothing is shared between
// instances.
package cache
