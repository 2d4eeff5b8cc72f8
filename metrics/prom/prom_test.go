package prom

import (
	"errors"
	"testing"
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdapter_RecordsRefreshes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a := New(reg, "cg", "test", prometheus.Labels{"family": "row"})

	clk := &fakeClock{}
	fail := false
	c := cache.New(cache.Options{
		TTL:     time.Second,
		Clock:   clk,
		Metrics: a,
		Producer: func(ops cache.Operations) error {
			if fail {
				return errors.New("boom")
			}
			ops.Update(cache.Labels("k", "v"), 1)
			return nil
		},
	})

	for i := 0; i < 3; i++ {
		_, _ = c.Value("k")
	}
	clk.addSeconds(2)
	fail = true
	_, _ = c.Value("k")

	if got := testutil.ToFloat64(a.reads); got != 4 {
		t.Fatalf("reads: want 4, got %v", got)
	}
	if got := testutil.ToFloat64(a.refreshes); got != 2 {
		t.Fatalf("refreshes: want 2, got %v", got)
	}
	if got := testutil.ToFloat64(a.failures); got != 1 {
		t.Fatalf("failures: want 1, got %v", got)
	}
	if got := testutil.ToFloat64(a.sizeEnt); got != 1 {
		t.Fatalf("size: want 1, got %v", got)
	}
	if n := testutil.CollectAndCount(a.duration); n != 1 {
		t.Fatalf("duration histogram: want 1 series, got %d", n)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 5 {
		t.Fatalf("registry: want 5 series, got %d (err=%v)", n, err)
	}
}
