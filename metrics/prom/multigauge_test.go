package prom

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

type fakeClock struct{ t atomic.Int64 }

func (f *fakeClock) MonotonicNanos() int64 { return f.t.Load() }
func (f *fakeClock) addSeconds(s int)      { f.t.Add(int64(time.Duration(s) * time.Second)) }

var rows = []cache.LabelSet{
	cache.Labels("column0", "a", "column1", "a"),
	cache.Labels("column0", "a", "column1", "b"),
	cache.Labels("column0", "b", "column1", "b"),
	cache.Labels("column0", "b", "column1", "a"),
}

func expositionAll(v string) string {
	return `
# HELP row Cached row values.
# TYPE row gauge
row{column0="a",column1="a",key="value"} ` + v + `
row{column0="a",column1="b",key="value"} ` + v + `
row{column0="b",column1="a",key="value"} ` + v + `
row{column0="b",column1="b",key="value"} ` + v + `
`
}

// A scrape polls all four rows; the producer runs once per TTL window.
func TestMultiGauge_UpdatesValuesAfterTTLExpired(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	clk := &fakeClock{}
	reg := prometheus.NewRegistry()

	g := NewMultiGauge(MultiGaugeOpts{
		Name:        "row",
		Help:        "Cached row values.",
		ConstLabels: prometheus.Labels{"key": "value"},
		TTL:         2 * time.Second,
		Clock:       clk,
		Producer: func(ops cache.Operations) error {
			v := float64(calls.Add(1))
			for _, ls := range rows {
				ops.Update(ls, v)
			}
			return nil
		},
	})
	reg.MustRegister(g)
	if err := g.Register(rows...); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 0 {
		t.Fatalf("want 0 invocations before the first scrape, got %d", got)
	}

	if err := testutil.GatherAndCompare(reg, strings.NewReader(expositionAll("1")), "row"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("want 1 invocation, got %d", got)
	}

	clk.addSeconds(2)
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expositionAll("1")), "row"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("want 1 invocation at the TTL boundary, got %d", got)
	}

	clk.addSeconds(1)
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expositionAll("2")), "row"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("want 2 invocations, got %d", got)
	}
}

// A failing refresh invalidates only the sample whose read triggered it.
func TestMultiGauge_ProducerErrorFailsOneSample(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	reg := prometheus.NewRegistry()
	g := NewMultiGauge(MultiGaugeOpts{
		Name:     "row",
		Help:     "Cached row values.",
		TTL:      time.Minute,
		Clock:    clk,
		Producer: func(cache.Operations) error { return errors.New("backend down") },
	})
	reg.MustRegister(g)
	if err := g.Register(rows...); err != nil {
		t.Fatal(err)
	}

	mfs, err := reg.Gather()
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("want gather error mentioning the producer failure, got %v", err)
	}
	if n := samples(mfs, "row"); n != len(rows)-1 {
		t.Fatalf("want %d valid samples, got %d", len(rows)-1, n)
	}

	// Same window: no retry, every row exported (as 0).
	mfs, err = reg.Gather()
	if err != nil {
		t.Fatalf("second gather in the same window: %v", err)
	}
	if n := samples(mfs, "row"); n != len(rows) {
		t.Fatalf("want %d samples, got %d", len(rows), n)
	}
}

// Register replaces the row set; removed rows stop being exported.
func TestMultiGauge_RegisterReplacesRows(t *testing.T) {
	t.Parallel()

	g := NewMultiGauge(MultiGaugeOpts{
		Name:  "row",
		Help:  "Cached row values.",
		TTL:   time.Minute,
		Clock: &fakeClock{},
		Producer: func(ops cache.Operations) error {
			for _, ls := range rows {
				ops.Update(ls, 5)
			}
			return nil
		},
	})
	if err := g.Register(rows...); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(g, "row"); n != 4 {
		t.Fatalf("want 4 rows, got %d", n)
	}
	if err := g.Register(rows[0]); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(g, "row"); n != 1 {
		t.Fatalf("want 1 row after re-register, got %d", n)
	}
	if got := len(g.Rows()); got != 1 {
		t.Fatalf("Rows: want 1, got %d", got)
	}
}

func TestMultiGauge_RegisterRejectsInvalidRows(t *testing.T) {
	t.Parallel()

	g := NewMultiGauge(MultiGaugeOpts{
		Name:     "row",
		TTL:      time.Minute,
		Producer: func(cache.Operations) error { return nil },
	})
	if err := g.Register(rows[0]); err != nil {
		t.Fatal(err)
	}

	// Same pairs in a different insertion order is still a duplicate.
	dup := cache.Labels("column1", "a", "column0", "a")
	if err := g.Register(rows[0], dup); err == nil {
		t.Fatal("duplicate row must be rejected")
	}
	if err := g.Register(cache.LabelSet{"": "x"}); err == nil {
		t.Fatal("empty label name must be rejected")
	}
	if got := len(g.Rows()); got != 1 {
		t.Fatalf("failed Register must keep the previous rows, got %d", got)
	}
}

func TestMultiGauge_FQNameAndUnit(t *testing.T) {
	t.Parallel()

	noop := func(cache.Operations) error { return nil }
	cases := []struct {
		opts MultiGaugeOpts
		want string
	}{
		{MultiGaugeOpts{Name: "depth"}, "depth"},
		{MultiGaugeOpts{Namespace: "app", Subsystem: "queue", Name: "depth"}, "app_queue_depth"},
		{MultiGaugeOpts{Name: "backlog", Unit: "bytes"}, "backlog_bytes"},
		{MultiGaugeOpts{Name: "backlog_bytes", Unit: "bytes"}, "backlog_bytes"},
	}
	for _, tc := range cases {
		tc.opts.Producer = noop
		if got := NewMultiGauge(tc.opts).FQName(); got != tc.want {
			t.Errorf("FQName(%+v): want %q, got %q", tc.opts, tc.want, got)
		}
	}
}

// Row labels override base labels of the same name; the cache key uses row labels only.
func TestMultiGauge_RowLabelsOverrideBase(t *testing.T) {
	t.Parallel()

	row := cache.Labels("env", "staging")
	g := NewMultiGauge(MultiGaugeOpts{
		Name:        "up",
		Help:        "Up.",
		ConstLabels: prometheus.Labels{"env": "prod", "team": "core"},
		TTL:         time.Minute,
		Clock:       &fakeClock{},
		Producer: func(ops cache.Operations) error {
			ops.Update(row, 1)
			return nil
		},
	})
	if err := g.Register(row); err != nil {
		t.Fatal(err)
	}

	const want = `
# HELP up Up.
# TYPE up gauge
up{env="staging",team="core"} 1
`
	if err := testutil.CollectAndCompare(g, strings.NewReader(want), "up"); err != nil {
		t.Fatal(err)
	}
}

func samples(mfs []*dto.MetricFamily, name string) int {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return len(mf.GetMetric())
		}
	}
	return 0
}
