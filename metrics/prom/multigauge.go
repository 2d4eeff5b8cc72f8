package prom

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// MultiGaugeOpts configures a MultiGauge.
type MultiGaugeOpts struct {
	// Namespace, Subsystem and Name build the fully-qualified metric name.
	Namespace string
	Subsystem string
	Name      string

	// Unit is appended as a "_<unit>" suffix unless the name already ends with it.
	Unit string

	Help string

	// ConstLabels are the base labels of every row. A row label with the
	// same name wins.
	ConstLabels prometheus.Labels

	// TTL, Producer, Clock, Logger and Metrics configure the underlying cache.
	TTL      time.Duration
	Producer cache.Producer
	Clock    cache.Clock
	Logger   cache.Logger
	Metrics  cache.Metrics
}

// MultiGauge is a prometheus.Collector exporting one gauge sample per
// registered row, all read through a single TTL-gated cache. A scrape that
// polls every row runs the producer at most once per TTL.
//
// The row set can be replaced at any time with Register, so MultiGauge is
// an unchecked collector: Describe sends nothing.
type MultiGauge struct {
	fqName string
	help   string
	base   prometheus.Labels
	c      *cache.Cache

	mu   sync.RWMutex
	rows []exportedRow
}

type exportedRow struct {
	row  cache.Row
	desc *prometheus.Desc
}

// NewMultiGauge builds the cache and the family descriptor. It panics under
// the same conditions as cache.New and when Name is empty.
func NewMultiGauge(opts MultiGaugeOpts) *MultiGauge {
	if opts.Name == "" {
		panic("multigauge: Name must not be empty")
	}
	fq := FQName(opts.Namespace, opts.Subsystem, opts.Name, opts.Unit)

	base := make(prometheus.Labels, len(opts.ConstLabels))
	for k, v := range opts.ConstLabels {
		base[k] = v
	}

	return &MultiGauge{
		fqName: fq,
		help:   opts.Help,
		base:   base,
		c: cache.New(cache.Options{
			Name:     fq,
			TTL:      opts.TTL,
			Producer: opts.Producer,
			Clock:    opts.Clock,
			Logger:   opts.Logger,
			Metrics:  opts.Metrics,
		}),
	}
}

// FQName joins namespace, subsystem and name like prometheus.BuildFQName and
// appends "_<unit>" unless the result already ends with it.
func FQName(namespace, subsystem, name, unit string) string {
	fq := prometheus.BuildFQName(namespace, subsystem, name)
	if unit != "" && !strings.HasSuffix(fq, "_"+unit) {
		fq += "_" + unit
	}
	return fq
}

// FQName returns the exported metric name.
func (g *MultiGauge) FQName() string { return g.fqName }

// Cache returns the cache backing the gauge.
func (g *MultiGauge) Cache() *cache.Cache { return g.c }

// Register replaces the exported row set. Rows absent from sets are no
// longer exported; their cached values are untouched.
//
// It fails, leaving the previous row set in place, on a duplicate row or
// an empty label name.
func (g *MultiGauge) Register(sets ...cache.LabelSet) error {
	seen := make(map[string]struct{}, len(sets))
	for _, ls := range sets {
		if _, ok := ls[""]; ok {
			return fmt.Errorf("multigauge %s: row %s has an empty label name", g.fqName, ls)
		}
		fp := ls.Fingerprint()
		if _, dup := seen[fp]; dup {
			return fmt.Errorf("multigauge %s: duplicate row %s", g.fqName, fp)
		}
		seen[fp] = struct{}{}
	}

	bound := g.c.Bind(sets...)
	rows := make([]exportedRow, 0, len(bound))
	for _, r := range bound {
		rows = append(rows, exportedRow{row: r, desc: g.desc(r.Labels())})
	}

	g.mu.Lock()
	g.rows = rows
	g.mu.Unlock()
	return nil
}

// Rows returns the currently registered rows.
func (g *MultiGauge) Rows() []cache.Row {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]cache.Row, 0, len(g.rows))
	for _, r := range g.rows {
		out = append(out, r.row)
	}
	return out
}

// desc merges base and row labels into a per-row descriptor.
// Invalid label names surface as a collection error, not a panic.
func (g *MultiGauge) desc(row cache.LabelSet) *prometheus.Desc {
	labels := make(prometheus.Labels, len(g.base)+len(row))
	for k, v := range g.base {
		labels[k] = v
	}
	for k, v := range row {
		labels[k] = v
	}
	return prometheus.NewDesc(g.fqName, g.help, nil, labels)
}

// Describe implements prometheus.Collector. It sends nothing, making the
// gauge an unchecked collector whose row set may change after registration.
func (g *MultiGauge) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector. Every row is read through the
// cache; a row whose read triggered a failed refresh is reported as an
// invalid metric while the remaining rows are still exported.
func (g *MultiGauge) Collect(ch chan<- prometheus.Metric) {
	g.mu.RLock()
	rows := g.rows
	g.mu.RUnlock()

	for _, r := range rows {
		v, err := r.row.Read()
		if err != nil {
			ch <- prometheus.NewInvalidMetric(r.desc, err)
			continue
		}
		m, err := prometheus.NewConstMetric(r.desc, prometheus.GaugeValue, v)
		if err != nil {
			m = prometheus.NewInvalidMetric(r.desc, err)
		}
		ch <- m
	}
}

var _ prometheus.Collector = (*MultiGauge)(nil)
