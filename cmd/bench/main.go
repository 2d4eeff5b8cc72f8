// Command bench polls a MultiGauge from many goroutines with a slow producer
// and reports how many reads were served per producer invocation. It
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	zaplog "github.com/IvanBrykalov/cachinggauge/log/zap"
	pmet "github.com/IvanBrykalov/cachinggauge/metrics/prom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// ---- Flags ----
	var (
		rowsN   = flag.Int("rows", 1_000, "number of exported rows")
		ttl     = flag.Duration("ttl", 100*time.Millisecond, "cache TTL")
		latency = flag.Duration("latency", 5*time.Millisecond, "simulated producer latency")
		failPct = flag.Int("fail", 0, "producer failure percentage [0..100]")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of polling goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			logger.Info("pprof: serving", zap.String("addr", *pprofAddr))
			logger.Warn("pprof stopped", zap.Error(http.ListenAndServe(*pprofAddr, nil)))
		}()
	}

	if *rowsN <= 0 {
		*rowsN = 1
	}

	// ---- Build gauge ----
	sets := make([]cache.LabelSet, *rowsN)
	for i := range sets {
		sets[i] = cache.Labels("row", strconv.Itoa(i))
	}

	var invocations atomic.Uint64
	rng := rand.New(rand.NewSource(*seed)) // only used by the producer, under the cache lock
	failPctVal := *failPct
	latencyVal := *latency

	reg := prometheus.NewRegistry()
	g := pmet.NewMultiGauge(pmet.MultiGaugeOpts{
		Namespace: "cachinggauge",
		Subsystem: "bench",
		Name:      "row_value",
		Help:      "Synthetic row values.",
		TTL:       *ttl,
		Logger:    zaplog.ZapLogger{L: logger},
		Metrics:   pmet.New(reg, "cachinggauge", "bench_cache", nil),
		Producer: func(ops cache.Operations) error {
			n := invocations.Add(1)
			time.Sleep(latencyVal) // simulate an expensive downstream query
			if int(rng.Int31n(100)) < failPctVal {
				return fmt.Errorf("synthetic failure #%d", n)
			}
			ops.Clear()
			for _, ls := range sets {
				ops.Update(ls, float64(n))
			}
			return nil
		},
	})
	if err := g.Register(sets...); err != nil {
		logger.Fatal("register rows", zap.Error(err))
	}
	reg.MustRegister(g)

	// ---- Prometheus metrics ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}))
	go func() {
		logger.Info("metrics: serving", zap.String("addr", *metricsAddr))
		logger.Warn("metrics stopped", zap.Error(http.ListenAndServe(*metricsAddr, mux)))
	}()

	// ---- Load generation ----
	rows := g.Rows()
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}
	var reads, failures uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()
			for i := id; ; i += workersN {
				select {
				case <-ctx.Done():
					return
				default:
				}
				atomic.AddUint64(&reads, 1)
				if _, err := rows[i%len(rows)].Read(); err != nil {
					atomic.AddUint64(&failures, 1)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	readsN := atomic.LoadUint64(&reads)
	inv := invocations.Load()
	perRefresh := 0.0
	if inv > 0 {
		perRefresh = float64(readsN) / float64(inv)
	}

	maxByTTL := "unbounded"
	if *ttl > 0 {
		maxByTTL = strconv.FormatInt(int64(elapsed / *ttl) + 1, 10)
	}

	fmt.Printf("rows=%d ttl=%v latency=%v workers=%d dur=%v seed=%d\n",
		*rowsN, *ttl, latencyVal, workersN, elapsed, *seed)
	fmt.Printf("reads=%d (%.0f reads/s)  failed=%d\n",
		readsN, float64(readsN)/elapsed.Seconds(), atomic.LoadUint64(&failures))
	fmt.Printf("producer invocations=%d (max by ttl=%s)  reads/refresh=%.1f\n",
		inv, maxByTTL, perRefresh)
}
