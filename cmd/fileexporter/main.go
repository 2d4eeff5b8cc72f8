// Command fileexporter serves gauge families whose values come from YAML
// value files. Each family re-reads its file at most once per TTL, however
// often and however concurrently it is scraped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/IvanBrykalov/cachinggauge/internal/config"
	"github.com/IvanBrykalov/cachinggauge/internal/source"
	zaplog "github.com/IvanBrykalov/cachinggauge/log/zap"
	pmet "github.com/IvanBrykalov/cachinggauge/metrics/prom"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath = flag.String("config", "fileexporter.yaml", "path to the YAML configuration")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*configPath, logger); err != nil {
		logger.Fatal("exporter stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func run(configPath string, logger *zap.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := registerFamilies(reg, cfg.Families, logger); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      reg,
	}))
	srv := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving metrics", zap.String("addr", cfg.Listen), zap.String("path", cfg.MetricsPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// registerFamilies builds one MultiGauge per family, each with its own
// cache, plus a refresh-metrics adapter labelled with the family name.
func registerFamilies(reg prometheus.Registerer, families []config.Family, logger *zap.Logger) error {
	seen := make(map[string]struct{}, len(families))
	for _, f := range families {
		name := pmet.FQName(f.Namespace, f.Subsystem, f.Name, f.Unit)
		if _, dup := seen[name]; dup {
			return fmt.Errorf("family %s registered twice", name)
		}
		seen[name] = struct{}{}

		rows, err := familyRows(f)
		if err != nil {
			return err
		}

		g := pmet.NewMultiGauge(pmet.MultiGaugeOpts{
			Namespace:   f.Namespace,
			Subsystem:   f.Subsystem,
			Name:        f.Name,
			Unit:        f.Unit,
			Help:        f.Help,
			ConstLabels: f.Labels,
			TTL:         f.TTL,
			Producer:    source.Producer(f.Source),
			Logger:      zaplog.ZapLogger{L: logger.With(zap.String("source", f.Source))},
			Metrics:     pmet.New(reg, "cachinggauge", "cache", prometheus.Labels{"family": name}),
		})
		if err := g.Register(rows...); err != nil {
			return err
		}
		if err := reg.Register(g); err != nil {
			return err
		}
		logger.Info("registered family",
			zap.String("name", g.FQName()),
			zap.Int("rows", len(rows)),
			zap.Duration("ttl", f.TTL))
	}
	return nil
}

// familyRows returns the configured rows, or the rows found in the source
// file when none are configured.
func familyRows(f config.Family) ([]cache.LabelSet, error) {
	if len(f.Rows) > 0 {
		rows := make([]cache.LabelSet, 0, len(f.Rows))
		for _, r := range f.Rows {
			rows = append(rows, cache.LabelSet(r))
		}
		return rows, nil
	}
	samples, err := source.Load(f.Source)
	if err != nil {
		return nil, err
	}
	return source.LabelSets(samples), nil
}
