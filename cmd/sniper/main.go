// Package main runs the sniper daemon: token feeds into the shard index,
// chat sessions into the bounded queue, and the extraction/dispatch worker
// pool, with Prometheus metrics on the side.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mintsniper/internal/buy"
	"mintsniper/internal/chat"
	"mintsniper/internal/config"
	"mintsniper/internal/dispatch"
	"mintsniper/internal/domain"
	"mintsniper/internal/extract"
	"mintsniper/internal/feed"
	"mintsniper/internal/logging"
	"mintsniper/internal/observability"
	"mintsniper/internal/pipeline"
	"mintsniper/internal/shardindex"
	"mintsniper/internal/storage"
	chstore "mintsniper/internal/storage/clickhouse"
	"mintsniper/internal/storage/memory"
	"mintsniper/internal/storage/migrations"
	pgstore "mintsniper/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	metrics := observability.NewMetrics("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		select {
		case sig := <-sigCh:
			logger.Error().Str("signal", sig.String()).Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownGrace):
			logger.Error().Msg("shutdown grace period exceeded, forcing exit")
			os.Exit(1)
		}
	}()

	if err := run(ctx, cfg, *useMemory, logger, metrics); err != nil {
		logger.Error().Err(err).Msg("daemon failed")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger, metrics *observability.Metrics) error {
	// Storage.
	var (
		taskStore   storage.TaskStore
		mirrorStore storage.ShardMirrorStore
		eventStore  storage.DispatchEventStore
	)
	if useMemory {
		taskStore = memory.NewTaskStore()
		mirrorStore = memory.NewShardMirrorStore()
		eventStore = memory.NewDispatchEventStore()
		logger.Warn().Msg("using in-memory storage, nothing survives a restart")
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		taskStore = pgstore.NewTaskStore(pool)
		mirrorStore = pgstore.NewShardMirrorStore(pool)

		if cfg.ClickHouse.DSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				return fmt.Errorf("clickhouse: %w", err)
			}
			defer conn.Close()
			eventStore = chstore.NewDispatchEventStore(conn)
		} else {
			logger.Warn().Msg("no clickhouse dsn, dispatch audit trail disabled")
		}
	}

	// Live index, rehydrated from the mirror.
	index := shardindex.New()
	restored, err := index.Rehydrate(ctx, mirrorStore)
	if err != nil {
		return fmt.Errorf("rehydrate index: %w", err)
	}
	logger.Info().Int("addresses", restored).Msg("index rehydrated")
	metrics.IndexSize.Set(float64(index.Size()))

	// Task registry.
	registry := dispatch.NewTaskRegistry(taskStore, logger)
	if err := registry.Reload(ctx); err != nil {
		return fmt.Errorf("load task registry: %w", err)
	}

	// Token feeds.
	feedBackoff := feed.BackoffConfig{Initial: cfg.Feed.BackoffInitial, Max: cfg.Feed.BackoffMax}
	var sources []feed.TokenSource
	if cfg.Feed.PumpStreamURL != "" {
		sources = append(sources, feed.NewPumpStreamSource(cfg.Feed.PumpStreamURL, feedBackoff, logger, metrics))
	}
	if cfg.Feed.RaydiumURL != "" {
		sources = append(sources, feed.NewRaydiumSource(cfg.Feed.RaydiumURL, cfg.Feed.RaydiumToken, feedBackoff, logger, metrics))
	}
	ingestor := feed.NewIngestor(feed.IngestorOptions{
		Index:         index,
		Mirror:        mirrorStore,
		Sources:       sources,
		FlushInterval: cfg.Feed.FlushInterval,
		MaxAge:        cfg.Feed.IndexMaxAge,
		EvictInterval: cfg.Feed.EvictInterval,
		Logger:        logger,
		Metrics:       metrics,
	})

	// Chat sessions.
	queue := chat.NewQueue(cfg.Chat.QueueCapacity)
	var sessions []chat.Session
	for _, sc := range cfg.Chat.Sessions {
		sessions = append(sessions, chat.NewGatewaySession(sc.URL, sc.AuthToken, chat.SessionInfo{
			Platform: domain.Platform(sc.Platform),
			Label:    sc.Label,
		}, logger))
	}
	runner := chat.NewRunner(chat.RunnerOptions{
		Sessions: sessions,
		Queue:    queue,
		Backoff:  chat.Backoff{Initial: cfg.Chat.BackoffInitial, Max: cfg.Chat.BackoffMax},
		Logger:   logger,
		Metrics:  metrics,
	})

	// Extraction.
	var lookup extract.Lookup
	if cfg.Extract.LookupEndpoint != "" {
		lookup = extract.NewHTTPLookup(extract.HTTPLookupConfig{
			Endpoint: cfg.Extract.LookupEndpoint,
			APIKey:   cfg.Extract.LookupAPIKey,
			Model:    cfg.Extract.LookupModel,
			Timeout:  cfg.Extract.LookupTimeout,
		})
	}
	extractor := extract.New(extract.Options{
		Index:            index,
		Lookup:           lookup,
		Blacklist:        cfg.Extract.Blacklist,
		MinLookupLen:     cfg.Extract.MinLookupLen,
		LookupTimeout:    cfg.Extract.LookupTimeout,
		StrictValidation: cfg.Extract.StrictValidation,
		Logger:           logger,
		Metrics:          metrics,
	})

	// Trading gateway.
	var gateway buy.Gateway
	if cfg.Buy.GatewayURL != "" {
		gateway = buy.NewHTTPGateway(buy.HTTPGatewayConfig{
			Endpoint:  cfg.Buy.GatewayURL,
			AuthToken: cfg.Buy.GatewayToken,
			Timeout:   cfg.Buy.Timeout,
		})
	} else {
		logger.Warn().Msg("no buy gateway url, running in dry-run mode")
		gateway = buy.NewLogGateway(logger)
	}

	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherOptions{
		Registry: registry,
		Records:  dispatch.NewRecordSet(cfg.Dispatch.DedupWindow),
		Gateway:  gateway,
		Events:   eventStore,
		Logger:   logger,
		Metrics:  metrics,
	})
	pipe := pipeline.New(pipeline.Options{
		Queue:         queue,
		Extractor:     extractor,
		Dispatcher:    dispatcher,
		Workers:       cfg.Dispatch.Workers,
		SweepInterval: cfg.Dispatch.SweepInterval,
		Logger:        logger,
		Metrics:       metrics,
	})

	// Metrics server.
	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ingestor.Run(ctx) })
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return pipe.Run(ctx) })
	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	logger.Info().
		Int("feeds", len(sources)).
		Int("sessions", len(sessions)).
		Int("workers", cfg.Dispatch.Workers).
		Msg("daemon started")

	return g.Wait()
}
