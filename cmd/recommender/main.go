// Command recommender serves title recommendations over HTTP.
//
// It loads the catalog (CSV export or Postgres), builds the TF-IDF model,
// and answers GET /api/v1/recommendations. Results are cached in Redis when
// enabled; query events flow through Kafka to the analytics aggregator when
// Kafka is enabled, and a catalog-updated message triggers a rebuild.
//
// Usage:
//
//	go run ./cmd/recommender [-config configs/recommender.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/api/cache"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/api/handler"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/model"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/vectorizer"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/refresh"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/recommender.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting recommender service",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
		"min_df", cfg.Model.MinDF,
		"max_features", cfg.Model.MaxFeatures,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}
	checker := health.NewChecker()

	var pg *postgres.Client
	if cfg.Catalog.Source == "postgres" || cfg.Analytics.SnapshotInterval > 0 {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		checker.Register("postgres", health.Ping(pg.Ping, cfg.Catalog.Source != "postgres"))
	}

	var source catalog.Source
	switch cfg.Catalog.Source {
	case "postgres":
		source = catalog.NewPostgresSource(pg.DB)
	default:
		source = catalog.NewCSVSource(cfg.Catalog.Path, cfg.Catalog.Column)
	}

	builder, err := model.NewBuilder(model.BuilderConfig{
		Options: vectorizer.Options{
			MinDF:       cfg.Model.MinDF,
			MaxFeatures: cfg.Model.MaxFeatures,
			NgramMin:    cfg.Model.NgramMin,
			NgramMax:    cfg.Model.NgramMax,
		},
		CacheSize: cfg.Model.CacheSize,
		Tracing:   cfg.Tracing.Enabled,
		Metrics:   m,
	})
	if err != nil {
		slog.Error("invalid model configuration", "error", err)
		os.Exit(1)
	}
	store := model.NewStore(builder, m)
	refresher := refresh.New(source, store, cfg.Catalog)
	checker.Register("model", health.Ping(func(context.Context) error {
		_, err := store.Snapshot()
		return err
	}, false))

	var resultCache *cache.ResultCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			resultCache = cache.New(cache.NewRedisBackend(redisClient), cfg.Redis.CacheTTL, breaker, m)
			checker.Register("redis", health.Ping(redisClient.Ping, true))
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.BatchPublisher = aggregator
	var catalogNotifier ingestion.Notifier = ingestion.NotifierFunc(func(_ context.Context, ev refresh.CatalogUpdated) error {
		go func() {
			if _, err := refresher.Reload(ctx); err != nil {
				slog.Error("reload after catalog update failed", "reason", ev.Reason, "error", err)
			}
		}()
		return nil
	})
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer

		catalogProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogUpdated)
		defer catalogProducer.Close()
		catalogNotifier = ingestion.KafkaNotifier(catalogProducer)

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.Handler())
		catalogConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogUpdated, refresher.Handler())
		for _, c := range []*kafka.Consumer{analyticsConsumer, catalogConsumer} {
			go func() {
				if err := c.Start(ctx); err != nil {
					slog.Error("kafka consumer error", "error", err)
				}
			}()
		}
		slog.Info("kafka enabled",
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"catalog_topic", cfg.Kafka.Topics.CatalogUpdated,
		)
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize, cfg.Analytics.FlushInterval)
	collector.Start(ctx)
	defer collector.Close()

	var statsStore *analytics.Store
	if pg != nil && cfg.Analytics.SnapshotInterval > 0 {
		statsStore = analytics.NewStore(pg.DB)
		go statsStore.RunPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	refresher.OnReload(func(_ context.Context, res *refresh.Result) {
		collector.Track(analytics.RebuildEvent(res.Model.Key, res.Model.Items, res.Snapshot.BuildDuration, !res.Changed))
	})
	go func() {
		res, err := refresher.Reload(ctx)
		if err != nil {
			slog.Error("initial model build failed", "error", err)
			return
		}
		slog.Info("model ready",
			"items", res.Model.Items,
			"vocabulary", res.Model.VocabularySize,
			"took_ms", res.TookMs,
		)
	}()

	h := handler.New(handler.Deps{
		Models:   store,
		Reloader: refresher,
		Cache:    resultCache,
		Tracker:  collector,
		Metrics:  m,
		Limits:   cfg.Recommend,
	})
	analyticsH := analytics.NewHandler(aggregator, statsStore)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsH.History)
	if cfg.Catalog.Source == "postgres" {
		ingest := ingestion.NewHandler(ingestion.NewPublisher(pg.DB, catalogNotifier))
		mux.HandleFunc("POST /api/v1/catalog/titles", ingest.AddTitles)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = append(chain, middleware.CORS(cfg.Server.CORSOrigins))
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
		go limiter.RunCleanup(ctx)
		chain = append(chain, middleware.RateLimit(limiter))
	}
	chain = append(chain, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("recommender service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("recommender service stopped")
}
