package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/api"
	"github.com/troopbase/troopbase/pkg/config"
	"github.com/troopbase/troopbase/pkg/groups"
	"github.com/troopbase/troopbase/pkg/observability"
	"github.com/troopbase/troopbase/pkg/session"
	"github.com/troopbase/troopbase/pkg/teams"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "troopbased: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.ParseLevel(cfg.Observability.LogLevel), os.Stdout)
	logger.WithField("version", version).Info("Starting troopbased")

	// Re-apply the log level when the config file changes.
	if path := os.Getenv("TROOP_CONFIG_FILE"); path != "" {
		watcher, err := config.Watch(path, logger)
		if err != nil {
			logger.WithError(err).Warn("Config watch disabled")
		} else {
			defer watcher.Close()
		}
	}

	// Postgres holds teams, groups, and grants.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("Connected to Postgres")

	// Redis backs sessions and the shared rate limiter. Startup does not
	// require it; losing it only degrades the service.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable at startup, sessions and shared rate limits degraded")
	} else {
		logger.Info("Connected to Redis")
	}

	var metrics *observability.Metrics
	promRegistry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	otelProviders, err := observability.InitOTel(context.Background(), observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := teams.NewPostgresRegistry(db)
	grantStore := groups.NewPostgresStore(db)
	sessions := session.NewRedisStore(redisClient, cfg.Session.TTL)

	var recorder access.DecisionRecorder
	if metrics != nil {
		recorder = metrics
	}
	engine := access.NewEngine(teams.AsAccessRegistry(registry), grantStore, logger, recorder)

	sweeper, err := teams.StartInvitationSweeper(registry, logger, cfg.Invitations.SweepSchedule)
	if err != nil {
		return fmt.Errorf("failed to start invitation sweeper: %w", err)
	}

	server := api.NewServer(api.Options{
		Logger:               logger,
		Engine:               engine,
		Teams:                registry,
		Groups:               grantStore,
		Sessions:             sessions,
		Metrics:              metrics,
		Redis:                redisClient,
		DistributedRateLimit: cfg.RateLimit.Distributed,
		Tracing:              cfg.Observability.OTelEnabled,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on their own port so probes bypass the
	// middleware chain and its rate limits.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	if metrics != nil {
		go pollDBStats(db, metrics)
	}

	go func() {
		logger.Infof("Health and metrics listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		logger.Infof("API listening on :%s", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.Register("health server", healthServer.Shutdown)
	shutdown.Register("invitation sweeper", func(ctx context.Context) error {
		stopCtx := sweeper.Stop()
		select {
		case <-stopCtx.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	shutdown.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})
	shutdown.Register("postgres", func(ctx context.Context) error {
		return db.Close()
	})
	if otelProviders != nil {
		shutdown.Register("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	return shutdown.WaitForShutdown()
}

// pollDBStats copies connection pool stats into the gauges every 15 seconds
func pollDBStats(db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		metrics.UpdateDBStats(db.Stats())
	}
}
