package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/carcare-engine/internal/config"
	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/handler"
	"github.com/boddenberg/carcare-engine/internal/infra/cache"
	"github.com/boddenberg/carcare-engine/internal/infra/client"
	"github.com/boddenberg/carcare-engine/internal/infra/events"
	"github.com/boddenberg/carcare-engine/internal/infra/memory"
	"github.com/boddenberg/carcare-engine/internal/infra/observability"
	"github.com/boddenberg/carcare-engine/internal/infra/postgres"
	"github.com/boddenberg/carcare-engine/internal/infra/resilience"
	"github.com/boddenberg/carcare-engine/internal/infra/supabase"
	"github.com/boddenberg/carcare-engine/internal/port"
	"github.com/boddenberg/carcare-engine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.ServiceName)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("nats", cfg.NATSURL != ""),
		zap.Bool("telematics", cfg.TelematicsURL != ""),
		zap.Bool("require_entitlement_token", cfg.RequireEntitlementToken),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("vehicle_cache_ttl", cfg.VehicleCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	policy, err := cfg.Policy()
	if err != nil {
		logger.Fatal("invalid engine policy", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// --- Store ---
	store, closeStore, err := openStore(cfg, httpClient, resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	// --- Events ---
	var publisher port.EventPublisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, cfg.ServiceName, logger)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer nc.Drain()
		publisher = events.NewPublisher(nc, logger)
		logger.Info("publishing events to nats", zap.String("url", nc.ConnectedUrlRedacted()))
	} else {
		logger.Warn("NATS_URL not set, domain events are discarded")
	}

	// --- Odometer source ---
	var odometer port.OdometerSource
	if cfg.TelematicsURL != "" {
		odometer = client.NewOdometerClient(httpClient, cfg.TelematicsURL, cfg.TelematicsToken,
			resilience.NewCircuitBreaker("telematics"), resilienceCfg)
	} else {
		logger.Warn("TELEMATICS_API_URL not set, odometer sync unavailable")
	}

	// --- Cache ---
	vehicleCache := cache.New[*domain.Vehicle](cfg.VehicleCacheTTL)
	defer vehicleCache.Stop()
	notifiedCache := cache.New[bool](cfg.NotifiedCacheTTL)
	defer notifiedCache.Stop()

	// --- Services ---
	svc, err := service.NewMaintenance(service.Deps{
		Store:            store,
		Policy:           policy,
		Vehicles:         vehicleCache,
		Notified:         notifiedCache,
		Publisher:        publisher,
		Odometer:         odometer,
		DefaultLaborRate: cfg.Engine.DefaultLaborRate,
		QuoteWorkers:     cfg.Engine.QuoteWorkers,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("failed to build maintenance service", zap.Error(err))
	}
	tokens := service.NewEntitlementTokens(cfg.JWTSecret, cfg.JWTIssuer)

	// --- Router ---
	router := handler.NewRouter(svc, tokens, handler.RouterConfig{
		RequireEntitlementToken: cfg.RequireEntitlementToken,
		RateLimitRPS:            cfg.RateLimitRPS,
		RateLimitBurst:          cfg.RateLimitBurst,
		CORSOrigin:              cfg.CORSOrigin,
		RequestTimeout:          cfg.RequestTimeout,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      otelhttp.NewHandler(router, cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore builds the configured persistence backend. The returned func
// releases its resources.
func openStore(cfg *config.Config, httpClient *http.Client, rc resilience.Config, logger *zap.Logger) (port.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		c := supabase.NewClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"), rc, logger)
		return c, func() {}, nil

	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		if cfg.RunMigrations {
			m := postgres.NewMigrator(stdlib.OpenDBFromPool(pool))
			err := m.Up()
			m.Close()
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		logger.Info("using Postgres as data backend")
		return postgres.NewStore(pool), pool.Close, nil

	default:
		logger.Warn("using in-memory store, data is lost on restart")
		s := memory.NewStore()
		seedDemo(s, time.Now().UTC())
		return s, func() {}, nil
	}
}
