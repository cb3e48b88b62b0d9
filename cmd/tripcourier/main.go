package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/internal/httpapi"
	"github.com/tripcourier/tripcourier/internal/observability"
	"github.com/tripcourier/tripcourier/internal/orchestrator"
	"github.com/tripcourier/tripcourier/internal/providers"
	"github.com/tripcourier/tripcourier/pkg/config"
	"github.com/tripcourier/tripcourier/pkg/contextstore"
	"github.com/tripcourier/tripcourier/pkg/llm"
	"github.com/tripcourier/tripcourier/pkg/ratelimit"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// Version is set via ldflags.
var Version = "dev"

var (
	configFile = flag.String("config", getEnv("CONFIG_FILE", ""), "Configuration file (YAML)")
	addr       = flag.String("addr", "", "Listen address, overrides config")
	logLevel   = flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level")
)

func main() {
	flag.Parse()

	// Optional; real deployments set variables directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("tripcourier exited")
	}
}

func run(log *logrus.Logger) error {
	log.WithField("version", Version).Info("starting tripcourier")

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("trace exporter shutdown failed")
		}
	}()

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("build context store: %w", err)
	}
	defer store.Close()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build model provider: %w", err)
	}

	catalog, err := buildCatalog(cfg, log)
	if err != nil {
		return fmt.Errorf("build search catalog: %w", err)
	}
	registry, err := providers.BuildRegistry(catalog)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	metrics := observability.NewMetrics()
	invoker := tools.NewInvoker(
		registry,
		ratelimit.NewTimeoutManager(cfg.Orchestrator.ToolTimeout),
		tools.WithObserver(metrics),
		tools.WithLogger(log),
	)

	orch := orchestrator.New(store, provider, invoker, orchestrator.Config{
		MaxIterations: cfg.Orchestrator.MaxIterations,
		MaxTokens:     cfg.Model.MaxTokens,
		Temperature:   cfg.Model.Temperature,
		RetryAttempts: cfg.Orchestrator.RetryAttempts,
		ModelTimeout:  cfg.Orchestrator.ModelTimeout,
	}, orchestrator.WithLogger(log), orchestrator.WithObserver(metrics))

	health := observability.NewHealthChecker()
	health.Register(observability.HealthCheck{
		Name: "context-store",
		Check: func(ctx context.Context) error {
			_, err := store.Get(ctx, "healthz-probe")
			return err
		},
	})

	api := httpapi.New(httpapi.Options{
		Orchestrator: orch,
		Invoker:      invoker,
		Limiter:      ratelimit.NewLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		Health:       health,
		Logger:       log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("turn API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (contextstore.Store, error) {
	limits := contextstore.Limits{
		MaxHistoryTurns:  cfg.Store.MaxHistoryTurns,
		MaxSearchRecords: cfg.Store.MaxSearchRecords,
		MaxLogTurns:      cfg.Store.MaxLogTurns,
	}

	switch cfg.Store.Backend {
	case "memory":
		log.Info("using in-memory context store")
		return contextstore.NewMemoryStore(contextstore.MemoryConfig{
			Limits: limits,
			MaxAge: cfg.Store.SessionTTL,
		}), nil
	case "redis":
		log.WithField("addr", cfg.Store.Redis.Addr).Info("using redis context store")
		return contextstore.NewRedisStore(contextstore.RedisConfig{
			Addr:       cfg.Store.Redis.Addr,
			Password:   cfg.Store.Redis.Password,
			DB:         cfg.Store.Redis.DB,
			PoolSize:   cfg.Store.Redis.PoolSize,
			SessionTTL: cfg.Store.SessionTTL,
			Limits:     limits,
		})
	case "firestore":
		log.WithField("project", cfg.Store.Firestore.Project).Info("using firestore context store")
		return contextstore.NewFirestoreStore(ctx, contextstore.FirestoreConfig{
			ProjectID:  cfg.Store.Firestore.Project,
			Collection: cfg.Store.Firestore.Collection,
			Limits:     limits,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.Model.Provider {
	case "openai":
		return llm.NewOpenAIProvider(cfg.Model.OpenAIKey, cfg.Model.OpenAIModel)
	case "sagemaker":
		return llm.NewSageMakerProvider(ctx, cfg.Model.SageMakerEndpoint, cfg.Model.AWSRegion)
	case "mock":
		return llm.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildCatalog(cfg *config.Config, log *logrus.Logger) (*providers.Catalog, error) {
	if cfg.Gateway.BaseURL == "" {
		log.Info("no search gateway configured, serving bundled datasets")
		return providers.NewTieredCatalog(nil, log), nil
	}
	primary, err := providers.NewHTTPProvider(providers.HTTPConfig{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	return providers.NewTieredCatalog(primary, log), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
