package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-voice-agent/internal/api/router"
	"github.com/wolfman30/clinic-voice-agent/internal/callflow"
	"github.com/wolfman30/clinic-voice-agent/internal/clinic"
	appconfig "github.com/wolfman30/clinic-voice-agent/internal/config"
	"github.com/wolfman30/clinic-voice-agent/internal/http/handlers"
	"github.com/wolfman30/clinic-voice-agent/internal/nlu"
	"github.com/wolfman30/clinic-voice-agent/internal/observability/metrics"
	"github.com/wolfman30/clinic-voice-agent/internal/scheduling"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic voice agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	dir, err := loadDirectory(cfg)
	if err != nil {
		logger.Error("failed to load clinic data", "error", err)
		os.Exit(1)
	}
	logger.Info("clinic data loaded",
		"clinic", dir.Name,
		"locations", len(dir.Locations),
		"doctors", len(dir.Doctors),
	)

	llm, closeLLM, err := buildLLMClient(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	if closeLLM != nil {
		defer closeLLM()
	}

	callStore, closeStore, err := buildCallStore(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize call state store", "error", err)
		os.Exit(1)
	}
	if closeStore != nil {
		defer closeStore()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	callMetrics := metrics.NewCallMetrics(registry)

	resolver := scheduling.NewResolver(dir, scheduling.NewStore(), logger)
	extractor := nlu.NewExtractor(llm, llmModelID(cfg), dir, cfg.NLUTimeout, logger)
	engine := callflow.NewEngine(callflow.EngineConfig{
		Store:        callStore,
		Resolver:     resolver,
		Extractor:    extractor,
		Directory:    dir,
		Metrics:      callMetrics,
		Logger:       logger,
		ClinicName:   cfg.ClinicName,
		MaxRetries:   cfg.MaxRetries,
		SearchWindow: time.Duration(cfg.SearchWindowDays) * 24 * time.Hour,
		OfferLimit:   cfg.SlotOfferLimit,
	})

	r := router.New(&router.Config{
		Logger:            logger,
		VoiceWebhook:      handlers.NewVoiceWebhookHandler(engine, logger),
		AdminAppointments: handlers.NewAdminAppointmentsHandler(resolver, dir, logger),
		AdminAuthSecret:   cfg.AdminJWTSecret,
		MetricsHandler:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadDirectory(cfg *appconfig.Config) (*clinic.Directory, error) {
	if cfg.ClinicDataFile == "" {
		return clinic.Default(), nil
	}
	return clinic.Load(cfg.ClinicDataFile)
}

// buildLLMClient wires the configured extraction backend. With provider
// "none" the engine runs on the keyword fallback alone.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (nlu.LLMClient, func(), error) {
	switch cfg.LLMProvider {
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, err
		}
		return nlu.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg)), nil, nil
	case "gemini":
		client, err := nlu.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	default:
		logger.Warn("no LLM provider configured, extraction uses keyword matching only")
		return nil, nil, nil
	}
}

func llmModelID(cfg *appconfig.Config) string {
	switch cfg.LLMProvider {
	case "bedrock":
		return cfg.BedrockModelID
	case "gemini":
		return cfg.GeminiModelID
	default:
		return ""
	}
}

func buildCallStore(cfg *appconfig.Config, logger *logging.Logger) (callflow.CallStateStore, func(), error) {
	switch cfg.CallStateBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		logger.Info("call state store ready", "backend", "redis", "addr", cfg.RedisAddr)
		return callflow.NewRedisStore(rdb, cfg.CallStateTTL), func() { _ = rdb.Close() }, nil
	default:
		logger.Info("call state store ready", "backend", "memory")
		store := callflow.NewMemoryStore(cfg.CallStateTTL)
		return store, store.Close, nil
	}
}
