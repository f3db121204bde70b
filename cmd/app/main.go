// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classroom-ai-platform/internal/config"
	"classroom-ai-platform/internal/domain/ports/adapter"
	aiAdapters "classroom-ai-platform/internal/infra/adapters/ai"
	pg "classroom-ai-platform/internal/infra/db/postgres"
	"classroom-ai-platform/internal/infra/limiter"
	"classroom-ai-platform/internal/infra/logging"
	"classroom-ai-platform/internal/infra/metrics"
	red "classroom-ai-platform/internal/infra/redis"
	"classroom-ai-platform/internal/infra/sched"
	"classroom-ai-platform/internal/infra/security"
	"classroom-ai-platform/internal/infra/web"
	"classroom-ai-platform/internal/infra/worker"
	"classroom-ai-platform/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	var encSvc *security.EncryptionService
	if len(encKey) == 32 {
		encSvc, err = security.NewEncryptionService(encKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption init failed")
		}
	} else if !cfg.Runtime.Dev {
		logger.Fatal().Msg("security.encryption_key must be 32 bytes outside dev mode")
	} else {
		logger.Warn().Msg("payload encryption disabled (dev mode, no key)")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewAIJobRepo(pool, tm, encSvc)
	sessionRepo := pg.NewSessionRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	workItemRepo := pg.NewWorkItemRepo(pool)

	// ---- Admission control ----
	admission := limiter.NewAdmission(cfg.Queue.MaxConcurrent, cfg.Queue.RateLimit, cfg.Queue.RateWindow)

	// ---- Use cases ----
	queueUC := usecase.NewQueueUseCase(jobRepo, admission)
	authUC := usecase.NewAuthUseCase(sessionRepo, userRepo, sessionCache, cfg.Session.TTL)
	archiveUC := usecase.NewArchiveUseCase(workItemRepo)

	// ---- AI provider ----
	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("ai provider init failed")
	}
	provider = aiAdapters.NewLimitedProvider(provider, cfg.AI.ConcurrentLimit)
	logger.Info().Str("provider", provider.Name()).Str("model", cfg.AI.DefaultModel).Msg("ai provider ready")

	// ---- Dispatcher + worker pool ----
	workerPool := worker.NewPool(cfg.Queue.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()
	dispatcher := worker.NewDispatcher(jobRepo, provider, admission,
		cfg.Queue.TickInterval, cfg.Queue.MaxRetries, cfg.AI.DefaultModel, logger)
	go dispatcher.Start(ctx, workerPool)

	// ---- Archive worker ----
	archiveWorker := sched.NewArchiveWorker(cfg.Cron.ArchiveInterval, archiveUC, logger)
	go func() { _ = archiveWorker.Run(ctx) }()

	// ---- HTTP server ----
	cookies := web.NewCookieManager(cfg.Session.CookieSecret, cfg.Session.SecureCookie, cfg.Session.CookieDomain, cfg.Session.TTL)
	checks := []web.HealthCheck{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "redis", Ping: redisClient.Ping},
	}
	srv := web.NewServer(queueUC, authUC, archiveUC, cookies, rateLimiter, checks, cfg.Cron.Secret, cfg.Runtime.Dev, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}

// buildProvider picks the provider from config. "multi" routes by model
// name across every provider that has a key.
func buildProvider(ctx context.Context, cfg *config.Config) (adapter.AIProvider, error) {
	newOpenAI := func() (adapter.AIProvider, error) {
		return aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
	}
	newGemini := func() (adapter.AIProvider, error) {
		return aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.DefaultModel, cfg.AI.MaxOutputTokens)
	}

	switch cfg.AI.Provider {
	case "openai":
		return newOpenAI()
	case "gemini":
		return newGemini()
	case "noop":
		return aiAdapters.NewNoopProvider(), nil
	case "multi":
		byProvider := map[string]adapter.AIProvider{}
		if cfg.AI.OpenAIKey != "" {
			p, err := newOpenAI()
			if err != nil {
				return nil, err
			}
			byProvider["openai"] = p
		}
		if cfg.AI.GeminiKey != "" {
			p, err := newGemini()
			if err != nil {
				return nil, err
			}
			byProvider["gemini"] = p
		}
		if len(byProvider) == 0 {
			return nil, errors.New("ai.provider=multi needs at least one provider key")
		}
		return aiAdapters.NewMultiProvider("openai", byProvider, nil), nil
	}
	return nil, fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
}
