package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/vendingsearch/config"
	"sjsage522/vendingsearch/helpers"
	"sjsage522/vendingsearch/internal/crawler"
	"sjsage522/vendingsearch/internal/server"
	"sjsage522/vendingsearch/logger"
	"sjsage522/vendingsearch/services/cache"
	"sjsage522/vendingsearch/services/publisher"
	"sjsage522/vendingsearch/services/worker"

	"github.com/joho/godotenv"
)

// rateLimitCacheKey flags that the origin asked us to back off
const rateLimitCacheKey = "vending_rate_limited"

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("base_url", cfg.BaseURL).
		Int("max_pages", cfg.MaxPages).
		Int("max_stores", cfg.MaxStores).
		Dur("request_delay", cfg.RequestDelay).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services := initializeServices(ctx, &cfg)
	defer services.Cleanup()

	searcher := crawler.NewSearcher(crawler.CrawlerConfig{
		BaseURL:   cfg.BaseURL,
		CacheKey:  rateLimitCacheKey,
		BlockTime: cfg.RateLimitBlock,
	}, helpers.NewHTTPFetcher(cfg.FetchTimeout), services.Cache)

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.NewRouter(searcher, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Budget:         cfg.Budget(),
			SearchTimeout:  cfg.SearchTimeout,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	// Watch mode repeats configured searches and publishes their results
	workerDone := make(chan error, 1)
	if len(cfg.WatchQueries) > 0 {
		w := worker.NewWorker(
			ctx,
			searcher,
			services.Publisher,
			cfg.WatchQueries,
			cfg.Budget(),
			cfg.WatchInterval,
			cfg.SearchTimeout,
		)
		go func() {
			log.Info().Strs("queries", cfg.WatchQueries).Dur("interval", cfg.WatchInterval).Msg("Starting watch worker")
			workerDone <- w.Start()
		}()
	}

	// Wait for shutdown signal, server failure or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	case err := <-workerDone:
		if err != nil {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}
	cancel()

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.SearchTimeout+5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices picks memcache and redis when configured, in-process fallbacks otherwise
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s is not answering yet: %v", cfg.MemcacheAddr, err)
		}
		services.Cache = memcacheService
		logger.Info("Using Memcache at %s", cfg.MemcacheAddr)
	} else {
		services.Cache = cache.NewMemoryCache()
		logger.Info("Using in-process cache")
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s is not answering yet: %v", cfg.RedisAddr, err)
		}
		services.Publisher = redisPublisher
		logger.Info("Publishing to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.NopPublisher{}
		if len(cfg.WatchQueries) > 0 {
			logger.Warn("WATCH_QUERIES is set but REDIS_ADDR is empty, results will not be published")
		}
	}

	return services
}
