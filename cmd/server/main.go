// Package main запускает сервис мониторинга лабораторных датчиков.
// Сервис реализует:
// - симуляцию датчиков станций с заданным интервалом опроса
// - детекцию аномалий по границам и скользящему z-score (окно 100, порог 2.5σ)
// - оценку уровня прорыва 0-10 по набору сработавших каналов
// - HTTP API для приема измерений и Prometheus метрики
// - кэширование в Redis, объяснения через LLM, голосовые предупреждения и события в RabbitMQ
package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lab-anomaly-service/internal/alerts"
	"lab-anomaly-service/internal/analytics"
	"lab-anomaly-service/internal/cache"
	"lab-anomaly-service/internal/config"
	"lab-anomaly-service/internal/explain"
	"lab-anomaly-service/internal/handlers"
	"lab-anomaly-service/internal/pipeline"
	"lab-anomaly-service/internal/platform/httpclient"
	"lab-anomaly-service/internal/simulator"
	"lab-anomaly-service/internal/storage"
	"lab-anomaly-service/internal/voice"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	log.Info().
		Str("go", runtime.Version()).
		Int("num_cpu", runtime.NumCPU()).
		Strs("stations", cfg.AllStations()).
		Dur("polling_interval", cfg.PollingInterval).
		Msg("Starting lab anomaly service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Детекторы станций и пул воркеров
	detectorOpts := cfg.DetectorOptions()
	monitor := analytics.NewMonitor(detectorOpts, cfg.BufferSize)
	monitor.Start(cfg.WorkerCount)
	log.Info().Int("workers", cfg.WorkerCount).Msg("Monitor started")

	// Redis кэш; без него сервис работает, но /samples/latest недоступен
	var store cache.Store
	redisCache, err := connectRedis(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis, running without cache")
	} else {
		store = redisCache
		log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	deps := notifierDeps(ctx, cfg, detectorOpts)
	notifier := pipeline.NewNotifier(deps, cfg.BufferSize)
	notifier.Start(context.Background())

	generators := make([]*simulator.Generator, 0, len(cfg.AllStations()))
	for _, id := range cfg.AllStations() {
		generators = append(generators, simulator.NewGenerator(id, cfg.Location,
			simulator.WithProbability(cfg.AnomalyProbability)))
	}
	pipe := pipeline.New(monitor, generators, cfg.PollingInterval, store, notifier)

	pipeDone := make(chan struct{})
	go func() {
		pipe.Run(ctx)
		close(pipeDone)
	}()

	// HTTP API
	handler := handlers.NewHandler(monitor, store, pipe)
	router := handlers.NewRouter(handler)

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	router.Use(loggingMiddleware)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddr).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	cancel()
	<-pipeDone
	monitor.Stop()
	notifier.Stop()

	if err := deps.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Alert publisher close error")
	}
	if redisCache != nil {
		redisCache.Close()
	}

	log.Info().Msg("Server stopped")
}

// setupLogging настраивает глобальный логгер
func setupLogging(level, format string) {
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(lvl)
}

// connectRedis подключается к Redis с экспоненциальными повторами
func connectRedis(ctx context.Context, cfg *config.Config) (*cache.RedisCache, error) {
	var redisCache *cache.RedisCache
	attempt := 0

	operation := func() error {
		attempt++
		c, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("Redis connection attempt failed")
			return err
		}
		redisCache = c
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return redisCache, nil
}

// notifierDeps собирает внешние сервисы; не настроенные остаются nil
func notifierDeps(ctx context.Context, cfg *config.Config, opts analytics.Options) pipeline.NotifierDeps {
	deps := pipeline.NotifierDeps{Thresholds: opts.Thresholds}

	var gen explain.Generator
	if cfg.EnableExplainer && cfg.OpenAIAPIKey != "" {
		gen = explain.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	} else {
		log.Info().Msg("Explainer disabled, using fallback templates")
	}
	deps.Explainer = explain.NewService(gen, cfg.ExplainerTimeout)

	if cfg.EnableVoice && cfg.MiniMaxAPIKey != "" {
		client := httpclient.New(httpclient.Options{Timeout: 30 * time.Second, RequestsPerSec: 2})
		deps.Speaker = voice.NewClient(cfg.MiniMaxAPIKey, cfg.MiniMaxURL, cfg.VoiceDir, true, client)
	}

	if cfg.S3Endpoint != "" {
		archive, err := storage.NewArchive(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err == nil {
			err = archive.EnsureBucket(ctx)
		}
		if err != nil {
			log.Warn().Err(err).Msg("Voice archive unavailable")
		} else {
			deps.Archive = archive
		}
	}

	if cfg.AMQPURL != "" {
		publisher, err := alerts.DialRabbit(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, alerts go to the log")
		} else {
			deps.Publisher = publisher
		}
	}
	if deps.Publisher == nil {
		deps.Publisher = alerts.NewLogPublisher()
	}
	return deps
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("duration", time.Since(start)).Msg("HTTP request")
	})
}
