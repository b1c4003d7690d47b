package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/tagtalk/tagtalk/internal/classifier"
	"github.com/tagtalk/tagtalk/internal/command"
	"github.com/tagtalk/tagtalk/internal/config"
	"github.com/tagtalk/tagtalk/internal/conversation"
	"github.com/tagtalk/tagtalk/internal/events"
	"github.com/tagtalk/tagtalk/internal/handlers"
	"github.com/tagtalk/tagtalk/internal/logger"
	"github.com/tagtalk/tagtalk/internal/middleware"
	"github.com/tagtalk/tagtalk/internal/tagcache"
	"github.com/tagtalk/tagtalk/internal/telemetry"
	"github.com/tagtalk/tagtalk/internal/upstream"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "tagtalk"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("upstream_url", cfg.UpstreamURL),
		zap.String("classifier", cfg.Classifier),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing, optional
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	// Redis is optional: with it the tag cache and rate limits are shared
	// across instances, without it everything runs in-process.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	var cache tagcache.Cache
	if redisClient != nil {
		cache = tagcache.NewRedisCache(redisClient, cfg.CacheTTL, zapLogger)
	} else {
		cache = tagcache.NewMemoryCache(tagcache.WithTTL(cfg.CacheTTL))
	}

	// RabbitMQ is optional; without it command events are simply not emitted
	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = events.NewPublisher(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Warn("failed_to_connect_to_rabbitmq_events_disabled", zap.Error(err))
		} else {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := publisher.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
		}
	}

	upstreamClient := upstream.NewClient(cfg.UpstreamURL,
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		upstream.WithRetrier(upstream.NewRetrier(upstream.WithRetryLogger(zapLogger))),
	)

	cls := buildClassifier(cfg, zapLogger)
	tracker := conversation.NewTracker()

	var orchOpts []command.OrchestratorOption
	if publisher != nil {
		orchOpts = append(orchOpts, command.WithEventPublisher(publisher))
	}
	orchestrator := command.NewOrchestrator(cls, tracker, cache, upstreamClient, zapLogger, orchOpts...)

	commandHandler := handlers.NewCommandHandler(orchestrator, zapLogger)
	healthChecker := handlers.NewHealthChecker(upstreamClient, redisPinger(redisClient))

	r := mux.NewRouter()

	// Middleware, outermost first
	if cfg.OTELEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	commandsRouter := apiRouter.PathPrefix("/commands").Subrouter()
	commandsRouter.Use(middleware.Auth([]byte(cfg.AuthSecret), zapLogger))
	commandsRouter.Use(rateLimitMW)
	commandsRouter.HandleFunc("", commandHandler.HandleCommand).Methods("POST")

	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// buildClassifier selects the classifier implementation from config
func buildClassifier(cfg *config.Config, logger *zap.Logger) classifier.Classifier {
	if cfg.Classifier == "openai" {
		return classifier.NewOpenAIClassifier(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, logger)
	}
	return classifier.NewPatternClassifier()
}

// redisPinger adapts a redis client to the health checker's Pinger, returning
// nil when Redis is not configured
func redisPinger(client *redis.Client) handlers.Pinger {
	if client == nil {
		return nil
	}
	return pingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
