// Package main is the entry point for the notification service.
//
// The service runs lottery-result fan-outs for event entrants: it selects
// the recipient set, resolves profiles, dispatches one multicast through
// the push gateway, and atomically reconciles recipient records with an
// audit log entry. Organizers invoke it over the REST API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fairchance/notification-service/config"
	"github.com/fairchance/notification-service/internal/application/command"
	"github.com/fairchance/notification-service/internal/application/fanout"
	"github.com/fairchance/notification-service/internal/application/query"
	"github.com/fairchance/notification-service/internal/domain/user"
	"github.com/fairchance/notification-service/internal/infrastructure/metrics"
	"github.com/fairchance/notification-service/internal/infrastructure/persistence/postgres"
	"github.com/fairchance/notification-service/internal/infrastructure/persistence/redis"
	"github.com/fairchance/notification-service/internal/infrastructure/push"
	httpapi "github.com/fairchance/notification-service/internal/interface/http"
	"github.com/fairchance/notification-service/internal/interface/http/handlers"
	"github.com/fairchance/notification-service/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting notification service",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	if cfg.Database.URL != "" {
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		dbConn, err = postgres.NewConnection(ctx, postgres.DefaultConfig())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.Migrate {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	eventRepo := postgres.NewEventRepository(dbConn)
	recipientRepo := postgres.NewRecipientRepository(dbConn)
	profileRepo := postgres.NewProfileRepository(dbConn)
	logRepo := postgres.NewNotificationLogRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REDIS PROFILE CACHE (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		profiles   user.Repository = profileRepo
		userCache  user.Cache
		redisCache *redis.Cache
	)
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// The store alone can serve every profile read.
			log.Warn("failed to connect to Redis, profile caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			cached := redis.NewCachedProfileRepository(profileRepo, redisCache)
			profiles = cached
			userCache = cached
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. PUSH GATEWAY CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing push gateway client...")
	pushCfg := push.DefaultConfig(cfg.Push.BaseURL)
	pushCfg.APIKey = cfg.Push.APIKey
	pushCfg.Timeout = cfg.Push.RequestTimeout
	pushCfg.MaxTokensPerCall = cfg.Push.MaxTokensPerCall
	pushCfg.Logger = log
	pushClient := push.NewClient(pushCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	orchestrator := fanout.NewOrchestrator(
		eventRepo,
		recipientRepo,
		profiles,
		pushClient,
		logRepo,
		metrics.FanoutRecorder{},
		log,
		fanout.Options{
			TreatMissingTokenAsDelivered: cfg.Fanout.TreatMissingTokenAsDelivered,
			ProfileWorkers:               cfg.Fanout.ProfileWorkers,
		},
	)

	listBroadcasts := query.NewListBroadcastsHandler(logRepo)
	updatePreferences := command.NewUpdatePreferencesHandler(profileRepo, profileRepo, userCache)
	registerDevice := command.NewRegisterDeviceHandler(profileRepo, userCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}
	healthChecker.AddCheck("push_gateway", handlers.NewGatewayCheck(pushClient))

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpLog := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: false,
	})

	server := httpapi.NewServer(httpapi.Config{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		EnableCORS:         cfg.HTTP.EnableCORS,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		EnableMetrics:      cfg.HTTP.EnableMetrics,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		APIKeyHeader:       cfg.HTTP.APIKeyHeader,
		APIKeyHashes:       cfg.HTTP.APIKeyHashes,
	}, httpapi.Dependencies{
		Orchestrator:             orchestrator,
		ListBroadcastsHandler:    listBroadcasts,
		UpdatePreferencesHandler: updatePreferences,
		RegisterDeviceHandler:    registerDevice,
		Logger:                   httpLog,
		HealthChecker:            healthChecker,
	})

	errCh := server.StartAsync()
	log.Info("notification service is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging for the process.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseSlogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// JSON for production log aggregation
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseSlogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
