// Package main is the entry point for the Grindstone progression engine.
//
// The service ingests guild activity events, converts them into XP awards
// through configurable multipliers and exclusions, and serves rank and
// leaderboard queries over HTTP.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: progression math, multipliers, exclusions, events
// - Application: command and query handlers, event subscribers
// - Infrastructure: PostgreSQL repositories, Redis cache, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/grindstone-bot/grindstone/config"
	"github.com/grindstone-bot/grindstone/internal/application/command"
	"github.com/grindstone-bot/grindstone/internal/application/eventhandler"
	"github.com/grindstone-bot/grindstone/internal/application/query"
	"github.com/grindstone-bot/grindstone/internal/domain/notification"
	"github.com/grindstone-bot/grindstone/internal/domain/progression"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/messaging"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/postgres"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/persistence/redis"
	"github.com/grindstone-bot/grindstone/internal/infrastructure/service"
	httpserver "github.com/grindstone-bot/grindstone/internal/interface/http"
	"github.com/grindstone-bot/grindstone/pkg/logger"
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
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.App.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting grindstone",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")

	var dbConn *postgres.Connection
	if cfg.Database.URL != "" {
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		pgCfg := postgres.DefaultConfig()
		pgCfg.Host = cfg.Database.Host
		pgCfg.Port = cfg.Database.Port
		pgCfg.User = cfg.Database.User
		pgCfg.Password = cfg.Database.Password
		pgCfg.Database = cfg.Database.Name
		pgCfg.SSLMode = cfg.Database.SSLMode
		pgCfg.MaxConns = int32(cfg.Database.MaxConns)
		pgCfg.MinConns = int32(cfg.Database.MinConns)
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		dbConn, err = postgres.NewConnection(ctx, pgCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Migrations
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Redis (optional leaderboard cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisClient *goredis.Client
	var lbCache progression.LeaderboardCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
			lbCache = redis.NewLeaderboardCache(redisClient)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Repositories
	// ─────────────────────────────────────────────────────────────────────────
	scoreRepo := postgres.NewScoreRepository(dbConn)
	multiplierRepo := postgres.NewMultiplierRepository(dbConn)
	exclusionRepo := postgres.NewExclusionRepository(dbConn)
	settingsRepo := postgres.NewSettingsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.AsyncMode = cfg.Engine.EventBusAsync
	busCfg.WorkerPoolSize = cfg.Engine.EventBusWorkers
	busCfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Notifier and event subscribers
	// ─────────────────────────────────────────────────────────────────────────
	var notifier notification.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifier = service.NewWebhookNotifier(service.WebhookNotifierConfig{
			URL:     cfg.Notifier.WebhookURL,
			Timeout: cfg.Notifier.SendTimeout,
		})
	} else {
		log.Info("no webhook configured, level-up announcements go to the log")
		notifier = service.NewLogNotifier(log)
	}

	rng := newLockedRand(time.Now().UnixNano())

	levelUpNotifier := eventhandler.NewLevelUpNotifier(notifier, rng, cfg.Notifier.SendTimeout, log)
	if err := levelUpNotifier.Register(eventBus); err != nil {
		return fmt.Errorf("failed to register level-up subscriber: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. Application layer
	// ─────────────────────────────────────────────────────────────────────────
	processActivity := command.NewProcessActivityHandler(
		scoreRepo, multiplierRepo, exclusionRepo, settingsRepo, eventBus, rng, log)
	adjustScore := command.NewAdjustScoreHandler(scoreRepo, lbCache, eventBus, log)
	configureGuild := command.NewConfigureGuildHandler(
		multiplierRepo, exclusionRepo, settingsRepo, eventBus, log)
	manageBackground := command.NewManageBackgroundHandler(scoreRepo, log)

	getRank := query.NewGetRankHandler(scoreRepo)
	getLeaderboard := query.NewGetLeaderboardHandler(scoreRepo, lbCache, cfg.Redis.LeaderboardTTL, log)
	getGuildConfig := query.NewGetGuildConfigHandler(settingsRepo, multiplierRepo, exclusionRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	serverCfg.AdminTokenHash = cfg.HTTP.AdminTokenHash

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		ProcessActivity:  processActivity,
		AdjustScore:      adjustScore,
		ConfigureGuild:   configureGuild,
		ManageBackground: manageBackground,
		GetRank:          getRank,
		GetLeaderboard:   getLeaderboard,
		GetGuildConfig:   getGuildConfig,
		Logger:           log,
		HealthChecker:    &backendHealth{db: dbConn, redis: redisClient},
	})

	errCh := server.StartAsync()
	log.Info("grindstone is running", logger.String("address", serverCfg.Address()))

	// ─────────────────────────────────────────────────────────────────────────
	// 11. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	log.Info("grindstone stopped")
	return nil
}

// lockedRand serializes draws from a single generator. The activity handler
// draws on HTTP request goroutines and the level-up subscriber draws on the
// event-bus worker pool; *rand.Rand itself is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// backendHealth probes the storage backends for the readiness endpoint.
type backendHealth struct {
	db    *postgres.Connection
	redis *goredis.Client
}

func (h *backendHealth) Check(ctx context.Context) error {
	if err := h.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
