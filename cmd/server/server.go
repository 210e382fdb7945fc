package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/relay"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/infrastructure/cache"
	"github.com/janhq/support-chat/internal/infrastructure/completion"
	"github.com/janhq/support-chat/internal/infrastructure/database"
	"github.com/janhq/support-chat/internal/infrastructure/logger"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/infrastructure/repository/conversationrepo"
	"github.com/janhq/support-chat/internal/interfaces/httpserver"
	"github.com/janhq/support-chat/internal/utils/httpclients"
)

// @title Support Chat API
// @version 1.0
// @description Streaming relay and conversation store for the support chat client
// @BasePath /
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
	closers    []func() error
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

// Close releases storage handles in reverse order of acquisition.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error().Err(err).Msg("release resource")
		}
	}
}

// storage is the conversation repository selected by configuration.
type storage struct {
	repository conversation.Repository
	readiness  map[string]httpserver.ReadinessCheck
	closers    []func() error
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	log = log.With().Str("service", cfg.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	sanitizer := newSanitizer(cfg)
	store, err := newStorage(ctx, cfg, log, sanitizer)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize conversation storage")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}
	defer authValidator.Close()

	relayService := newRelayService(cfg, log, sanitizer)
	conversationService := conversation.NewService(store.repository, log, conversation.WithSanitizer(sanitizer))

	httpServer := httpserver.New(cfg, log, relayService, conversationService, authValidator, store.readiness)
	app := NewApplication(httpServer, log)
	app.closers = store.closers
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

func newSanitizer(cfg *config.Config) *observability.Sanitizer {
	return observability.NewSanitizer(cfg.TelemetryPIILevel, cfg.ServiceName)
}

func newRelayService(cfg *config.Config, log zerolog.Logger, sanitizer *observability.Sanitizer) *relay.Service {
	client := completion.NewClient(httpclients.NewClient("openai", log), cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	return relay.NewService(completion.NewUpstream(client), cfg.CompletionModel, log, relay.WithSanitizer(sanitizer))
}

// newStorage opens the configured document backend and wraps it with the
// Redis or in-process cache when one is configured.
func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, sanitizer *observability.Sanitizer) (*storage, error) {
	s := &storage{readiness: map[string]httpserver.ReadinessCheck{}}

	switch cfg.DocstoreDriver {
	case config.DriverPostgres:
		db, err := database.Connect(database.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		s.repository = conversationrepo.NewGormRepository(db)
		s.readiness["database"] = func(ctx context.Context) error { return database.Ping(ctx, db) }
		if sqlDB, err := db.DB(); err == nil {
			s.closers = append(s.closers, sqlDB.Close)
		}
	case config.DriverBolt:
		repo, err := conversationrepo.OpenBoltRepository(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		s.repository = repo
		s.closers = append(s.closers, repo.Close)
	default:
		log.Warn().Msg("conversation documents are kept in memory and lost on restart")
		s.repository = conversationrepo.NewMemoryRepository()
	}

	switch {
	case cfg.RedisURL != "":
		rdb, err := cache.NewRedisCache(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.repository = conversationrepo.NewCachedRepository(s.repository, conversationrepo.NewRedisCache(rdb, cfg.DocstoreCacheTTL, log, sanitizer), log)
		s.readiness["redis"] = rdb.HealthCheck
		s.closers = append(s.closers, rdb.Close)
	case cfg.DocstoreLRUSize > 0:
		lru, err := conversationrepo.NewLRUCache(cfg.DocstoreLRUSize, cfg.DocstoreCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("create document cache: %w", err)
		}
		s.repository = conversationrepo.NewCachedRepository(s.repository, lru, log)
	}

	log.Info().
		Str("driver", cfg.DocstoreDriver).
		Bool("redis_cache", cfg.RedisURL != "").
		Int("lru_size", cfg.DocstoreLRUSize).
		Msg("conversation storage ready")
	return s, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
