package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	supportchatdocs "github.com/janhq/support-chat/docs/swagger"
	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/relay"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/routes"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg       *config.Config
	engine    *gin.Engine
	log       zerolog.Logger
	readiness map[string]ReadinessCheck
}

// New constructs the HTTP server with default middleware and routes.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	relayService *relay.Service,
	conversationService *conversation.Service,
	validator *auth.Validator,
	readiness map[string]ReadinessCheck,
) *HttpServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	supportchatdocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(middlewares.RequestID())
	engine.Use(middlewares.Recovery(log))
	engine.Use(middlewares.TracingMiddleware(cfg.ServiceName))
	engine.Use(middlewares.LoggingMiddleware(log))
	engine.Use(middlewares.MetricsMiddleware())
	engine.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))

	handlerProvider := handlers.NewProvider(relayService, conversationService)
	routeProvider := routes.NewProvider(handlerProvider, validator, cfg.PublicAPIKey, log)

	s := &HttpServer{
		cfg:       cfg,
		engine:    engine,
		log:       log,
		readiness: readiness,
	}
	s.registerCoreRoutes(routeProvider)
	return s
}

// Handler exposes the engine, mainly for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *HttpServer) registerCoreRoutes(routeProvider *routes.Provider) {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": s.cfg.ServiceName,
			"status":  "ok",
		})
	})

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.engine.GET("/readyz", s.ready)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if s.cfg.EnableSwagger {
		s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routeProvider.Register(s.engine)
}

func (s *HttpServer) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true
	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			s.log.Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
