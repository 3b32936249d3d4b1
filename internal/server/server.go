package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"companion/internal/handler"
	"companion/internal/metrics"
	"companion/internal/middleware"
	"companion/internal/repository"
	"companion/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	router  *gin.Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Options carries the dependencies of the HTTP surface.
type Options struct {
	Mode        string
	CORSOrigins []string
	AuthService service.AuthService
	Processor   handler.Processor
	ChatRepo    repository.ChatRepository
	Analytics   repository.AnalyticsRepository
	Suggestions handler.SuggestionSource
	// Labels are the emotion labels listed by /api/resources.
	Labels      []string
	Helpline    string
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func NewServer(opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(opts.Logger), middleware.CORS(opts.CORSOrigins))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}

	s := &Server{
		router:  router,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	s.setupRoutes(opts)
	return s
}

func (s *Server) setupRoutes(opts Options) {
	authHandler := handler.NewAuthHandler(opts.AuthService, s.logger)
	chatHandler := handler.NewChatHandler(opts.Processor, opts.ChatRepo, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(opts.Analytics, s.logger)
	resourcesHandler := handler.NewResourcesHandler(opts.Suggestions, opts.Labels, opts.Helpline, s.logger)
	authRequired := middleware.AuthMiddleware(opts.AuthService, s.logger)

	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "Mental Health Companion Backend is Running"})
	})
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if s.metrics != nil {
		s.router.GET("/metrics", s.metrics.Handler())
	}

	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authRequired, authHandler.Logout)

	api := s.router.Group("/api", authRequired)
	{
		api.POST("/chat", chatHandler.Chat)
		api.GET("/history", chatHandler.History)
		api.GET("/trends", chatHandler.Trends)
		api.GET("/analytics/summary", analyticsHandler.GetSummary)
	}

	s.router.GET("/api/resources", resourcesHandler.GetResources)
	s.router.GET("/api/resources/:label", resourcesHandler.GetSuggestions)

	// Unprefixed paths used by existing clients.
	s.router.POST("/register", authHandler.Register)
	s.router.POST("/token", authHandler.Token)
	s.router.POST("/chat", authRequired, chatHandler.Chat)
	s.router.GET("/history", authRequired, chatHandler.History)
	s.router.GET("/trends", authRequired, chatHandler.Trends)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
