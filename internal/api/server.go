// Package api exposes the dashboard over HTTP: the authorization endpoints,
// the provider-backed video and comment routes, notes, AI generation, and
// the operational surface (health, metrics).
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/audit"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/auth"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/config"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/logging"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/metrics"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/notes"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/store"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/youtube"
)

// AuthService is the authorization surface the server depends on.
type AuthService interface {
	BeginAuthorization() (authURL, state string)
	CompleteAuthorization(ctx context.Context, code string) (*auth.Authorization, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Deauthorize(ctx context.Context, userID string) error
}

// VideoService is the provider adapter surface the server depends on.
type VideoService interface {
	ListVideos(ctx context.Context, userID, pageToken string) (*youtube.VideoPage, error)
	GetVideo(ctx context.Context, userID, videoID string) (*youtube.Video, error)
	UpdateVideo(ctx context.Context, userID, videoID string, update youtube.VideoUpdate) (*youtube.Video, error)
	ListComments(ctx context.Context, userID, videoID, pageToken string) (*youtube.ThreadPage, error)
	InsertComment(ctx context.Context, userID, videoID, text string) (*youtube.Comment, error)
	ReplyToComment(ctx context.Context, userID, parentID, text string) (*youtube.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID, ownerChannelID string) error
}

// Generator produces AI text suggestions.
type Generator interface {
	Generate(ctx context.Context, userID, prompt string) (string, error)
}

// CredentialInvalidator drops a user's stored provider credential.
type CredentialInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	auth        AuthService
	videos      VideoService
	generator   Generator
	notes       *notes.Service
	credentials CredentialInvalidator
	store       store.Store
	auditLog    *audit.Logger
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// Deps bundles the services the server exposes.
type Deps struct {
	Auth        AuthService
	Videos      VideoService
	Generator   Generator
	Notes       *notes.Service
	Credentials CredentialInvalidator
	Store       store.Store
	AuditLog    *audit.Logger
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, apiCfg config.APIConfig, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	m := deps.Metrics
	if m == nil {
		m = metrics.NewMetrics("ytcompanion")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	requestsPerMinute := apiCfg.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 600
	}
	burst := apiCfg.RateLimit.Burst
	if burst <= 0 {
		burst = 60
	}
	rateLimiter := newIPRateLimiter(time.Minute/time.Duration(requestsPerMinute), burst)

	server := &Server{
		router:      gin.New(),
		config:      cfg,
		apiConfig:   apiCfg,
		auth:        deps.Auth,
		videos:      deps.Videos,
		generator:   deps.Generator,
		notes:       deps.Notes,
		credentials: deps.Credentials,
		store:       deps.Store,
		auditLog:    deps.AuditLog,
		metrics:     m,
		logger:      logger,
		rateLimiter: rateLimiter,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(rateLimiter))
	server.router.Use(bodyLimitMiddleware(1 << 20))
	server.router.Use(metrics.Middleware(m))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware provides structured logging for all requests
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		duration := time.Since(start).Seconds()
		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_seconds", duration,
		)
		if len(c.Errors) > 0 {
			logger.ErrorWithContext(ctx, "request error", "error", c.Errors.String())
		}
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Operational endpoints - NO authentication required
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/healthz", s.handleHealth)

	// Authorization flow - NO session required
	s.router.GET("/auth/login", s.handleLogin)
	s.router.GET("/auth/callback", s.handleCallback)
	s.router.POST("/auth/logout", s.handleLogout)

	authMiddleware := SessionAuth(s.auth, s.metrics, s.logger)

	s.router.DELETE("/auth/account", authMiddleware, s.handleDeauthorize)

	basePath := s.apiConfig.BasePath
	if basePath == "" {
		basePath = "/api"
	}
	api := s.router.Group(basePath)
	api.Use(authMiddleware)
	{
		api.GET("/me", s.handleMe)

		api.GET("/videos", s.handleListVideos)
		api.GET("/videos/:id", s.handleGetVideo)
		api.PATCH("/videos/:id", s.handleUpdateVideo)

		api.GET("/videos/:id/comments", s.handleListComments)
		api.POST("/videos/:id/comments", s.handleInsertComment)
		api.DELETE("/comments/:id", s.handleDeleteComment)

		api.POST("/ai/generate", s.handleGenerate)

		api.GET("/notes", s.handleListNotes)
		api.POST("/notes", s.handleCreateNote)
		api.GET("/notes/:id", s.handleGetNote)
		api.PATCH("/notes/:id", s.handleUpdateNote)
		api.DELETE("/notes/:id", s.handleDeleteNote)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its components
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	if s.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("shutting down HTTP server")
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", "error", err.Error())
				errs <- fmt.Errorf("http shutdown: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Drain the audit queue before the store goes away.
	if s.auditLog != nil {
		s.auditLog.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs <- fmt.Errorf("store close: %w", err)
		}
	}

	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
