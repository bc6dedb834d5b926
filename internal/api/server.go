package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"capital-returns-engine/internal/auth"
	"capital-returns-engine/internal/database"
	"capital-returns-engine/internal/events"
	"capital-returns-engine/internal/returns"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	engine      *returns.Service
	cache       *database.SnapshotCache
	eventBus    *events.EventBus
	config      ServerConfig
	authService *auth.Service
	authEnabled bool
	rateLimiter *RateLimiter
	logger      zerolog.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string // comma separated; empty allows localhost dev origins
	ProductionMode bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	engine *returns.Service,
	cache *database.SnapshotCache,
	eventBus *events.EventBus,
	authService *auth.Service, // Can be nil if auth is disabled
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:8090"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		engine:      engine,
		cache:       cache,
		eventBus:    eventBus,
		config:      config,
		authService: authService,
		authEnabled: authService != nil,
		rateLimiter: NewRateLimiter(240, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	// WebSocket hub for real-time recalculation progress
	InitWebSocket(eventBus, server.logger)

	return server
}

// rateLimitMiddleware rate limits mutating endpoints by path. Read endpoints
// are served from the database or cache and need no limiting.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Auth routes (public, no authentication required)
	if s.authEnabled {
		s.router.POST("/api/auth/login", s.handleLogin)
	}

	// Auth status endpoint (always available, returns whether auth is enabled)
	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"auth_enabled": s.authEnabled,
		})
	})

	// API routes (protected when auth is enabled)
	api := s.router.Group("/api")

	if s.authEnabled {
		api.Use(auth.Middleware(s.authService.JWTManager()))
	}
	api.Use(s.rateLimitMiddleware())

	{
		// Client endpoints
		api.POST("/clients", s.handleCreateClient)
		api.GET("/clients", s.handleListClients)
		api.GET("/clients/:id", s.handleGetClient)
		api.GET("/clients/:id/previous-balance", s.handleGetPreviousBalance)

		// Investment transaction endpoints
		api.POST("/transactions", s.handleCreateTransaction)
		api.GET("/transactions", s.handleListTransactions)
		api.GET("/transactions/:id", s.handleGetTransaction)
		api.PUT("/transactions/:id/amount", s.handleEditTransactionAmount)
		api.DELETE("/transactions/:id", s.handleCancelTransaction)

		// Platform allocation endpoints
		api.POST("/platforms", s.handleCreateAllocation)
		api.GET("/platforms", s.handleListAllocations)
		api.GET("/platforms/:id", s.handleGetAllocation)
		api.PUT("/platforms/:id/value", s.handleUpdateAllocationValue)
		api.POST("/platforms/:id/close", s.handleCloseAllocation)

		// Weekly snapshot endpoints
		api.POST("/platforms/:id/weekly-snapshots", s.handleCreateWeeklySnapshot)
		api.GET("/platforms/:id/weekly-snapshots", s.handleListWeeklySnapshots)
		api.POST("/platforms/:id/interpolate", s.handleInterpolateGaps)

		// Returns endpoints
		api.GET("/corpus", s.handleGetCorpus)
		api.GET("/overview", s.handleGetOverview)
		api.GET("/months", s.handleListMonthlyReturns)
		api.GET("/months/:month", s.handleGetMonthlyReturn)
		api.POST("/months/:month/calculate", s.handleCalculateMonth)
		api.POST("/recalculate", s.handleRecalculate)
	}

	// WebSocket endpoint for recalculation progress
	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	readTimeout := s.config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := s.config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 15 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}
