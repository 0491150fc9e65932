package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notionboard/internal/config"
	"notionboard/internal/llm"
	"notionboard/internal/metrics"
	"notionboard/internal/notion"
	"notionboard/internal/storage/sqlite"
)

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Store  *sqlite.Store
	Notion *notion.Client
	OAuth  *notion.OAuth
	LLM    *llm.Service
}

// Server provides HTTP handlers for the Notion board backend.
type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	store     *sqlite.Store
	notion    *notion.Client
	oauth     *notion.OAuth
	llm       *llm.Service
	limiters  *limiterSet
	logger    *zap.Logger
	staticDir string
	now       func() time.Time
}

// New constructs the HTTP server with routes and middleware configured.
func New(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies; trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}

	srv := &Server{
		engine:    router,
		cfg:       cfg,
		store:     deps.Store,
		notion:    deps.Notion,
		oauth:     deps.OAuth,
		llm:       deps.LLM,
		limiters:  newLimiterSet(cfg.DeepSeek.RatePerMinute),
		logger:    logger,
		staticDir: cfg.Server.Static,
		now:       time.Now,
	}
	router.Use(srv.observe())

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/robots.txt", s.handleRobots)
	s.engine.GET("/sitemap.xml", s.handleSitemap)
	s.engine.GET("/notion/auth-error", s.handleAuthError)

	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/waitlist", s.handleWaitlist)
		api.POST("/llm/suggestions", s.withSession(s.handleSuggestions))

		n := api.Group("/notion")
		{
			n.GET("/auth", s.handleAuth)
			n.GET("/callback", s.handleCallback)
			n.POST("/logout", s.withSession(s.handleLogout))

			n.GET("/databases", s.withAuth(s.handleGetDatabases))
			n.POST("/databases", s.withAuth(s.handleQueryDatabase))

			n.GET("/pages", s.withAuth(s.handleGetPage))
			n.POST("/pages", s.withAuth(s.handleCreatePage))
			n.PATCH("/pages", s.withAuth(s.handleUpdatePage))
			n.DELETE("/pages", s.withAuth(s.handleArchivePage))
			n.GET("/pages/:pageId/blocks", s.withAuth(s.handlePageBlocks))

			n.GET("/tasks", s.withAuth(s.handleTasks))
			n.POST("/tasks", s.withAuth(s.handleCreateTask))
			n.PATCH("/tasks/:id", s.withAuth(s.handlePatchTask))
			n.GET("/board", s.withAuth(s.handleBoard))
			n.GET("/sprints", s.withAuth(s.handleSprints))
			n.GET("/epics", s.withAuth(s.handleEpics))

			n.POST("/chat", s.withAuth(s.handleChat))
		}
	}

	s.mountStatic()
}

// observe logs each request and counts it by route template.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()

		if route == "/metrics" || route == "/api/healthz" {
			return
		}
		s.logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// notionStatus picks the response status for a failed Notion call.
func notionStatus(err error) int {
	var apiErr *notion.APIError
	switch {
	case errors.Is(err, notion.ErrNoToken):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondNotionError maps Notion client errors onto the envelope.
func (s *Server) respondNotionError(c *gin.Context, err error) {
	if errors.Is(err, notion.ErrNoToken) {
		s.respondError(c, http.StatusUnauthorized, errNotAuthenticated)
		return
	}
	s.respondError(c, notionStatus(err), err)
}

var errNotAuthenticated = errors.New("Not authenticated with Notion")

// respondError logs the error and returns a JSON envelope.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// respondSuccess wraps a payload in the JSON envelope.
func respondSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"success": true, "data": payload})
}
