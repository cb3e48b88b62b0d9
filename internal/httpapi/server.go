// Package httpapi exposes the orchestration core over HTTP: the turn
// endpoint, the direct tool-invocation endpoints, and the health and
// metrics surfaces.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/tripcourier/tripcourier/internal/observability"
	"github.com/tripcourier/tripcourier/internal/orchestrator"
	"github.com/tripcourier/tripcourier/pkg/ratelimit"
	"github.com/tripcourier/tripcourier/pkg/tools"
)

// Server wires the HTTP surface.
type Server struct {
	engine   *gin.Engine
	orch     *orchestrator.Orchestrator
	invoker  *tools.Invoker
	limiter  *ratelimit.Limiter
	health   *observability.HealthChecker
	validate *validator.Validate
	log      *logrus.Logger
}

// Options configures the server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Invoker      *tools.Invoker
	Limiter      *ratelimit.Limiter
	Health       *observability.HealthChecker
	Logger       *logrus.Logger
}

// New builds the server and its routes.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		orch:     opts.Orchestrator,
		invoker:  opts.Invoker,
		limiter:  opts.Limiter,
		health:   opts.Health,
		validate: validator.New(),
		log:      log,
	}
	s.routes()
	return s
}

// Handler returns the http handler for serving.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	v1 := s.engine.Group("/v1")
	if s.limiter != nil {
		v1.Use(s.rateLimit())
	}
	v1.POST("/turns", s.handleTurn)
	v1.GET("/tools", s.handleListTools)
	v1.POST("/tools/:name", s.handleInvokeTool)
}

// rateLimit throttles per session, falling back to client IP for requests
// without a session id.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Session-ID")
		if key == "" {
			key = c.ClientIP()
		}
		if !s.limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"errorCode": "rate_limited",
				"message":   "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	report := s.health.Run(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
