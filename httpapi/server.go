package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tmaxwell-dev/authgate"
)

// Config holds the HTTP surface settings.
type Config struct {
	// AllowedOrigins is the CORS allowlist. Empty disables CORS handling.
	AllowedOrigins []string
}

// Server binds the engine's operations to HTTP routes.
type Server struct {
	engine *authgate.Engine
	logger zerolog.Logger
}

// NewServer wraps an engine.
func NewServer(engine *authgate.Engine, logger zerolog.Logger) *Server {
	return &Server{engine: engine, logger: logger}
}

// Router builds the gin engine with all routes mounted.
//
// Public:    /auth/login, /auth/register, /auth/refresh, /auth/logout,
//            /auth/verify, /healthz.
// Session:   /account/profile behind RequireSession.
// Two-step:  /admin/sessions/:id revocation and /internal/metrics behind
//            RequireTwoStep.
func (s *Server) Router(cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", secondFactorHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/login", s.handleLogin)
		auth.POST("/register", s.handleRegister)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.handleLogout)
		auth.GET("/verify", s.handleVerify)
	}

	account := r.Group("/account")
	account.Use(s.RequireSession())
	{
		account.GET("/profile", s.handleProfile)
	}

	twoStep := s.RequireTwoStep()

	admin := r.Group("/admin")
	admin.Use(twoStep)
	{
		admin.DELETE("/sessions/:id", s.handleRevokeSession)
	}

	internal := r.Group("/internal")
	internal.Use(twoStep)
	{
		internal.GET("/metrics", s.handleMetrics)
	}

	return r
}
