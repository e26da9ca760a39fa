package server

import (
	"github.com/gin-gonic/gin"

	"docuflow/internal/shared/config"
	"docuflow/internal/shared/metrics"
	"docuflow/internal/shared/server/middleware"
)

// RouteRegistrar attaches a feature's routes to the /api group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// ProbeRegistrar attaches unauthenticated probes to the engine root.
type ProbeRegistrar interface {
	RegisterProbe(r gin.IRoutes)
}

// RouterDeps carries everything NewRouter mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Limiter  *middleware.RateLimiter
	Probe    ProbeRegistrar
	// Handlers are mounted under /api in order.
	Handlers []RouteRegistrar
}

// publicPrefixes stay reachable without a token when AUTH_REQUIRED is set.
var publicPrefixes = []string{"/api/health", "/api/auth"}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.Probe != nil {
		deps.Probe.RegisterProbe(r)
	}

	api := r.Group("/api")
	api.Use(
		middleware.Auth(middleware.AuthConfig{
			Verifier:       deps.Verifier,
			Required:       deps.Config.AuthRequired,
			PublicPrefixes: publicPrefixes,
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT": {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
				"UPLOAD":  {Rate: deps.Config.UploadRateLimitRPS, Burst: deps.Config.UploadRateLimitBurst},
			},
			GroupFor: middleware.UploadGroup,
			Limiter:  deps.Limiter,
		}),
	)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
