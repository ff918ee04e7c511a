package server

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/getmentor/getmentor-edge/config"
	"github.com/getmentor/getmentor-edge/internal/handlers"
	"github.com/getmentor/getmentor-edge/internal/middleware"
	"github.com/getmentor/getmentor-edge/pkg/metrics"
)

// NewRouter assembles the middleware chain and routes.
//
// Recovery is outermost so a panicking handler unwinds through every other
// stage untouched before being turned into a 500.
func NewRouter(cfg *config.Config) (*gin.Engine, error) {
	detector, err := middleware.NewSecureRequestDetector(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	var trusted []string
	if len(cfg.Server.TrustedProxies) > 0 {
		trusted = cfg.Server.TrustedProxies
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(cfg, detector))

	allowedOrigins := append([]string{}, cfg.Server.AllowedOrigins...)
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}
	if len(allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "traceparent", "tracestate"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
	router.Use(limiter.Middleware())
	router.Use(middleware.BodySizeLimitMiddleware(cfg.Server.MaxBodyBytes))

	static := handlers.NewStaticHandler(cfg.Server.PublicDir)
	health := handlers.NewHealthHandler(static.Ready)

	api := router.Group("/api")
	api.GET("/healthcheck", health.Healthcheck)
	api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	router.NoRoute(static.Serve)

	return router, nil
}
