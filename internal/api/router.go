package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"visitor-kiosk-backend/internal/mw"
)

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	AllowedOrigins  []string
	MediaDir        string
	MediaURLPrefix  string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Host lists and statistics are cached until the TTL passes or any write succeeds.
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.MediaDir != "" && cfg.MediaURLPrefix != "" {
		r.Static(cfg.MediaURLPrefix, cfg.MediaDir)
	}

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		api.GET("/ping", h.Ping)
		api.GET("/hosts", caching, h.ListHostOptions)

		// Kiosk
		api.POST("/check-in", h.CheckIn)
		api.POST("/visits/:id/photo", h.UploadPhoto)
		api.POST("/kiosk/visits/:id/check-out", h.CheckOut)

		// Security desk
		api.GET("/visits/active", h.ListActive)
		api.GET("/visits/:id/active", h.GetActive)
		api.POST("/visits/:id/check-out", h.CheckOut)

		// Host push notifications
		api.PUT("/hosts/:id/subscriptions", h.PutHostSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		admin := api.Group("/admin")
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/visits/history", h.History)
		admin.GET("/statistics", caching, h.Statistics)
		admin.GET("/hosts", caching, h.ListHosts)
		admin.POST("/hosts", h.CreateHost)
	}

	r.NoRoute(func(c *gin.Context) {
		failWith(c, http.StatusNotFound, nil, "route not found")
	})

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
