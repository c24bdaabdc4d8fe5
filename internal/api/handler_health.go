package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Ping handles GET /api/ping.
func (h *Handler) Ping(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"time": time.Now().UTC()}, "pong")
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		failWith(c, http.StatusServiceUnavailable, gin.H{"database": err.Error()}, "unhealthy")
		return
	}
	ok(c, http.StatusOK, gin.H{"database": "ok"}, "healthy")
}
