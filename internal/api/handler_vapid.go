package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		failWith(c, http.StatusServiceUnavailable, nil, "vapid keys are not configured")
		return
	}

	ok(c, http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey}, "")
}
