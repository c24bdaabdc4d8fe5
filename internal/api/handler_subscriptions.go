package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-kiosk-backend/internal/model"
	"visitor-kiosk-backend/internal/parse"
	"visitor-kiosk-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutHostSubscription registers a browser push subscription for a host.
// Re-registering an endpoint moves it to the new host and refreshes its keys.
func (h *Handler) PutHostSubscription(c *gin.Context) {
	hostID, err := parse.ID(c.Param("id"))
	if err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid host id")
		return
	}

	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid request")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetHost(ctx, hostID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			failWith(c, http.StatusNotFound, nil, "host not found")
			return
		}
		fail(c, err)
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		HostID:   hostID,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.UpsertSubscription(ctx, subscription); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"endpoint": subscription.Endpoint, "host_id": hostID}, "subscribed")
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid request")
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil, "unsubscribed")
}
