package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-kiosk-backend/internal/parse"
	"visitor-kiosk-backend/internal/visit"
)

// Dashboard handles GET /api/admin/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.stats.Dashboard(c.Request.Context(), h.limits.DashboardLimit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, d, "")
}

// History handles GET /api/admin/visits/history?limit=.
func (h *Handler) History(c *gin.Context) {
	limit, err := parse.BoundedInt(c.Query("limit"), h.limits.HistoryLimit, h.limits.MaxHistoryLimit)
	if err != nil {
		failWith(c, http.StatusUnprocessableEntity, gin.H{"limit": "must be a positive integer"}, "validation failed")
		return
	}
	rows, err := h.stats.History(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rows, "")
}

// Statistics handles GET /api/admin/statistics?days=.
func (h *Handler) Statistics(c *gin.Context) {
	days, err := parse.BoundedInt(c.Query("days"), h.limits.StatisticsDays, h.limits.MaxStatsDays)
	if err != nil {
		failWith(c, http.StatusUnprocessableEntity, gin.H{"days": "must be a positive integer"}, "validation failed")
		return
	}
	s, err := h.stats.Statistics(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, s, "")
}

// hostOption is a host as offered in the kiosk's host picker.
type hostOption struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Email      string `json:"email"`
}

// ListHostOptions handles GET /api/hosts.
func (h *Handler) ListHostOptions(c *gin.Context) {
	hosts, err := h.visits.ListHosts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]hostOption, 0, len(hosts))
	for _, host := range hosts {
		out = append(out, hostOption{ID: host.ID, Name: host.FullName, Department: host.Department, Email: host.Email})
	}
	ok(c, http.StatusOK, out, "")
}

// ListHosts handles GET /api/admin/hosts.
func (h *Handler) ListHosts(c *gin.Context) {
	hosts, err := h.visits.ListHosts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, hosts, "")
}

// CreateHost handles POST /api/admin/hosts.
func (h *Handler) CreateHost(c *gin.Context) {
	var in visit.HostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid request body")
		return
	}
	host, err := h.visits.CreateHost(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, host, "host created")
}
