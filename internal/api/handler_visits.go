package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visitor-kiosk-backend/internal/parse"
	"visitor-kiosk-backend/internal/visit"
)

// CheckIn handles POST /api/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	var in visit.CheckInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid request body")
		return
	}

	v, err := h.visits.CheckIn(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, v, "checked in")
}

// UploadPhoto handles POST /api/visits/:id/photo with a multipart "photo" field.
func (h *Handler) UploadPhoto(c *gin.Context) {
	visitID, err := parse.ID(c.Param("id"))
	if err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid visit id")
		return
	}

	if h.limits.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxUploadBytes)
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			failWith(c, http.StatusRequestEntityTooLarge, nil, "photo is too large")
			return
		}
		failWith(c, http.StatusUnprocessableEntity, gin.H{"photo": "is required"}, "validation failed")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, err)
		return
	}

	ref, err := h.visits.AttachPhoto(c.Request.Context(), visitID, data)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, ref, "photo uploaded")
}

// ListActive handles GET /api/visits/active.
func (h *Handler) ListActive(c *gin.Context) {
	views, err := h.visits.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, views, "")
}

// GetActive handles GET /api/visits/:id/active.
func (h *Handler) GetActive(c *gin.Context) {
	visitID, err := parse.ID(c.Param("id"))
	if err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid visit id")
		return
	}
	view, err := h.visits.GetActive(c.Request.Context(), visitID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, view, "")
}

type checkOutResponse struct {
	VisitID    int64     `json:"visit_id"`
	CheckOutAt time.Time `json:"check_out_at"`
}

// CheckOut handles POST /api/visits/:id/check-out and its kiosk alias.
func (h *Handler) CheckOut(c *gin.Context) {
	visitID, err := parse.ID(c.Param("id"))
	if err != nil {
		failWith(c, http.StatusBadRequest, nil, "invalid visit id")
		return
	}
	v, err := h.visits.CheckOut(c.Request.Context(), visitID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := checkOutResponse{VisitID: v.ID}
	if v.CheckOutAt != nil {
		resp.CheckOutAt = *v.CheckOutAt
	}
	ok(c, http.StatusOK, resp, "checked out")
}
