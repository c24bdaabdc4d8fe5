package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"visitor-kiosk-backend/internal/visit"
)

// Envelope wraps every response body.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func ok(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func failWith(c *gin.Context, status int, data any, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Data: data, Message: message})
}

// fail maps a service error onto a status code and envelope.
func fail(c *gin.Context, err error) {
	var verr *visit.ValidationError
	switch {
	case errors.As(err, &verr):
		failWith(c, http.StatusUnprocessableEntity, verr.Fields, "validation failed")
	case errors.Is(err, visit.ErrHostNotFound):
		failWith(c, http.StatusNotFound, nil, "host not found")
	case errors.Is(err, visit.ErrVisitNotFound):
		failWith(c, http.StatusNotFound, nil, "visit not found")
	case errors.Is(err, visit.ErrAlreadyCheckedOut):
		failWith(c, http.StatusConflict, nil, "visit already checked out")
	case errors.Is(err, visit.ErrDuplicateHost):
		failWith(c, http.StatusConflict, nil, "a host with this email already exists")
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		failWith(c, http.StatusInternalServerError, nil, "internal server error")
	}
}
