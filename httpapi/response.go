package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/petclinic/core"
	"github.com/poiesic/petclinic/storage"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func okList[T any](c *gin.Context, message string, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: items, Count: &n})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// bindBody decodes a JSON request body into dst, answering 400 itself when
// the body is absent or malformed.
func bindBody(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		fail(c, http.StatusBadRequest, "Request body is required")
	default:
		fail(c, http.StatusBadRequest, "Invalid JSON format in request body")
	}
	return false
}

// backend names the store medium in configuration error messages.
type backend string

const (
	databaseBackend backend = "Database"
	blobBackend     backend = "Blob Storage"
)

// storeFailure maps a store error onto a status code and message. Faults the
// caller can fix are reported verbatim; anything else gets generic.
func (s *Server) storeFailure(c *gin.Context, err error, b backend, generic string) {
	switch {
	case storage.IsConfigurationError(err):
		s.logger.Error(string(b)+" configuration error", "err", err, "request_id", requestID(c))
		fail(c, http.StatusInternalServerError, string(b)+" configuration error. Please check environment variables.")
	case errors.Is(err, core.ErrInvalidAppointment), errors.Is(err, core.ErrInvalidPet), errors.Is(err, storage.ErrInvalidQuery):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrConflict):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("error serving request", "err", err, "path", c.FullPath(), "request_id", requestID(c))
		fail(c, http.StatusInternalServerError, generic)
	}
}
