package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondError переводит ошибку сервиса в HTTP статус. Внутренние ошибки не раскрываются клиенту.
func respondError(c *gin.Context, log logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, query.ErrUnknownAxis),
		errors.Is(err, query.ErrInvalidValue):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrRegistrationNotFound),
		errors.Is(err, service.ErrViewNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTooManyViews):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
