package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type registrationsHandler struct {
	registrations *service.Registrations
	logger        logger.Logger
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func newRegistrationsHandler(registrations *service.Registrations, log logger.Logger) registrationsHandler {
	return registrationsHandler{registrations: registrations, logger: log}
}

func (h registrationsHandler) register(c *gin.Context) {
	r, err := h.registrations.Register(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h registrationsHandler) list(c *gin.Context) {
	items, err := h.registrations.List(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h registrationsHandler) setStatus(c *gin.Context) {
	var req statusRequest
	if !bindBody(c, &req) {
		return
	}

	status, ok := db.ParseRegistrationStatus(req.Status)
	if !ok {
		writeError(c, http.StatusBadRequest, "status must be one of pending, confirmed, cancelled")
		return
	}

	r, err := h.registrations.SetStatus(c.Request.Context(), userID(c), c.Param("id"), c.Param("rid"), status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
