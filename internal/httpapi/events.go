package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rx3lixir/event-listing/internal/calendar"
	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

const maxEventBodyBytes int64 = 1 << 20

type eventsHandler struct {
	listing *service.Listing
	events  *service.Events
	feed    calendar.Feed
	logger  logger.Logger
}

func newEventsHandler(deps Deps) eventsHandler {
	return eventsHandler{
		listing: deps.Listing,
		events:  deps.Events,
		feed:    deps.Calendar,
		logger:  deps.Logger,
	}
}

func (h eventsHandler) list(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	params, err := req.toParams(userID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res := h.listing.List(service.WithOrigin(c.Request.Context(), "http"), params)
	c.JSON(http.StatusOK, gin.H{
		"result":     res,
		"has_active": params.HasActiveCriteria(),
	})
}

func (h eventsHandler) latest(c *gin.Context) {
	n := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 50 {
			writeError(c, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		n = v
	}

	c.JSON(http.StatusOK, gin.H{"items": h.listing.Latest(c.Request.Context(), n)})
}

func (h eventsHandler) get(c *gin.Context) {
	ev, err := h.listing.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// ics отдает все подходящие события без пагинации.
func (h eventsHandler) ics(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}

	params, err := req.toParams(userID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	events := h.listing.Matched(service.WithOrigin(c.Request.Context(), "calendar"), params)
	c.Header("Content-Disposition", `inline; filename="events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(h.feed.Render(events, time.Now())))
}

func (h eventsHandler) create(c *gin.Context) {
	var req db.CreateEventParams
	if !bindBody(c, &req) {
		return
	}

	ev, err := h.events.Create(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h eventsHandler) update(c *gin.Context) {
	var req db.UpdateEventParams
	if !bindBody(c, &req) {
		return
	}

	ev, err := h.events.Update(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h eventsHandler) remove(c *gin.Context) {
	ev, err := h.events.Delete(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// owned - события текущего пользователя из хранилища, включая еще не попавшие в снимок.
func (h eventsHandler) owned(c *gin.Context) {
	events, err := h.events.Owned(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": events})
}

// bindBody читает JSON тело с ограничением размера. При ошибке ответ уже записан.
func bindBody(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBodyBytes)

	if err := c.ShouldBindJSON(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(c, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
