// Package httpapi - HTTP интерфейс сервиса на gin.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rx3lixir/event-listing/internal/calendar"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/pkg/health"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// UserHeader передает идентификатор текущего пользователя (выставляется шлюзом авторизации).
const UserHeader = "X-User-ID"

type Deps struct {
	Listing       *service.Listing
	Events        *service.Events
	Registrations *service.Registrations
	Views         *service.Views
	Calendar      calendar.Feed
	Health        *health.Health
	Logger        logger.Logger
}

func NewRouter(environment string, deps Deps) (*gin.Engine, error) {
	if deps.Listing == nil || deps.Views == nil {
		return nil, errors.New("listing and views services are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	gin.EnableJsonDecoderDisallowUnknownFields()
	gin.SetMode(ginMode(environment))

	router := gin.New()
	router.Use(gin.Recovery(), metricsMiddleware(), requestLogger(deps.Logger))
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	router.GET("/health", healthHandler(deps.Health))

	events := newEventsHandler(deps)
	views := newViewsHandler(deps.Views, deps.Logger)

	v1 := router.Group("/v1")
	v1.GET("/events", events.list)
	v1.GET("/events/latest", events.latest)
	v1.GET("/events/:id", events.get)
	v1.GET("/calendar.ics", events.ics)
	if deps.Events != nil {
		v1.POST("/events", events.create)
		v1.PUT("/events/:id", events.update)
		v1.DELETE("/events/:id", events.remove)
		v1.GET("/me/events", events.owned)
	}
	if deps.Registrations != nil {
		registrations := newRegistrationsHandler(deps.Registrations, deps.Logger)
		v1.POST("/events/:id/registrations", registrations.register)
		v1.GET("/events/:id/registrations", registrations.list)
		v1.PUT("/events/:id/registrations/:rid", registrations.setStatus)
	}

	v1.POST("/views", views.create)
	v1.GET("/views/:id", views.get)
	v1.PUT("/views/:id/search", views.search)
	v1.PUT("/views/:id/filter", views.filter)
	v1.PUT("/views/:id/sort", views.sort)
	v1.PUT("/views/:id/page", views.page)
	v1.POST("/views/:id/reset", views.reset)
	v1.DELETE("/views/:id", views.remove)

	return router, nil
}

func healthHandler(h *health.Health) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		resp := h.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status != health.StatusUp {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	}
}

func ginMode(environment string) string {
	switch environment {
	case "development":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
