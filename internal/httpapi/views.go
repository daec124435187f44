package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/internal/viewstate"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type viewsHandler struct {
	views  *service.Views
	logger logger.Logger
}

type createViewRequest struct {
	Mine bool `json:"mine"`
}

type searchRequest struct {
	Search string `json:"search" binding:"max=200"`
}

type filterRequest struct {
	Axis  string `json:"axis" binding:"required"`
	Value string `json:"value"`
}

// sortRequest: key переключает сортировку как клик по колонке, sort задает ее целиком ("price-desc").
type sortRequest struct {
	Key  string `json:"key" binding:"required_without=Sort"`
	Sort string `json:"sort" binding:"required_without=Key"`
}

type pageRequest struct {
	Page int `json:"page" binding:"required"`
}

type viewResponse struct {
	ID     string          `json:"id"`
	State  viewstate.State `json:"state"`
	Result query.Result    `json:"result"`
}

func newViewsHandler(views *service.Views, log logger.Logger) viewsHandler {
	return viewsHandler{views: views, logger: log}
}

func (h viewsHandler) create(c *gin.Context) {
	var req createViewRequest
	if c.Request.ContentLength != 0 && !bindBody(c, &req) {
		return
	}

	principal := userID(c)
	if req.Mine && principal == "" {
		writeError(c, http.StatusForbidden, "mine requires "+UserHeader+" header")
		return
	}

	id, res, err := h.views.Create(principal, req.Mine)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ctrl, err := h.views.Get(id, principal)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, viewResponse{ID: id, State: ctrl.State(), Result: res})
}

func (h viewsHandler) get(c *gin.Context) {
	res, err := h.views.Result(c.Param("id"), userID(c))
	h.respond(c, res, err)
}

func (h viewsHandler) search(c *gin.Context) {
	var req searchRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.views.Apply(c.Param("id"), userID(c), func(ctrl *viewstate.Controller) (query.Result, error) {
		return ctrl.SetSearch(req.Search), nil
	})
	h.respond(c, res, err)
}

func (h viewsHandler) filter(c *gin.Context) {
	var req filterRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.views.Apply(c.Param("id"), userID(c), func(ctrl *viewstate.Controller) (query.Result, error) {
		return ctrl.SetFilter(req.Axis, req.Value)
	})
	h.respond(c, res, err)
}

func (h viewsHandler) sort(c *gin.Context) {
	var req sortRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.views.Apply(c.Param("id"), userID(c), func(ctrl *viewstate.Controller) (query.Result, error) {
		if req.Sort != "" {
			s, err := query.ParseSort(req.Sort)
			if err != nil {
				return query.Result{}, err
			}
			return ctrl.SetSortSpec(s)
		}
		return ctrl.SetSort(req.Key)
	})
	h.respond(c, res, err)
}

func (h viewsHandler) page(c *gin.Context) {
	var req pageRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.views.Apply(c.Param("id"), userID(c), func(ctrl *viewstate.Controller) (query.Result, error) {
		return ctrl.SetPage(req.Page), nil
	})
	h.respond(c, res, err)
}

func (h viewsHandler) reset(c *gin.Context) {
	res, err := h.views.Apply(c.Param("id"), userID(c), func(ctrl *viewstate.Controller) (query.Result, error) {
		return ctrl.Reset(), nil
	})
	h.respond(c, res, err)
}

func (h viewsHandler) remove(c *gin.Context) {
	if err := h.views.Delete(c.Param("id"), userID(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h viewsHandler) respond(c *gin.Context, res query.Result, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	id := c.Param("id")
	ctrl, err := h.views.Get(id, userID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse{ID: id, State: ctrl.State(), Result: res})
}
