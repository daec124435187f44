package httpapi

import (
	"fmt"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/service"
)

// listRequest - параметры строки запроса GET /v1/events. Каждое значение фильтра проходит через query.Filters.Set.
type listRequest struct {
	Search    string `form:"search" binding:"max=200"`
	EventType string `form:"eventType"`
	DateRange string `form:"dateRange"`
	Privacy   string `form:"isPrivate"`
	Price     string `form:"price"`
	Location  string `form:"location"`
	Sort      string `form:"sort"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Mine      bool   `form:"mine"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	MaxPrice  string `form:"max_price"`
}

func (r listRequest) toParams(owner string) (query.Params, error) {
	p := query.DefaultParams()
	p.PageSize = r.PageSize
	p.Search = r.Search
	p.Page = max(r.Page, 1)

	sort, err := query.ParseSort(r.Sort)
	if err != nil {
		return p, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	p.Sort = sort

	f := query.Filters{}
	for _, axis := range []struct{ name, value string }{
		{query.AxisEventType, r.EventType},
		{query.AxisDateRange, r.DateRange},
		{query.AxisPrivacy, r.Privacy},
		{query.AxisPrice, r.Price},
		{query.AxisLocation, r.Location},
		{query.AxisDateFrom, r.DateFrom},
		{query.AxisDateTo, r.DateTo},
		{query.AxisMaxPrice, r.MaxPrice},
	} {
		if axis.value == "" {
			continue
		}
		if f, err = f.Set(axis.name, axis.value); err != nil {
			return p, err
		}
	}

	if r.Mine {
		if owner == "" {
			return p, fmt.Errorf("mine requires %s header: %w", UserHeader, service.ErrForbidden)
		}
		f.OwnerID = owner
	}

	p.Filters = f
	return p, nil
}
