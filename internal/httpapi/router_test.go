package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/rx3lixir/event-listing/internal/calendar"
	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/service"
	"github.com/rx3lixir/event-listing/internal/snapshot"
	"github.com/rx3lixir/event-listing/pkg/health"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type RouterTestSuite struct {
	suite.Suite

	store  *db.SQLiteStore
	cache  *snapshot.Cache
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	ctx := context.Background()

	store, err := db.OpenSQLite(ctx, ":memory:")
	s.Require().NoError(err)
	s.store = store

	base := time.Now().UTC().Truncate(time.Second)
	types := []string{"workshop", "meetup", "concert", "workshop"}
	for i, typ := range types {
		price := float64(i * 100)
		_, err := store.CreateEvent(ctx, &query.Event{
			ID:        fmt.Sprintf("e%d", i+1),
			Title:     fmt.Sprintf("Event %d", i+1),
			Location:  []string{"Kyiv", "Lviv"}[i%2],
			StartDate: base.AddDate(0, 0, 2*(i+1)),
			EventType: &typ,
			Price:     &price,
			OwnerID:   []string{"u1", "u2"}[i%2],
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		s.Require().NoError(err)
	}

	s.cache = snapshot.NewCache(snapshot.NewStoreSource(store), logger.NewNop())
	_, err = s.cache.Refresh(ctx)
	s.Require().NoError(err)

	settings := service.DefaultSettings()
	settings.PageSize = 2

	h := health.New("event-listing", "test")
	h.AddCheck("database", health.PingChecker(store.Ping))

	router, err := NewRouter("test", Deps{
		Listing: service.NewListing(s.cache, settings, logger.NewNop()),
		Events: service.NewEvents(store, nil, service.RefresherFunc(func(ctx context.Context) error {
			_, err := s.cache.Refresh(ctx)
			return err
		}), logger.NewNop()),
		Registrations: service.NewRegistrations(store, store, logger.NewNop()),
		Views:         service.NewViews(s.cache, settings, time.Hour, 10, logger.NewNop()),
		Calendar:      calendar.Feed{Name: "Events"},
		Health:        h,
		Logger:        logger.NewNop(),
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *RouterTestSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *RouterTestSuite) do(method, path, user string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(UserHeader, user)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Result    query.Result `json:"result"`
	HasActive bool         `json:"has_active"`
}

func (s *RouterTestSuite) list(path, user string) listResponse {
	rec := s.do(http.MethodGet, path, user, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var resp listResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func resultIDs(res query.Result) []string {
	out := make([]string, 0, len(res.Items))
	for _, ev := range res.Items {
		out = append(out, ev.ID)
	}
	return out
}

func (s *RouterTestSuite) TestListDefaults() {
	resp := s.list("/v1/events", "")

	s.False(resp.HasActive)
	s.Equal(4, resp.Result.TotalMatches)
	s.Equal(2, resp.Result.TotalPages)
	s.Equal([]string{"e4", "e3"}, resultIDs(resp.Result))
	s.Equal([]string{"Kyiv", "Lviv"}, resp.Result.Locations)
}

func (s *RouterTestSuite) TestListFiltersAndSort() {
	resp := s.list("/v1/events?eventType=workshop&sort=price-desc", "")
	s.True(resp.HasActive)
	s.Equal([]string{"e4", "e1"}, resultIDs(resp.Result))

	resp = s.list("/v1/events?price=free", "")
	s.Equal([]string{"e1"}, resultIDs(resp.Result))

	resp = s.list("/v1/events?dateRange=this-week&sort=date-asc", "")
	s.Equal(3, resp.Result.TotalMatches)
	s.Equal([]string{"e1", "e2"}, resultIDs(resp.Result))

	resp = s.list("/v1/events?search=EVENT%202", "")
	s.Equal([]string{"e2"}, resultIDs(resp.Result))

	resp = s.list("/v1/events?page=99", "")
	s.Equal(2, resp.Result.Page)

	resp = s.list("/v1/events?max_price=150", "")
	s.Equal([]string{"e2", "e1"}, resultIDs(resp.Result))

	from := time.Now().UTC().AddDate(0, 0, 5).Format(time.RFC3339)
	resp = s.list("/v1/events?date_from="+from, "")
	s.Equal([]string{"e4", "e3"}, resultIDs(resp.Result))
}

func (s *RouterTestSuite) TestListRejectsBadInput() {
	for _, path := range []string{
		"/v1/events?price=cheap",
		"/v1/events?sort=rating",
		"/v1/events?page_size=500",
		"/v1/events?date_from=yesterday",
		"/v1/events?date_from=2030-01-02&date_to=2030-01-01",
		"/v1/events?max_price=-1",
		"/v1/events?page=abc",
	} {
		rec := s.do(http.MethodGet, path, "", nil)
		s.Equal(http.StatusBadRequest, rec.Code, path)
	}
}

func (s *RouterTestSuite) TestListMine() {
	rec := s.do(http.MethodGet, "/v1/events?mine=true", "", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	resp := s.list("/v1/events?mine=true", "u2")
	s.Equal(2, resp.Result.TotalMatches)
	for _, ev := range resp.Result.Items {
		s.Equal("u2", ev.OwnerID)
	}
}

func (s *RouterTestSuite) TestLatestAndGet() {
	rec := s.do(http.MethodGet, "/v1/events/latest?limit=2", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var latest struct {
		Items []query.Event `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &latest))
	s.Require().Len(latest.Items, 2)
	s.Equal("e4", latest.Items[0].ID)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/v1/events/latest?limit=0", "", nil).Code)

	rec = s.do(http.MethodGet, "/v1/events/e2", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"Event 2"`)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/events/missing", "", nil).Code)
}

func (s *RouterTestSuite) TestCreateUpdateDelete() {
	body := map[string]any{
		"title":      "Новий захід",
		"location":   "Odesa",
		"start_date": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"event_type": "meetup",
	}

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/v1/events", "", body).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/v1/events", "u1", map[string]any{"title": 5}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/v1/events", "u1", map[string]any{"unknown": true}).Code)

	rec := s.do(http.MethodPost, "/v1/events", "u3", body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created query.Event
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.NotEmpty(created.ID)

	resp := s.list("/v1/events?location=Odesa", "")
	s.Equal([]string{created.ID}, resultIDs(resp.Result), "snapshot refreshed after write")

	body["title"] = "Оновлений захід"
	s.Equal(http.StatusForbidden, s.do(http.MethodPut, "/v1/events/"+created.ID, "u1", body).Code)

	rec = s.do(http.MethodPut, "/v1/events/"+created.ID, "u3", body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), "Оновлений захід")

	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/v1/events/nope", "u3", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/v1/events/not-a-uuid", "u3", body).Code)
	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/v1/events/"+created.ID, "u3", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/events/"+created.ID, "", nil).Code)
}

func (s *RouterTestSuite) TestOwnedEvents() {
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/v1/me/events", "", nil).Code)

	rec := s.do(http.MethodGet, "/v1/me/events", "u2", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var owned struct {
		Items []query.Event `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &owned))
	s.Equal([]string{"e4", "e2"}, resultIDs(query.Result{Items: owned.Items}))
}

type registrationBody struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

func (s *RouterTestSuite) TestRegistrations() {
	path := "/v1/events/e2/registrations"

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, path, "", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/v1/events/missing/registrations", "u1", nil).Code)

	rec := s.do(http.MethodPost, path, "u1", nil)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var reg registrationBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &reg))
	s.Equal("pending", reg.Status)

	s.Equal(http.StatusConflict, s.do(http.MethodPost, path, "u1", nil).Code)

	rec = s.do(http.MethodGet, path, "u2", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list struct {
		Items []registrationBody `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	s.Require().Len(list.Items, 1)
	s.Equal("u1", list.Items[0].UserID)

	status := path + "/" + reg.ID
	s.Equal(http.StatusForbidden, s.do(http.MethodPut, status, "u1", map[string]string{"status": "confirmed"}).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, status, "u2", map[string]string{"status": "maybe"}).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPut, path+"/missing", "u2", map[string]string{"status": "confirmed"}).Code)

	rec = s.do(http.MethodPut, status, "u2", map[string]string{"status": "confirmed"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), `"confirmed"`)

	s.Equal(http.StatusConflict, s.do(http.MethodPut, status, "u2", map[string]string{"status": "pending"}).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPut, status, "u1", map[string]string{"status": "cancelled"}).Code)
}

func (s *RouterTestSuite) TestCalendar() {
	rec := s.do(http.MethodGet, "/v1/calendar.ics?eventType=workshop", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	s.Equal(2, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
}

type viewBody struct {
	ID     string       `json:"id"`
	Result query.Result `json:"result"`
	State  struct {
		Sort   query.Sort `json:"sort"`
		Search string     `json:"search"`
		Page   int        `json:"page"`
	} `json:"state"`
}

func (s *RouterTestSuite) view(rec *httptest.ResponseRecorder, status int) viewBody {
	s.Require().Equal(status, rec.Code, rec.Body.String())
	var v viewBody
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *RouterTestSuite) TestViewLifecycle() {
	v := s.view(s.do(http.MethodPost, "/v1/views", "", nil), http.StatusCreated)
	s.Require().NotEmpty(v.ID)
	s.Equal(4, v.Result.TotalMatches)
	s.Equal(query.DefaultSort, v.State.Sort)

	path := "/v1/views/" + v.ID

	v = s.view(s.do(http.MethodPut, path+"/page", "", map[string]int{"page": 2}), http.StatusOK)
	s.Equal(2, v.State.Page)

	v = s.view(s.do(http.MethodPut, path+"/filter", "", map[string]string{"axis": "eventType", "value": "workshop"}), http.StatusOK)
	s.Equal(1, v.State.Page)
	s.Equal(2, v.Result.TotalMatches)

	v = s.view(s.do(http.MethodPut, path+"/sort", "", map[string]string{"key": "price"}), http.StatusOK)
	s.Equal(query.Sort{Key: query.SortByPrice, Direction: query.Asc}, v.State.Sort)
	s.Equal([]string{"e1", "e4"}, resultIDs(v.Result))

	v = s.view(s.do(http.MethodPut, path+"/sort", "", map[string]string{"key": "price"}), http.StatusOK)
	s.Equal([]string{"e4", "e1"}, resultIDs(v.Result))

	v = s.view(s.do(http.MethodPut, path+"/sort", "", map[string]string{"sort": "title-asc"}), http.StatusOK)
	s.Equal(query.Sort{Key: query.SortByTitle, Direction: query.Asc}, v.State.Sort)

	v = s.view(s.do(http.MethodPut, path+"/search", "", map[string]string{"search": "event 4"}), http.StatusOK)
	s.Equal([]string{"e4"}, resultIDs(v.Result))

	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, path+"/filter", "", map[string]string{"axis": "colour", "value": "red"}).Code)

	v = s.view(s.do(http.MethodGet, path, "", nil), http.StatusOK)
	s.Equal("event 4", v.State.Search)

	v = s.view(s.do(http.MethodPost, path+"/reset", "", nil), http.StatusOK)
	s.Equal(4, v.Result.TotalMatches)
	s.Empty(v.State.Search)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, "", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, "", nil).Code)
}

func (s *RouterTestSuite) TestMineView() {
	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/v1/views", "", map[string]bool{"mine": true}).Code)

	v := s.view(s.do(http.MethodPost, "/v1/views", "u1", map[string]bool{"mine": true}), http.StatusCreated)
	s.Equal(2, v.Result.TotalMatches)

	v = s.view(s.do(http.MethodPost, "/v1/views/"+v.ID+"/reset", "u1", nil), http.StatusOK)
	s.Equal(2, v.Result.TotalMatches, "owner scope survives reset")
}

func (s *RouterTestSuite) TestViewBelongsToCreator() {
	v := s.view(s.do(http.MethodPost, "/v1/views", "u1", map[string]bool{"mine": true}), http.StatusCreated)
	path := "/v1/views/" + v.ID

	s.Equal(http.StatusForbidden, s.do(http.MethodGet, path, "u2", nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, path, "", nil).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodPut, path+"/page", "u2", map[string]int{"page": 2}).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodDelete, path, "u2", nil).Code)

	s.view(s.do(http.MethodGet, path, "u1", nil), http.StatusOK)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, "u1", nil).Code)
}

func (s *RouterTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"UP"`)
}
