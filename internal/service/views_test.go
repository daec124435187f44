package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/viewstate"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newViews(events []query.Event, maxViews int) (*Views, *clock) {
	clk := &clock{t: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	settings := DefaultSettings()
	settings.PageSize = 2

	v := NewViews(&staticSnapshots{events: events}, settings, 30*time.Minute, maxViews, logger.NewNop())
	v.now = clk.now
	return v, clk
}

func TestViews_CreateAndApply(t *testing.T) {
	v, _ := newViews(sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)), 10)

	id, res, err := v.Create("", false)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 7, res.TotalMatches)
	assert.Equal(t, 4, res.TotalPages)
	assert.Equal(t, []int{1, 2, 3, 4}, res.Pages)

	res, err = v.Apply(id, "", func(c *viewstate.Controller) (query.Result, error) {
		return c.SetFilter(query.AxisEventType, "meetup")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalMatches)

	_, err = v.Apply(id, "", func(c *viewstate.Controller) (query.Result, error) {
		return c.SetFilter("colour", "red")
	})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, 2, mustGet(t, v, id).Result().TotalMatches)
}

func TestViews_OwnerScoped(t *testing.T) {
	v, _ := newViews(sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)), 10)

	_, res, err := v.Create("u1", true)
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalMatches)
}

func TestViews_OwnedViewRejectsOtherUsers(t *testing.T) {
	events := sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	v, _ := newViews(events, 10)

	_, _, err := v.Create("", true)
	assert.ErrorIs(t, err, ErrForbidden)

	id, _, err := v.Create("u1", true)
	require.NoError(t, err)

	for _, principal := range []string{"", "u2"} {
		_, err = v.Result(id, principal)
		assert.ErrorIs(t, err, ErrForbidden, principal)

		_, err = v.Apply(id, principal, func(c *viewstate.Controller) (query.Result, error) { return c.Reset(), nil })
		assert.ErrorIs(t, err, ErrForbidden, principal)

		assert.ErrorIs(t, v.Delete(id, principal), ErrForbidden, principal)
	}

	res, err := v.Result(id, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalMatches)
	require.NoError(t, v.Delete(id, "u1"))
	assert.Equal(t, 0, v.Len())
}

func TestViews_AnonymousViewIsSharedByID(t *testing.T) {
	v, _ := newViews(sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)), 10)

	id, _, err := v.Create("", false)
	require.NoError(t, err)

	_, err = v.Result(id, "u2")
	assert.NoError(t, err)

	named, _, err := v.Create("u1", false)
	require.NoError(t, err)
	_, err = v.Result(named, "u2")
	assert.ErrorIs(t, err, ErrForbidden, "creator pins the view even without mine")
}

func TestViews_UnknownID(t *testing.T) {
	v, _ := newViews(nil, 10)

	_, err := v.Get("nope", "")
	assert.True(t, errors.Is(err, ErrViewNotFound))
	assert.True(t, errors.Is(v.Delete("nope", ""), ErrViewNotFound))

	_, err = v.Apply("nope", "", func(c *viewstate.Controller) (query.Result, error) { return c.Reset(), nil })
	assert.True(t, errors.Is(err, ErrViewNotFound))
}

func TestViews_PruneIdle(t *testing.T) {
	v, clk := newViews(sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)), 10)

	idle, _, err := v.Create("", false)
	require.NoError(t, err)

	clk.t = clk.t.Add(20 * time.Minute)
	active, _, err := v.Create("", false)
	require.NoError(t, err)

	clk.t = clk.t.Add(15 * time.Minute)
	assert.Equal(t, 1, v.Prune())

	_, err = v.Get(idle, "")
	assert.True(t, errors.Is(err, ErrViewNotFound))
	_, err = v.Get(active, "")
	assert.NoError(t, err)
}

func TestViews_CapPrunesBeforeRejecting(t *testing.T) {
	v, clk := newViews(nil, 2)

	_, _, err := v.Create("", false)
	require.NoError(t, err)
	_, _, err = v.Create("", false)
	require.NoError(t, err)

	_, _, err = v.Create("", false)
	assert.True(t, errors.Is(err, ErrTooManyViews))

	clk.t = clk.t.Add(time.Hour)
	_, _, err = v.Create("", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, v.Len())
}

func TestViews_SetRecordsReachesOpenViews(t *testing.T) {
	events := sampleEvents(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	v, _ := newViews(events, 10)

	id, _, err := v.Create("", false)
	require.NoError(t, err)

	v.SetRecords(events[:1])
	assert.Equal(t, 1, mustGet(t, v, id).Result().TotalMatches)
}

func mustGet(t *testing.T, v *Views, id string) *viewstate.Controller {
	t.Helper()
	ctrl, err := v.Get(id, "")
	require.NoError(t, err)
	return ctrl
}
