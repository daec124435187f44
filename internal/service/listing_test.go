package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

func newListing(events []query.Event, now time.Time) *Listing {
	settings := DefaultSettings()
	settings.PageSize = 3
	settings.PageWindow = 2

	l := NewListing(&staticSnapshots{events: events}, settings, logger.NewNop())
	l.now = func() time.Time { return now }
	return l
}

func TestListing_ListFillsDefaults(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	l := newListing(sampleEvents(base), base)

	res := l.List(WithOrigin(context.Background(), "test"), query.Params{Sort: query.DefaultSort, Page: 1})

	assert.Equal(t, 7, res.TotalMatches)
	assert.Equal(t, 3, res.PageSize)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, []int{1, 2}, res.Pages)
	assert.Equal(t, "e7", res.Items[0].ID, "date desc")
	assert.Equal(t, []string{"Kyiv", "Lviv"}, res.Locations)
}

func TestListing_DateBucketUsesServiceClock(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	l := newListing(sampleEvents(base), base.AddDate(0, 0, 3))

	p := l.Params()
	p.Filters = query.NewFilters(query.WithDateRange(query.DateToday))

	res := l.List(context.Background(), p)
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "e4", res.Items[0].ID)
}

func TestListing_Latest(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	l := newListing(sampleEvents(base), base)

	latest := l.Latest(context.Background(), 0)
	assert.Len(t, latest, query.DefaultLatest)
	assert.Equal(t, "e1", latest[0].ID)

	assert.Len(t, l.Latest(context.Background(), 2), 2)
}

func TestListing_Get(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	l := newListing(sampleEvents(base), base)

	ev, err := l.Get(context.Background(), "e5")
	require.NoError(t, err)
	assert.Equal(t, "Event 5", ev.Title)

	_, err = l.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrEventNotFound))
}

func TestListing_MatchedIsUnpaged(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	l := newListing(sampleEvents(base), base)

	p := l.Params()
	p.Filters = query.NewFilters(query.WithLocation("Kyiv"))

	matched := l.Matched(context.Background(), p)
	assert.Len(t, matched, 4)
}
