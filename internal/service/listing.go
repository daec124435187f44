package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// Listing отвечает на запросы списка над текущим снимком.
type Listing struct {
	snapshots Snapshots
	settings  Settings
	logger    logger.Logger
	now       func() time.Time
}

func NewListing(snapshots Snapshots, settings Settings, logger logger.Logger) *Listing {
	return &Listing{
		snapshots: snapshots,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
	}
}

// Params возвращает параметры по умолчанию с учетом настроек сервиса.
func (l *Listing) Params() query.Params {
	p := query.DefaultParams()
	p.PageSize = l.settings.PageSize
	return p
}

// List выполняет запрос. Незаполненные PageSize, Now, TZ и Collation берутся из настроек.
func (l *Listing) List(ctx context.Context, p query.Params) query.Result {
	p = l.complete(p)

	start := time.Now()
	res := query.Execute(l.snapshots.Events(), p)
	res.Pages = query.PageWindow(res.Page, res.TotalPages, l.settings.PageWindow)
	duration := time.Since(start)

	origin := originFrom(ctx)
	metrics.RecordQuery(origin, res.TotalMatches, duration)

	l.logger.Debug("Listing query executed",
		"origin", origin,
		"search", p.Search,
		"sort", p.Sort.String(),
		"page", res.Page,
		"total_matches", res.TotalMatches,
		"duration", duration,
	)

	return res
}

// Latest - последние созданные события для карусели.
func (l *Listing) Latest(ctx context.Context, n int) []query.Event {
	if n <= 0 {
		n = l.settings.Latest
	}
	return query.Latest(l.snapshots.Events(), n)
}

// Get ищет событие в снимке по ID.
func (l *Listing) Get(ctx context.Context, id string) (query.Event, error) {
	for _, ev := range l.snapshots.Events() {
		if ev.ID == id && ev.Valid() {
			return ev, nil
		}
	}
	return query.Event{}, fmt.Errorf("event %s: %w", id, ErrEventNotFound)
}

// Matched возвращает все подходящие события без пагинации (календарная выгрузка).
func (l *Listing) Matched(ctx context.Context, p query.Params) []query.Event {
	p = l.complete(p)
	return query.Matched(l.snapshots.Events(), p)
}

func (l *Listing) complete(p query.Params) query.Params {
	if p.PageSize == 0 {
		p.PageSize = l.settings.PageSize
	}
	if p.Now.IsZero() {
		p.Now = l.now()
	}
	if p.TZ == nil {
		p.TZ = l.settings.TZ
	}
	if p.Collation == language.Und {
		p.Collation = l.settings.Collation
	}
	return p
}
