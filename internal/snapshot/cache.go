// Package snapshot держит в памяти неизменяемый снимок событий, над которым работает движок запросов.
package snapshot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// Source отдает полный набор событий.
type Source interface {
	Snapshot(ctx context.Context) ([]query.Event, error)
	Name() string
}

// Snapshot - загруженный набор событий. После публикации не изменяется.
type Snapshot struct {
	Events   []query.Event
	LoadedAt time.Time
}

// Cache хранит последний успешно загруженный снимок. Читатели получают
// указатель без блокировок; неудачная загрузка оставляет предыдущий снимок.
type Cache struct {
	source Source
	logger logger.Logger
	now    func() time.Time

	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // сериализует Refresh

	onRefresh []func(*Snapshot)
}

func NewCache(source Source, logger logger.Logger) *Cache {
	c := &Cache{
		source: source,
		logger: logger,
		now:    time.Now,
	}
	c.current.Store(&Snapshot{Events: []query.Event{}})
	return c
}

// OnRefresh регистрирует обработчик, который вызывается после каждой успешной загрузки.
func (c *Cache) OnRefresh(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = append(c.onRefresh, fn)
}

// Refresh перечитывает источник и публикует новый снимок.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	events, err := c.source.Snapshot(ctx)
	if err != nil {
		metrics.RecordSnapshotRefresh(c.source.Name(), 0, time.Time{}, err)
		c.logger.Error("Failed to refresh snapshot", "source", c.source.Name(), "error", err)
		return c.current.Load(), fmt.Errorf("failed to load snapshot from %s: %w", c.source.Name(), err)
	}
	if events == nil {
		events = []query.Event{}
	}

	snap := &Snapshot{Events: events, LoadedAt: c.now()}
	c.current.Store(snap)
	metrics.RecordSnapshotRefresh(c.source.Name(), len(events), snap.LoadedAt, nil)

	c.logger.Debug("Snapshot refreshed",
		"source", c.source.Name(),
		"events", len(events),
		"duration", snap.LoadedAt.Sub(start),
	)

	for _, fn := range c.onRefresh {
		fn(snap)
	}

	return snap, nil
}

// Current возвращает последний опубликованный снимок.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Events - события текущего снимка. Срез нельзя изменять.
func (c *Cache) Events() []query.Event {
	return c.current.Load().Events
}

// Loaded возвращает время загрузки и размер снимка; подходит для проверки свежести в health.
func (c *Cache) Loaded() (time.Time, int) {
	snap := c.current.Load()
	return snap.LoadedAt, len(snap.Events)
}
