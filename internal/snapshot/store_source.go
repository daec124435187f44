package snapshot

import (
	"context"

	"github.com/rx3lixir/event-listing/internal/query"
)

// EventLister - часть хранилища, нужная для загрузки снимка.
type EventLister interface {
	GetEvents(ctx context.Context) ([]query.Event, error)
}

// StoreSource читает снимок напрямую из базы.
type StoreSource struct {
	store EventLister
}

func NewStoreSource(store EventLister) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) Name() string { return "store" }

func (s *StoreSource) Snapshot(ctx context.Context) ([]query.Event, error) {
	return s.store.GetEvents(ctx)
}
