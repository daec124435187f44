package dataloader

import (
	"context"
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
)

// EventLister источник истины (база).
type EventLister interface {
	GetEvents(ctx context.Context) ([]query.Event, error)
}

// BulkIndexer принимает события для индексации.
type BulkIndexer interface {
	BulkIndexEvents(ctx context.Context, events []query.Event) error
}

// DocumentCounter считает документы в индексе.
type DocumentCounter interface {
	Count(ctx context.Context) (int64, error)
}

// IndexRecreator пересоздает индекс с нуля.
type IndexRecreator interface {
	RecreateIndex(ctx context.Context) error
}

// SyncStatus представляет состояние синхронизации между базой и OpenSearch
type SyncStatus struct {
	StoreCount      int       `json:"store_count"`
	OpenSearchCount int       `json:"opensearch_count"`
	InSync          bool      `json:"in_sync"`
	Difference      int       `json:"difference"`
	LastChecked     time.Time `json:"last_checked"`
}

// SyncResult содержит результаты операции синхронизации
type SyncResult struct {
	EventsProcessed int           `json:"events_processed"`
	EventsSucceeded int           `json:"events_succeeded"`
	EventsFailed    int           `json:"events_failed"`
	Duration        time.Duration `json:"duration"`
	StartedAt       time.Time     `json:"started_at"`
}
