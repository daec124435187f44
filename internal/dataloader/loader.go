package dataloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// Loader копирует события из базы в индекс OpenSearch.
type Loader struct {
	store     EventLister
	indexer   BulkIndexer
	counter   DocumentCounter
	recreator IndexRecreator
	batchSize int
	logger    logger.Logger
}

func NewLoader(store EventLister, indexer BulkIndexer, counter DocumentCounter, recreator IndexRecreator, batchSize int, logger logger.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Loader{
		store:     store,
		indexer:   indexer,
		counter:   counter,
		recreator: recreator,
		batchSize: batchSize,
		logger:    logger,
	}
}

// InitializeOpenSearchData заливает события в пустой индекс. Если в индексе уже есть документы, ничего не делает.
func (l *Loader) InitializeOpenSearchData(ctx context.Context) (*SyncResult, error) {
	l.logger.Info("Initializing OpenSearch data from store...")

	events, err := l.store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events from store: %w", err)
	}

	if len(events) == 0 {
		l.logger.Info("No events found in store, skipping OpenSearch initialization")
		return &SyncResult{StartedAt: time.Now()}, nil
	}

	existing, err := l.counter.Count(ctx)
	if err != nil {
		l.logger.Warn("Failed to check existing OpenSearch data, proceeding with initialization", "error", err)
	} else if existing > 0 {
		l.logger.Info("OpenSearch already contains data, skipping bulk initialization",
			"existing_count", existing)
		return &SyncResult{StartedAt: time.Now()}, nil
	}

	result := l.indexInBatches(ctx, events)

	if result.EventsFailed > 0 {
		l.logger.Warn("OpenSearch initialization completed with errors",
			"total_events", result.EventsProcessed,
			"successfully_indexed", result.EventsSucceeded,
			"failed_to_index", result.EventsFailed,
		)

		// Ошибка только если не прошел ни один батч
		if result.EventsSucceeded == 0 {
			return result, fmt.Errorf("failed to index any events: %d total failures", result.EventsFailed)
		}
		return result, nil
	}

	l.logger.Info("OpenSearch initialization completed successfully",
		"events_indexed", result.EventsSucceeded,
		"duration", result.Duration,
	)

	return result, nil
}

// ForceSyncData пересоздает индекс и заливает все события заново.
func (l *Loader) ForceSyncData(ctx context.Context) (*SyncResult, error) {
	l.logger.Info("Starting forced data synchronization...")

	events, err := l.store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get events from store: %w", err)
	}

	if err := l.recreator.RecreateIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to recreate OpenSearch index: %w", err)
	}

	result := l.indexInBatches(ctx, events)
	if result.EventsFailed > 0 {
		return result, fmt.Errorf("forced sync failed for %d of %d events", result.EventsFailed, result.EventsProcessed)
	}

	l.logger.Info("Forced synchronization completed", "events_synced", result.EventsSucceeded)
	return result, nil
}

// CheckSyncStatus сравнивает количество событий в базе и в индексе.
func (l *Loader) CheckSyncStatus(ctx context.Context) (*SyncStatus, error) {
	events, err := l.store.GetEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get store events count: %w", err)
	}

	osCount, err := l.counter.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get OpenSearch events count: %w", err)
	}

	return &SyncStatus{
		StoreCount:      len(events),
		OpenSearchCount: int(osCount),
		InSync:          len(events) == int(osCount),
		Difference:      len(events) - int(osCount),
		LastChecked:     time.Now(),
	}, nil
}

// indexInBatches не останавливается на ошибке батча: один плохой батч не должен блокировать остальные.
func (l *Loader) indexInBatches(ctx context.Context, events []query.Event) *SyncResult {
	result := &SyncResult{StartedAt: time.Now(), EventsProcessed: len(events)}
	totalBatches := (len(events) + l.batchSize - 1) / l.batchSize

	for i := 0; i < len(events); i += l.batchSize {
		end := min(i+l.batchSize, len(events))
		batch := events[i:end]
		batchNum := i/l.batchSize + 1

		if err := l.indexer.BulkIndexEvents(ctx, batch); err != nil {
			l.logger.Error("Failed to index batch",
				"batch", batchNum,
				"total_batches", totalBatches,
				"batch_size", len(batch),
				"error", err)
			result.EventsFailed += len(batch)
			continue
		}

		result.EventsSucceeded += len(batch)
		l.logger.Debug("Batch indexed successfully",
			"batch", batchNum,
			"total_batches", totalBatches,
			"events_in_batch", len(batch))
	}

	result.Duration = time.Since(result.StartedAt)
	return result
}
