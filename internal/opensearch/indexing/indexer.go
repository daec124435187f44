// Package indexing зеркалирует события из базы в индекс OpenSearch.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/internal/opensearch/models"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// ItemsError - bulk-запрос прошел, но кластер отверг каждый документ пачки.
type ItemsError struct {
	Failed int
	Sample []string
}

func (e *ItemsError) Error() string {
	return fmt.Sprintf("all %d bulk items rejected: %s", e.Failed, strings.Join(e.Sample, "; "))
}

type Indexer struct {
	client *client.Client
	retry  *RetryLogic
	logger logger.Logger
}

func NewIndexer(c *client.Client, retry *RetryLogic, logger logger.Logger) *Indexer {
	return &Indexer{client: c, retry: retry, logger: logger}
}

// IndexEvent создает или перезаписывает документ события.
func (x *Indexer) IndexEvent(ctx context.Context, event *query.Event) error {
	doc := models.FromEvent(event)
	if err := doc.ValidateForIndexing(); err != nil {
		return fmt.Errorf("event %s cannot be indexed: %w", doc.ID, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", doc.ID, err)
	}

	return x.retry.Do(ctx, "index", func(ctx context.Context) error {
		res, err := x.client.Do(ctx, "index", opensearchapi.IndexRequest{
			Index:      x.client.Index(),
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		})
		if err != nil {
			return err
		}
		res.Body.Close()

		x.logger.Debug("Event indexed", "event_id", doc.ID)
		return nil
	})
}

// DeleteEvent удаляет документ. Отсутствующий документ ошибкой не считается.
func (x *Indexer) DeleteEvent(ctx context.Context, eventID string) error {
	return x.retry.Do(ctx, "delete", func(ctx context.Context) error {
		res, err := x.client.Do(ctx, "delete", opensearchapi.DeleteRequest{
			Index:      x.client.Index(),
			DocumentID: eventID,
			Refresh:    "true",
		})
		if client.IsNotFound(err) {
			x.logger.Debug("Event was not in the index", "event_id", eventID)
			return nil
		}
		if err != nil {
			return err
		}
		res.Body.Close()
		return nil
	})
}

// BulkIndexEvents индексирует события пачками по BatchSize. Невалидные записи
// пропускаются. Пачка с частично отвергнутыми документами ошибкой не считается.
func (x *Indexer) BulkIndexEvents(ctx context.Context, events []query.Event) error {
	docs := make([]*models.EventDocument, 0, len(events))
	for _, doc := range models.FromEvents(events) {
		if err := doc.ValidateForIndexing(); err != nil {
			x.logger.Warn("Skipping event that cannot be indexed", "event_id", doc.ID, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	size := x.client.BatchSize()
	for start := 0; start < len(docs); start += size {
		batch := docs[start:min(start+size, len(docs))]

		body, err := x.ndjson(batch)
		if err != nil {
			return err
		}

		err = x.retry.Do(ctx, "bulk", func(ctx context.Context) error {
			return x.sendBulk(ctx, body, len(batch))
		})
		if err != nil {
			return fmt.Errorf("bulk batch starting at %d: %w", start, err)
		}
	}

	return nil
}

// ndjson: на каждый документ строка действия и строка с самим документом.
func (x *Indexer) ndjson(docs []*models.EventDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, doc := range docs {
		action := map[string]map[string]string{
			"index": {"_index": x.client.Index(), "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode event %s: %w", doc.ID, err)
		}
	}

	return buf.Bytes(), nil
}

type bulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (x *Indexer) sendBulk(ctx context.Context, body []byte, size int) error {
	res, err := x.client.Do(ctx, "bulk", opensearchapi.BulkRequest{
		Body:    bytes.NewReader(body),
		Refresh: "true",
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var reply struct {
		Errors bool                  `json:"errors"`
		Items  []map[string]bulkItem `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if !reply.Errors {
		x.logger.Debug("Bulk batch indexed", "documents", size)
		return nil
	}

	var failed []string
	for _, item := range reply.Items {
		for _, result := range item {
			if result.Error != nil {
				failed = append(failed, fmt.Sprintf("%s: %s %s", result.ID, result.Error.Type, result.Error.Reason))
			}
		}
	}

	if len(failed) == len(reply.Items) {
		return &ItemsError{Failed: len(failed), Sample: failed[:min(5, len(failed))]}
	}

	x.logger.Warn("Bulk batch partially rejected",
		"documents", size,
		"rejected", len(failed),
		"sample", failed[:min(5, len(failed))],
	)
	return nil
}

func isItemsError(err error) bool {
	var ie *ItemsError
	return errors.As(err, &ie)
}
