// Package source читает все события из индекса, чтобы построить снимок без обращения к базе.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/internal/opensearch/models"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// Source постранично выгружает индекс через search_after в порядке created_at DESC, id DESC.
// Фильтры и сортировка пользователя сюда не передаются: выборка делается в памяти.
type Source struct {
	client   *client.Client
	pageSize int
	logger   logger.Logger
}

func New(c *client.Client, logger logger.Logger) *Source {
	return &Source{client: c, pageSize: c.BatchSize(), logger: logger}
}

// Name - метка источника в метриках.
func (s *Source) Name() string {
	return "opensearch"
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.EventDocument `json:"_source"`
			Sort   []any                `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// Snapshot возвращает все документы индекса.
func (s *Source) Snapshot(ctx context.Context) ([]query.Event, error) {
	events := []query.Event{}
	var after []any

	for {
		page, next, err := s.fetchPage(ctx, after)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)

		if len(page) < s.pageSize || next == nil {
			break
		}
		after = next
	}

	metrics.UpdateOpenSearchDocuments(s.client.Index(), int64(len(events)))
	s.logger.Debug("Snapshot loaded from OpenSearch",
		"index", s.client.Index(),
		"events", len(events),
	)

	return events, nil
}

func (s *Source) fetchPage(ctx context.Context, after []any) ([]query.Event, []any, error) {
	body := map[string]any{
		"size":  s.pageSize,
		"query": map[string]any{"match_all": map[string]any{}},
		"sort": []any{
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "desc"},
		},
	}
	if after != nil {
		body["search_after"] = after
	}

	queryBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal snapshot query: %w", err)
	}

	res, err := s.client.Do(ctx, "snapshot", opensearchapi.SearchRequest{
		Index: []string{s.client.Index()},
		Body:  bytes.NewReader(queryBody),
	})
	if err != nil {
		s.logger.Error("OpenSearch snapshot query failed", "error", err)
		return nil, nil, err
	}
	defer res.Body.Close()

	var response searchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := response.Hits.Hits
	events := make([]query.Event, 0, len(hits))
	for i := range hits {
		events = append(events, hits[i].Source.ToEvent())
	}

	var next []any
	if len(hits) > 0 {
		next = hits[len(hits)-1].Sort
	}

	return events, next, nil
}

// Count возвращает количество документов в индексе.
func (s *Source) Count(ctx context.Context) (int64, error) {
	res, err := s.client.Do(ctx, "count", opensearchapi.CountRequest{
		Index: []string{s.client.Index()},
	})
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	var reply struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	metrics.UpdateOpenSearchDocuments(s.client.Index(), reply.Count)
	return reply.Count, nil
}
