// Package mapping создает индекс событий с маппингом из events.json.
package mapping

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

//go:embed events.json
var eventsMapping []byte

type Manager struct {
	client *client.Client
	logger logger.Logger
}

func NewManager(c *client.Client, log logger.Logger) *Manager {
	return &Manager{client: c, logger: log}
}

// EnsureIndex создает индекс, если его еще нет. Маппинг существующего индекса не трогается.
func (m *Manager) EnsureIndex(ctx context.Context) error {
	res, err := m.client.Do(ctx, "index_exists", opensearchapi.IndicesExistsRequest{
		Index: []string{m.client.Index()},
	})
	switch {
	case client.IsNotFound(err):
		return m.create(ctx)
	case err != nil:
		return fmt.Errorf("failed to check index %s: %w", m.client.Index(), err)
	}
	res.Body.Close()

	m.logger.Info("OpenSearch index already exists", "index", m.client.Index())
	return nil
}

// RecreateIndex удаляет индекс вместе с документами и создает пустой.
func (m *Manager) RecreateIndex(ctx context.Context) error {
	res, err := m.client.Do(ctx, "index_delete", opensearchapi.IndicesDeleteRequest{
		Index: []string{m.client.Index()},
	})
	if err != nil && !client.IsNotFound(err) {
		return fmt.Errorf("failed to delete index %s: %w", m.client.Index(), err)
	}
	if res != nil {
		res.Body.Close()
	}

	m.logger.Warn("OpenSearch index dropped", "index", m.client.Index())
	return m.create(ctx)
}

func (m *Manager) create(ctx context.Context) error {
	res, err := m.client.Do(ctx, "index_create", opensearchapi.IndicesCreateRequest{
		Index: m.client.Index(),
		Body:  bytes.NewReader(eventsMapping),
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", m.client.Index(), err)
	}
	res.Body.Close()

	m.logger.Info("OpenSearch index created", "index", m.client.Index())
	return nil
}
