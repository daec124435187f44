// Package client держит подключение к OpenSearch и единый способ выполнять запросы к индексу событий.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// StatusError - ответ кластера с кодом 4xx/5xx.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("opensearch %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("opensearch %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Retryable сообщает, имеет ли смысл повторять запрос.
func (e *StatusError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// IsNotFound - true, если err содержит ответ 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

type Client struct {
	api   *opensearch.Client
	index string
	batch int
	log   logger.Logger
}

func New(cfg *Config, log logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid opensearch config: %w", err)
	}

	api, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   cfg.MaxIdleConns,
			ResponseHeaderTimeout: cfg.Timeout,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		},
		RetryOnStatus: cfg.RetryOnStatus,
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Client{api: api, index: cfg.IndexName, batch: batch, log: log}, nil
}

// Index - имя индекса событий.
func (c *Client) Index() string { return c.index }

// BatchSize - размер пачки для bulk-запросов и постраничной выгрузки.
func (c *Client) BatchSize() int { return c.batch }

// Do выполняет запрос и записывает метрику операции op. Ответ с ошибочным статусом
// закрывается и возвращается как *StatusError; иначе тело закрывает вызывающий.
func (c *Client) Do(ctx context.Context, op string, req opensearchapi.Request) (*opensearchapi.Response, error) {
	var res *opensearchapi.Response

	err := metrics.OpenSearchInterceptor(op, c.index, func() error {
		var err error
		res, err = req.Do(ctx, c.api)
		if err != nil {
			return fmt.Errorf("opensearch %s: %w", op, err)
		}
		if res.IsError() {
			body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
			res.Body.Close()
			return &StatusError{Op: op, Status: res.StatusCode, Body: string(body)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Ping проверяет, что кластер отвечает.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.Do(ctx, "ping", opensearchapi.PingRequest{})
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

// WaitReady пингует кластер до attempts раз с паузой interval.
func (c *Client) WaitReady(ctx context.Context, attempts int, interval time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = c.Ping(ctx); err == nil {
			return nil
		}
		c.log.Warn("OpenSearch is not ready yet", "attempt", i, "attempts", attempts, "error", err)

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for opensearch: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("opensearch is not ready after %d attempts: %w", attempts, err)
}
