package indexing

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rx3lixir/event-listing/internal/opensearch/client"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

type fakeCluster struct {
	mu       sync.Mutex
	requests []recorded
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"}}`))
		return
	}

	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	f.respond(w, r)
}

func (f *fakeCluster) calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func newIndexer(t *testing.T, fake *fakeCluster, batchSize int) *Indexer {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := client.DefaultConfig()
	cfg.URL = srv.URL
	cfg.MaxRetries = 0
	cfg.BatchSize = batchSize

	c, err := client.New(cfg, logger.NewNop())
	require.NoError(t, err)

	retry := NewRetryLogic(logger.NewNop()).WithMaxRetries(2).WithBaseDelay(time.Millisecond)
	return NewIndexer(c, retry, logger.NewNop())
}

func event(id string) query.Event {
	return query.Event{
		ID:        id,
		Title:     "Event " + id,
		StartDate: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestIndexEvent(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}}
	m := newIndexer(t, fake, 10)

	ev := event("e1")
	require.NoError(t, m.IndexEvent(t.Context(), &ev))

	calls := fake.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].method)
	assert.Equal(t, "/events/_doc/e1", calls[0].path)
	assert.Contains(t, calls[0].body, `"title":"Event e1"`)
}

func TestIndexEvent_RejectsInvalidDocument(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {}}
	m := newIndexer(t, fake, 10)

	err := m.IndexEvent(t.Context(), &query.Event{ID: "e1"})
	assert.Error(t, err)
	assert.Empty(t, fake.calls())
}

func TestIndexEvent_RetriesServerErrors(t *testing.T) {
	var n int
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"result":"updated"}`))
	}}
	m := newIndexer(t, fake, 10)

	ev := event("e1")
	require.NoError(t, m.IndexEvent(t.Context(), &ev))
	assert.Len(t, fake.calls(), 2)
}

func TestIndexEvent_ClientErrorIsNotRetried(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	}}
	m := newIndexer(t, fake, 10)

	ev := event("e1")
	err := m.IndexEvent(t.Context(), &ev)
	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Len(t, fake.calls(), 1)
}

func TestDeleteEvent_NotFoundIsFine(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	}}
	m := newIndexer(t, fake, 10)

	require.NoError(t, m.DeleteEvent(t.Context(), "gone"))
	assert.Equal(t, http.MethodDelete, fake.calls()[0].method)
}

func TestBulkIndexEvents_BatchesNDJSON(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	}}
	m := newIndexer(t, fake, 2)

	events := []query.Event{event("a"), event("b"), {ID: "broken"}, event("c")}
	require.NoError(t, m.BulkIndexEvents(t.Context(), events))

	calls := fake.calls()
	require.Len(t, calls, 2, "three valid documents in batches of two")

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(calls[0].body))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)

	var action map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &action))
	assert.Equal(t, "a", action["index"]["_id"])
	assert.Equal(t, "events", action["index"]["_index"])
	assert.NotContains(t, calls[0].body+calls[1].body, "broken")
}

func TestBulkIndexEvents_AllItemsFailed(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}}]}`))
	}}
	m := newIndexer(t, fake, 10)

	err := m.BulkIndexEvents(t.Context(), []query.Event{event("a")})
	var itemsErr *ItemsError
	require.ErrorAs(t, err, &itemsErr)
	assert.Equal(t, 1, itemsErr.Failed)
	assert.Len(t, fake.calls(), 1, "rejected documents are not retried")
}

func TestBulkIndexEvents_PartialFailureTolerated(t *testing.T) {
	fake := &fakeCluster{respond: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400,"error":{"type":"x","reason":"y"}}}]}`))
	}}
	m := newIndexer(t, fake, 10)

	assert.NoError(t, m.BulkIndexEvents(t.Context(), []query.Event{event("a"), event("b")}))
}
