// Package metrics - prometheus-метрики сервиса. Все имена начинаются с event_listing_.
package metrics

import (
	"path"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "event_listing"

var (
	fastBuckets  = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5}
	storeBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	indexBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func gauge(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

// Транспорт
var (
	GrpcRequestsTotal   = counter("grpc", "requests_total", "gRPC requests by method and status code.", "service", "method", "code")
	GrpcRequestDuration = histogram("grpc", "request_duration_seconds", "gRPC request latency.", prometheus.DefBuckets, "service", "method")

	HTTPRequestsTotal   = counter("http", "requests_total", "HTTP requests by route template and status code.", "method", "route", "code")
	HTTPRequestDuration = histogram("http", "request_duration_seconds", "HTTP request latency.", prometheus.DefBuckets, "method", "route")
)

// Хранилище и индекс
var (
	DatabaseOperationsTotal   = counter("store", "operations_total", "Event store operations.", "operation", "table", "status")
	DatabaseOperationDuration = histogram("store", "operation_duration_seconds", "Event store operation latency.", storeBuckets, "operation", "table")

	OpenSearchOperationsTotal   = counter("opensearch", "operations_total", "OpenSearch requests.", "operation", "index", "status")
	OpenSearchOperationDuration = histogram("opensearch", "operation_duration_seconds", "OpenSearch request latency.", indexBuckets, "operation", "index")
	OpenSearchDocuments         = gauge("opensearch", "documents", "Documents seen in the index on the last count or snapshot.", "index")
)

// Выборка, снимок, представления
var (
	// origin: list, latest, view, grpc, calendar
	QueryExecutionsTotal = counter("query", "executions_total", "In-memory listing query executions.", "origin")
	QueryDuration        = histogram("query", "duration_seconds", "In-memory listing query latency.", fastBuckets, "origin")
	QueryMatches         = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "query", Name: "matches",
		Help:    "Events matching a query before pagination.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	SnapshotEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "snapshot", Name: "events",
		Help: "Events in the current snapshot.",
	})
	SnapshotLoadedTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "snapshot", Name: "loaded_timestamp_seconds",
		Help: "Unix time of the last successful snapshot refresh.",
	})
	SnapshotRefreshTotal = counter("snapshot", "refresh_total", "Snapshot refresh attempts.", "source", "status")

	ViewsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "views", Name: "active",
		Help: "Open listing views.",
	})
	ViewsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "views", Name: "pruned_total",
		Help: "Views dropped after their TTL.",
	})
)

// status: pending при записи, затем confirmed или cancelled.
var RegistrationsTotal = counter("registrations", "transitions_total", "Event registrations by resulting status.", "status")

var (
	ServiceInfo   = gauge("", "service_info", "Constant 1 labelled with build information.", "version", "service", "environment")
	ServiceUptime = gauge("", "uptime_seconds", "Seconds since the process started serving.", "service")
)

func RecordGrpcRequest(service, method, code string, duration time.Duration) {
	GrpcRequestsTotal.WithLabelValues(service, method, code).Inc()
	GrpcRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordHTTPRequest: route - шаблон маршрута gin, а не сырой путь, иначе метка разрастется.
func RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordQuery(origin string, matches int, duration time.Duration) {
	QueryExecutionsTotal.WithLabelValues(origin).Inc()
	QueryDuration.WithLabelValues(origin).Observe(duration.Seconds())
	QueryMatches.Observe(float64(matches))
}

// RecordSnapshotRefresh учитывает попытку обновления. Размер и время меняются только при успехе.
func RecordSnapshotRefresh(source string, size int, loadedAt time.Time, err error) {
	SnapshotRefreshTotal.WithLabelValues(source, StatusFromError(err)).Inc()
	if err != nil {
		return
	}
	SnapshotEvents.Set(float64(size))
	SnapshotLoadedTimestamp.Set(float64(loadedAt.Unix()))
}

func SetServiceInfo(version, service, environment string) {
	ServiceInfo.WithLabelValues(version, service, environment).Set(1)
}

func UpdateOpenSearchDocuments(index string, count int64) {
	OpenSearchDocuments.WithLabelValues(index).Set(float64(count))
}

func StatusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// MethodName: "/eventlisting.v1.EventListing/ListEvents" -> "ListEvents".
func MethodName(fullMethod string) string {
	return path.Base(fullMethod)
}
