package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor считает вызовы и латентность unary-методов; код - имя gRPC статуса.
func UnaryServerInterceptor(serviceName string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		RecordGrpcRequest(serviceName, MethodName(info.FullMethod), status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

func observe(total *prometheus.CounterVec, duration *prometheus.HistogramVec, op, target string, fn func() error) error {
	start := time.Now()
	err := fn()
	total.WithLabelValues(op, target, StatusFromError(err)).Inc()
	duration.WithLabelValues(op, target).Observe(time.Since(start).Seconds())
	return err
}

// DatabaseInterceptor замеряет одну операцию с таблицей.
func DatabaseInterceptor(operation, table string, fn func() error) error {
	return observe(DatabaseOperationsTotal, DatabaseOperationDuration, operation, table, fn)
}

// OpenSearchInterceptor замеряет один запрос к индексу.
func OpenSearchInterceptor(operation, index string, fn func() error) error {
	return observe(OpenSearchOperationsTotal, OpenSearchOperationDuration, operation, index, fn)
}
