package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// Server отдает /metrics и служебные обработчики, которые не должны попадать в публичный API.
type Server struct {
	http    *http.Server
	service string
	started time.Time
	logger  logger.Logger
}

// NewServer монтирует promhttp на path и extra по их шаблонам.
func NewServer(addr, path, service string, logger logger.Logger, extra map[string]http.Handler) *Server {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	for pattern, h := range extra {
		mux.Handle(pattern, h)
	}

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		service: service,
		started: time.Now(),
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start блокируется до Shutdown. Пока ctx жив, раз в 15 секунд обновляется uptime.
func (s *Server) Start(ctx context.Context) error {
	go s.trackUptime(ctx)

	s.logger.Info("Metrics server is listening", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) trackUptime(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	uptime := ServiceUptime.WithLabelValues(s.service)
	for {
		uptime.Set(time.Since(s.started).Seconds())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
