package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/rx3lixir/event-listing/pkg/logger"
)

type serverConfig struct {
	service string
	version string
	addr    string
	timeout time.Duration
}

type Option func(*serverConfig)

func WithService(name, version string) Option {
	return func(c *serverConfig) {
		c.service = name
		c.version = version
	}
}

func WithAddr(addr string) Option {
	return func(c *serverConfig) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithCheckTimeout ограничивает один прогон всех проверок.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Server - отдельный HTTP сервер для оркестратора:
//
//	/health  полный отчет, 503 если хоть одна проверка DOWN
//	/ready   то же без тела
//	/live    процесс жив
//	/info    версия и список проверок
type Server struct {
	cfg     serverConfig
	health  *Health
	http    *http.Server
	log     logger.Logger
	started time.Time
}

// NewServer создает сервер без проверок; они добавляются через AddCheck.
func NewServer(log logger.Logger, opts ...Option) *Server {
	cfg := serverConfig{
		service: "event-listing",
		version: "dev",
		addr:    ":8081",
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		cfg:     cfg,
		health:  New(cfg.service, cfg.version, WithTimeout(cfg.timeout)),
		log:     log,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.report)
	mux.HandleFunc("GET /ready", s.ready)
	mux.HandleFunc("GET /live", s.live)
	mux.HandleFunc("GET /info", s.info)

	s.http = &http.Server{
		Addr:              cfg.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) AddCheck(name string, c Checker) {
	s.health.AddCheck(name, c)
	s.log.Debug("Health check registered", "check", name)
}

// Health - реестр проверок, его же использует публичный API.
func (s *Server) Health() *Health {
	return s.health
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	res := s.health.Check(r.Context())
	writeJSON(w, statusCode(res.Status), res)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(statusCode(s.health.Check(r.Context()).Status))
}

func (s *Server) live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         StatusUp,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    s.cfg.service,
		"version":    s.cfg.version,
		"started_at": s.started.UTC().Format(time.RFC3339),
		"go_version": runtime.Version(),
		"checks":     s.health.Names(),
	})
}

func statusCode(st Status) int {
	if st == StatusUp {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Start блокируется до Shutdown.
func (s *Server) Start() error {
	s.log.Info("Health server is listening", "address", s.http.Addr, "service", s.cfg.service)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// IsHealthy - true, если все проверки UP.
func (s *Server) IsHealthy(ctx context.Context) bool {
	return s.health.Check(ctx).Status == StatusUp
}
