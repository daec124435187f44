// Package health собирает проверки зависимостей сервиса и отдает их по HTTP.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status состояние проверки
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// CheckResult результат одной проверки
type CheckResult struct {
	Status  Status         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Checker проверяет одну зависимость
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc адаптер функции к Checker
type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Response общий ответ health эндпоинта
type Response struct {
	Status    Status                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Health реестр проверок
type Health struct {
	service string
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checker
}

// HealthOption настраивает Health
type HealthOption func(*Health)

// WithTimeout ограничивает время одной проверки
func WithTimeout(d time.Duration) HealthOption {
	return func(h *Health) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New создает пустой реестр проверок
func New(service, version string, opts ...HealthOption) *Health {
	h := &Health{
		service: service,
		version: version,
		timeout: 5 * time.Second,
		checks:  make(map[string]Checker),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddCheck регистрирует проверку под именем name. Повторная регистрация заменяет старую.
func (h *Health) AddCheck(name string, c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

// Names возвращает имена зарегистрированных проверок по алфавиту.
func (h *Health) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check запускает все проверки параллельно. Общий статус DOWN, если упала хотя бы одна.
func (h *Health) Check(ctx context.Context) Response {
	h.mu.RLock()
	checks := make(map[string]Checker, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)

	for name, c := range checks {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()
			res := c.Check(ctx)

			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range results {
		if res.Status != StatusUp {
			overall = StatusDown
			break
		}
	}

	return Response{
		Status:    overall,
		Service:   h.service,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}
