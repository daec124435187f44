package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// Scheduler периодически обновляет кеш по cron-расписанию ("@every 1m", "*/5 * * * *").
type Scheduler struct {
	cron    *cron.Cron
	cache   *Cache
	timeout time.Duration
	logger  logger.Logger
}

func NewScheduler(cache *Cache, timeout time.Duration, logger logger.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// Schedule добавляет периодическое обновление. Ошибки загрузки только логируются:
// сервис продолжает отвечать по предыдущему снимку.
func (s *Scheduler) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.cache.Refresh(ctx); err != nil {
			s.logger.Warn("Scheduled snapshot refresh failed, serving previous snapshot", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return nil
}

// AddJob регистрирует произвольную периодическую задачу на том же планировщике.
func (s *Scheduler) AddJob(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждет завершения запущенных задач или отмены ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
