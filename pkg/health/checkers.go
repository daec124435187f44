package health

import (
	"context"
	"time"
)

// PingChecker проверка зависимости через ping-функцию (база, OpenSearch).
func PingChecker(ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		err := ping(ctx)
		duration := time.Since(start)

		if err != nil {
			return CheckResult{
				Status: StatusDown,
				Error:  err.Error(),
				Details: map[string]any{
					"duration_ms": duration.Milliseconds(),
				},
			}
		}

		return CheckResult{
			Status: StatusUp,
			Details: map[string]any{
				"duration_ms": duration.Milliseconds(),
			},
		}
	})
}

// FreshnessChecker проверяет, что снимок обновлялся не раньше maxAge назад.
// loadedAt возвращает время последней загрузки и размер снимка.
func FreshnessChecker(loadedAt func() (time.Time, int), maxAge time.Duration) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		at, size := loadedAt()
		details := map[string]any{
			"events":  size,
			"max_age": maxAge.String(),
		}

		if at.IsZero() {
			return CheckResult{Status: StatusDown, Error: "snapshot not loaded", Details: details}
		}

		age := time.Since(at)
		details["age"] = age.Round(time.Second).String()

		if maxAge > 0 && age > maxAge {
			return CheckResult{Status: StatusDown, Error: "snapshot is stale", Details: details}
		}

		return CheckResult{Status: StatusUp, Details: details}
	})
}
