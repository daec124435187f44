// Package service связывает снимок событий, движок запросов и хранилище в операции,
// которые вызывают HTTP и gRPC транспорты.
package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/language"

	"github.com/rx3lixir/event-listing/internal/query"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrViewNotFound         = errors.New("view not found")
	ErrTooManyViews         = errors.New("too many open views")
	ErrInvalidInput         = errors.New("invalid input")
	ErrForbidden            = errors.New("forbidden")
	ErrConflict             = errors.New("conflict")
)

// Settings - параметры выборки, общие для списка и представлений.
type Settings struct {
	PageSize   int
	PageWindow int
	Latest     int
	TZ         *time.Location
	Collation  language.Tag
}

// DefaultSettings повторяет значения движка по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		PageSize:   query.DefaultPageSize,
		PageWindow: query.DefaultPageWindow,
		Latest:     query.DefaultLatest,
		TZ:         time.UTC,
		Collation:  query.DefaultCollation,
	}
}

// Snapshots - источник текущего снимка.
type Snapshots interface {
	Events() []query.Event
}

type originKey struct{}

// WithOrigin помечает вызов именем транспорта для метрик.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func originFrom(ctx context.Context) string {
	if origin, ok := ctx.Value(originKey{}).(string); ok && origin != "" {
		return origin
	}
	return "internal"
}
