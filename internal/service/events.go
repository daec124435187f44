package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

// Indexer зеркалирует изменения в поисковый индекс.
type Indexer interface {
	IndexEvent(ctx context.Context, event *query.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Refresher перечитывает снимок после записи.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc адаптирует функцию к Refresher.
type RefresherFunc func(ctx context.Context) error

func (f RefresherFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Events - запись событий: хранилище, затем индекс, затем обновление снимка.
// Ошибки индекса и обновления снимка только логируются: запись в базу уже состоялась.
type Events struct {
	store     db.EventStore
	indexer   Indexer
	refresher Refresher
	validate  *validator.Validate
	logger    logger.Logger
}

// NewEvents создает сервис записи. indexer может быть nil, если OpenSearch выключен.
func NewEvents(store db.EventStore, indexer Indexer, refresher Refresher, logger logger.Logger) *Events {
	return &Events{
		store:     store,
		indexer:   indexer,
		refresher: refresher,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (s *Events) Create(ctx context.Context, ownerID string, params db.CreateEventParams) (*query.Event, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner is required: %w", ErrForbidden)
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if params.EndDate != nil && params.EndDate.Before(params.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}

	created, err := s.store.CreateEvent(ctx, db.NewEventFromCreateRequest(params, ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("Event created", "event_id", created.ID, "owner_id", ownerID)
	s.afterWrite(ctx, created, false)

	return created, nil
}

func (s *Events) Update(ctx context.Context, ownerID, id string, params db.UpdateEventParams) (*query.Event, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if params.EndDate != nil && params.EndDate.Before(params.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}

	existing, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	db.ApplyUpdate(existing, params)

	updated, err := s.store.UpdateEvent(ctx, existing)
	if err != nil {
		return nil, mapStoreError(err, "failed to update event")
	}

	s.logger.Info("Event updated", "event_id", updated.ID)
	s.afterWrite(ctx, updated, false)

	return updated, nil
}

func (s *Events) Delete(ctx context.Context, ownerID, id string) (*query.Event, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	deleted, err := s.store.DeleteEvent(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to delete event")
	}

	s.logger.Info("Event deleted", "event_id", id)
	s.afterWrite(ctx, deleted, true)

	return deleted, nil
}

// Owned читает события владельца прямо из хранилища, минуя снимок:
// только что созданное событие видно до обновления кеша.
func (s *Events) Owned(ctx context.Context, ownerID string) ([]query.Event, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner is required: %w", ErrForbidden)
	}

	events, err := s.store.GetEventsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner events: %w", err)
	}
	return events, nil
}

// owned загружает событие и проверяет, что его меняет владелец.
func (s *Events) owned(ctx context.Context, ownerID, id string) (*query.Event, error) {
	existing, err := s.store.GetEventByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load event")
	}
	if ownerID == "" || existing.OwnerID != ownerID {
		return nil, fmt.Errorf("event %s belongs to another user: %w", id, ErrForbidden)
	}
	return existing, nil
}

func (s *Events) afterWrite(ctx context.Context, event *query.Event, deleted bool) {
	if s.indexer != nil {
		var err error
		if deleted {
			err = s.indexer.DeleteEvent(ctx, event.ID)
		} else {
			err = s.indexer.IndexEvent(ctx, event)
		}
		if err != nil {
			s.logger.Error("Failed to mirror event to search index",
				"event_id", event.ID,
				"deleted", deleted,
				"error", err,
			)
		}
	}

	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx); err != nil {
			s.logger.Warn("Failed to refresh snapshot after write", "event_id", event.ID, "error", err)
		}
	}
}

func mapStoreError(err error, msg string) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrEventNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
