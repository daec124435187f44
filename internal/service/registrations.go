package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// Registrations - запись пользователей на события.
// Организатор видит все записи своего события и подтверждает или отменяет их;
// участник видит и может отменить только свою.
type Registrations struct {
	// mu сериализует проверку мест и вставку в пределах процесса.
	mu     sync.Mutex
	events db.EventStore
	store  db.RegistrationStore
	logger logger.Logger
}

func NewRegistrations(events db.EventStore, store db.RegistrationStore, logger logger.Logger) *Registrations {
	return &Registrations{events: events, store: store, logger: logger}
}

// Register записывает userID на событие со статусом pending.
func (s *Registrations) Register(ctx context.Context, userID, eventID string) (*db.Registration, error) {
	if userID == "" {
		return nil, fmt.Errorf("registration requires a user: %w", ErrForbidden)
	}

	ev, err := s.visibleEvent(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	taken := 0
	for _, r := range existing {
		if !r.Status.Active() {
			continue
		}
		if r.UserID == userID {
			return nil, fmt.Errorf("user %s is already registered for event %s: %w", userID, eventID, ErrConflict)
		}
		taken++
	}
	if ev.MaxAttendees != nil && *ev.MaxAttendees > 0 && taken >= *ev.MaxAttendees {
		return nil, fmt.Errorf("event %s is full (%d places): %w", eventID, *ev.MaxAttendees, ErrConflict)
	}

	created, err := s.store.CreateRegistration(ctx, &db.Registration{
		EventID: eventID,
		UserID:  userID,
		Status:  db.RegistrationPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues(string(created.Status)).Inc()
	s.logger.Info("Registration created",
		"registration_id", created.ID,
		"event_id", eventID,
		"user_id", userID,
	)

	return created, nil
}

// List возвращает записи на событие: организатору все, остальным только свои.
func (s *Registrations) List(ctx context.Context, principal, eventID string) ([]db.Registration, error) {
	if principal == "" {
		return nil, fmt.Errorf("listing registrations requires a user: %w", ErrForbidden)
	}

	ev, err := s.visibleEvent(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}

	all, err := s.store.GetRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	if ev.OwnerID == principal {
		return all, nil
	}

	own := make([]db.Registration, 0, 1)
	for _, r := range all {
		if r.UserID == principal {
			own = append(own, r)
		}
	}
	return own, nil
}

// SetStatus переводит запись в новый статус.
// Переходы: pending -> confirmed | cancelled, confirmed -> cancelled. Повтор текущего статуса ничего не меняет.
func (s *Registrations) SetStatus(ctx context.Context, principal, eventID, registrationID string, status db.RegistrationStatus) (*db.Registration, error) {
	if principal == "" {
		return nil, fmt.Errorf("changing a registration requires a user: %w", ErrForbidden)
	}

	ev, err := s.visibleEvent(ctx, principal, eventID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return nil, mapRegistrationError(err, "failed to load registration")
	}
	if current.EventID != ev.ID {
		return nil, fmt.Errorf("registration %s does not belong to event %s: %w", registrationID, eventID, ErrRegistrationNotFound)
	}

	organizer := ev.OwnerID == principal
	attendee := current.UserID == principal
	switch {
	case organizer:
	case attendee && status == db.RegistrationCancelled:
	default:
		return nil, fmt.Errorf("user %s may not set registration %s to %s: %w", principal, registrationID, status, ErrForbidden)
	}

	if current.Status == status {
		return current, nil
	}
	if !canTransition(current.Status, status) {
		return nil, fmt.Errorf("registration %s cannot move from %s to %s: %w", registrationID, current.Status, status, ErrConflict)
	}

	updated, err := s.store.UpdateRegistrationStatus(ctx, registrationID, status)
	if err != nil {
		return nil, mapRegistrationError(err, "failed to update registration")
	}

	metrics.RegistrationsTotal.WithLabelValues(string(updated.Status)).Inc()
	s.logger.Info("Registration status changed",
		"registration_id", registrationID,
		"event_id", eventID,
		"from", current.Status,
		"to", updated.Status,
		"by", principal,
	)

	return updated, nil
}

// visibleEvent загружает событие; чужое приватное событие выглядит как отсутствующее.
func (s *Registrations) visibleEvent(ctx context.Context, principal, eventID string) (*query.Event, error) {
	ev, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load event")
	}
	if ev.IsPrivate && ev.OwnerID != principal {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
	}
	return ev, nil
}

func canTransition(from, to db.RegistrationStatus) bool {
	switch from {
	case db.RegistrationPending:
		return to == db.RegistrationConfirmed || to == db.RegistrationCancelled
	case db.RegistrationConfirmed:
		return to == db.RegistrationCancelled
	}
	return false
}

func mapRegistrationError(err error, msg string) error {
	if errors.Is(err, db.ErrRegistrationNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrRegistrationNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
