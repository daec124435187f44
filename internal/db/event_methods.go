package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

const (
	PostgresSchema = `CREATE TABLE IF NOT EXISTS events (
	id            UUID PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	start_date    TIMESTAMPTZ NOT NULL,
	end_date      TIMESTAMPTZ,
	event_type    TEXT,
	is_private    BOOLEAN NOT NULL DEFAULT FALSE,
	price         DOUBLE PRECISION,
	max_attendees INTEGER,
	owner_id      TEXT NOT NULL,
	image_url     TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS events_owner_idx ON events (owner_id);
CREATE INDEX IF NOT EXISTS events_created_idx ON events (created_at DESC);
CREATE TABLE IF NOT EXISTS registrations (
	id         UUID PRIMARY KEY,
	event_id   UUID NOT NULL REFERENCES events (id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_active_idx ON registrations (event_id, user_id) WHERE status <> 'cancelled';`

	pgCreateEventQuery = `INSERT INTO events (id, title, description, location, start_date, end_date, event_type,
						is_private, price, max_attendees, owner_id, image_url)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
						RETURNING created_at`

	pgUpdateEventQuery = `UPDATE events
						SET title = $1, description = $2, location = $3, start_date = $4, end_date = $5,
						    event_type = $6, is_private = $7, price = $8, max_attendees = $9, image_url = $10,
						    updated_at = NOW()
						WHERE id = $11
						RETURNING ` + eventColumns

	pgGetEventsQuery        = `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC, id DESC`
	pgGetEventByIDQuery     = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	pgGetEventsByOwnerQuery = `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	pgDeleteEventQuery      = `DELETE FROM events WHERE id = $1 RETURNING ` + eventColumns
)

// Migrate создает таблицы events и registrations, если их нет.
func (s *PostgresStore) Migrate(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if _, err := s.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("failed to migrate events schema: %w", err)
	}
	return nil
}

// CreateEvent создает новое событие. ID генерируется, если не задан.
func (s *PostgresStore) CreateEvent(parentCtx context.Context, event *query.Event) (*query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	err := metrics.DatabaseInterceptor("create_event", eventsTable, func() error {
		return s.db.QueryRow(
			ctx,
			pgCreateEventQuery,
			event.ID,
			event.Title,
			event.Description,
			event.Location,
			event.StartDate,
			event.EndDate,
			event.EventType,
			event.IsPrivate,
			event.Price,
			event.MaxAttendees,
			event.OwnerID,
			event.ImageURL,
		).Scan(&event.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// UpdateEvent обновляет существующее событие и возвращает его актуальную версию.
func (s *PostgresStore) UpdateEvent(parentCtx context.Context, event *query.Event) (*query.Event, error) {
	if err := checkID(event.ID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var updated *query.Event
	err := metrics.DatabaseInterceptor("update_event", eventsTable, func() error {
		var err error
		updated, err = scanEvent(s.db.QueryRow(
			ctx,
			pgUpdateEventQuery,
			event.Title,
			event.Description,
			event.Location,
			event.StartDate,
			event.EndDate,
			event.EventType,
			event.IsPrivate,
			event.Price,
			event.MaxAttendees,
			event.ImageURL,
			event.ID,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", event.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}

	return updated, nil
}

// GetEvents извлекает все события, новые первыми.
func (s *PostgresStore) GetEvents(parentCtx context.Context) ([]query.Event, error) {
	return s.list(parentCtx, "get_events", pgGetEventsQuery)
}

// GetEventsByOwner извлекает события одного владельца.
func (s *PostgresStore) GetEventsByOwner(parentCtx context.Context, ownerID string) ([]query.Event, error) {
	return s.list(parentCtx, "get_events_by_owner", pgGetEventsByOwnerQuery, ownerID)
}

func (s *PostgresStore) list(parentCtx context.Context, op, sql string, args ...any) ([]query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	events := []query.Event{}
	err := metrics.DatabaseInterceptor(op, eventsTable, func() error {
		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("failed to query events: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			event, err := scanEvent(rows)
			if err != nil {
				return fmt.Errorf("failed to scan event: %w", err)
			}
			events = append(events, *event)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// GetEventByID извлекает событие по ID.
func (s *PostgresStore) GetEventByID(parentCtx context.Context, id string) (*query.Event, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var event *query.Event
	err := metrics.DatabaseInterceptor("get_event", eventsTable, func() error {
		var err error
		event, err = scanEvent(s.db.QueryRow(ctx, pgGetEventByIDQuery, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event by ID %s: %w", id, err)
	}

	return event, nil
}

// DeleteEvent удаляет событие по ID и возвращает удаленную запись.
func (s *PostgresStore) DeleteEvent(parentCtx context.Context, id string) (*query.Event, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var event *query.Event
	err := metrics.DatabaseInterceptor("delete_event", eventsTable, func() error {
		var err error
		event, err = scanEvent(s.db.QueryRow(ctx, pgDeleteEventQuery, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete event %s: %w", id, err)
	}

	return event, nil
}

// checkID: колонка id имеет тип UUID, и Postgres отвечает 22P02 на любую другую строку.
// Такого события заведомо нет.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *PostgresStore) Ping(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, "SELECT 1")
	return err
}
