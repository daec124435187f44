package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

const (
	sqliteSchema = `CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	start_date    DATETIME NOT NULL,
	end_date      DATETIME,
	event_type    TEXT,
	is_private    BOOLEAN NOT NULL DEFAULT 0,
	price         REAL,
	max_attendees INTEGER,
	owner_id      TEXT NOT NULL,
	image_url     TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME
);
CREATE INDEX IF NOT EXISTS events_owner_idx ON events (owner_id);
CREATE TABLE IF NOT EXISTS registrations (
	id         TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_active_idx ON registrations (event_id, user_id) WHERE status <> 'cancelled';`

	sqliteCreateEventQuery = `INSERT INTO events (id, title, description, location, start_date, end_date, event_type,
						is_private, price, max_attendees, owner_id, image_url, created_at)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqliteUpdateEventQuery = `UPDATE events
						SET title = ?, description = ?, location = ?, start_date = ?, end_date = ?,
						    event_type = ?, is_private = ?, price = ?, max_attendees = ?, image_url = ?,
						    updated_at = ?
						WHERE id = ?
						RETURNING ` + eventColumns

	sqliteGetEventsQuery        = `SELECT ` + eventColumns + ` FROM events ORDER BY created_at DESC, id DESC`
	sqliteGetEventByIDQuery     = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	sqliteGetEventsByOwnerQuery = `SELECT ` + eventColumns + ` FROM events WHERE owner_id = ? ORDER BY created_at DESC, id DESC`
	sqliteDeleteEventQuery      = `DELETE FROM events WHERE id = ? RETURNING ` + eventColumns
)

// SQLiteStore реализует Store поверх SQLite. Используется для локального запуска и тестов.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite открывает базу по dsn (например, "file:events.db" или ":memory:") и создает схему.
func OpenSQLite(parentCtx context.Context, dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// In-memory база живет в пределах одного соединения.
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{db: conn, now: time.Now}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return s, nil
}

// Close закрывает соединение.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateEvent создает событие. CreatedAt выставляется текущим временем, если не задан.
func (s *SQLiteStore) CreateEvent(parentCtx context.Context, event *query.Event) (*query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	err := metrics.DatabaseInterceptor("create_event", eventsTable, func() error {
		_, err := s.db.ExecContext(
			ctx,
			sqliteCreateEventQuery,
			event.ID,
			event.Title,
			event.Description,
			event.Location,
			event.StartDate.UTC(),
			utcPtr(event.EndDate),
			event.EventType,
			event.IsPrivate,
			event.Price,
			event.MaxAttendees,
			event.OwnerID,
			event.ImageURL,
			event.CreatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// UpdateEvent обновляет событие и возвращает его актуальную версию.
func (s *SQLiteStore) UpdateEvent(parentCtx context.Context, event *query.Event) (*query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var updated *query.Event
	err := metrics.DatabaseInterceptor("update_event", eventsTable, func() error {
		var err error
		updated, err = scanEvent(s.db.QueryRowContext(
			ctx,
			sqliteUpdateEventQuery,
			event.Title,
			event.Description,
			event.Location,
			event.StartDate.UTC(),
			utcPtr(event.EndDate),
			event.EventType,
			event.IsPrivate,
			event.Price,
			event.MaxAttendees,
			event.ImageURL,
			s.now().UTC(),
			event.ID,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", event.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update event %s: %w", event.ID, err)
	}

	return updated, nil
}

// GetEvents извлекает все события, новые первыми.
func (s *SQLiteStore) GetEvents(parentCtx context.Context) ([]query.Event, error) {
	return s.list(parentCtx, "get_events", sqliteGetEventsQuery)
}

// GetEventsByOwner извлекает события одного владельца.
func (s *SQLiteStore) GetEventsByOwner(parentCtx context.Context, ownerID string) ([]query.Event, error) {
	return s.list(parentCtx, "get_events_by_owner", sqliteGetEventsByOwnerQuery, ownerID)
}

func (s *SQLiteStore) list(parentCtx context.Context, op, stmt string, args ...any) ([]query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	events := []query.Event{}
	err := metrics.DatabaseInterceptor(op, eventsTable, func() error {
		rows, err := s.db.QueryContext(ctx, stmt, args...)
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
func (s *SQLiteStore) GetEventByID(parentCtx context.Context, id string) (*query.Event, error) {
	return s.single(parentCtx, "get_event", sqliteGetEventByIDQuery, id)
}

// DeleteEvent удаляет событие и возвращает удаленную запись.
func (s *SQLiteStore) DeleteEvent(parentCtx context.Context, id string) (*query.Event, error) {
	return s.single(parentCtx, "delete_event", sqliteDeleteEventQuery, id)
}

func (s *SQLiteStore) single(parentCtx context.Context, op, stmt, id string) (*query.Event, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var event *query.Event
	err := metrics.DatabaseInterceptor(op, eventsTable, func() error {
		var err error
		event, err = scanEvent(s.db.QueryRowContext(ctx, stmt, id))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	return event, nil
}

// Ping проверяет доступность базы.
func (s *SQLiteStore) Ping(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	return s.db.PingContext(ctx)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
