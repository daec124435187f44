package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rx3lixir/event-listing/internal/query"
)

var (
	// ErrNotFound возвращается, когда события с таким ID нет.
	ErrNotFound = errors.New("event not found")
	// ErrRegistrationNotFound возвращается, когда записи на событие с таким ID нет.
	ErrRegistrationNotFound = errors.New("registration not found")
)

const (
	eventsTable        = "events"
	registrationsTable = "registrations"

	// Таймаут одного обращения к базе.
	opTimeout = 3 * time.Second
)

// Интерфейс для абстракции методов базы данных от pgxpool
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventStore определяет методы для работы с хранилищем событий.
// GetEvents возвращает события в порядке created_at DESC: это порядок снимка,
// на котором держится стабильность сортировки.
type EventStore interface {
	CreateEvent(ctx context.Context, event *query.Event) (*query.Event, error)
	UpdateEvent(ctx context.Context, event *query.Event) (*query.Event, error)
	GetEvents(ctx context.Context) ([]query.Event, error)
	GetEventByID(ctx context.Context, id string) (*query.Event, error)
	GetEventsByOwner(ctx context.Context, ownerID string) ([]query.Event, error)
	DeleteEvent(ctx context.Context, id string) (*query.Event, error)
	Ping(ctx context.Context) error
}

// RegistrationStore хранит записи пользователей на события.
// GetRegistrations возвращает записи события в порядке подачи.
type RegistrationStore interface {
	CreateRegistration(ctx context.Context, r *Registration) (*Registration, error)
	GetRegistrations(ctx context.Context, eventID string) ([]Registration, error)
	GetRegistrationByID(ctx context.Context, id string) (*Registration, error)
	UpdateRegistrationStatus(ctx context.Context, id string, status RegistrationStatus) (*Registration, error)
}

// Store - все хранилище сервиса: события и записи на них.
type Store interface {
	EventStore
	RegistrationStore
}

// PostgresStore реализует Store с использованием PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore создает новый экземпляр PostgresStore.
func NewPostgresStore(pool DBTX) *PostgresStore {
	return &PostgresStore{
		db: pool,
	}
}

// CreatePostgresPool создает и проверяет пул соединений к PostgreSQL.
func CreatePostgresPool(parentCtx context.Context, dburl string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// scanner общий интерфейс pgx.Row, pgx.Rows, *sql.Row и *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvent сканирует одну строку в query.Event. Порядок полей - eventColumns.
func scanEvent(s scanner) (*query.Event, error) {
	event := new(query.Event)
	err := s.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartDate,
		&event.EndDate,
		&event.EventType,
		&event.IsPrivate,
		&event.Price,
		&event.MaxAttendees,
		&event.OwnerID,
		&event.ImageURL,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}
