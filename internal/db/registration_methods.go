package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

const (
	pgCreateRegistrationQuery = `INSERT INTO registrations (id, event_id, user_id, status)
						VALUES ($1, $2, $3, $4)
						RETURNING created_at`

	pgGetRegistrationsQuery         = `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at, id`
	pgGetRegistrationByIDQuery      = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	pgUpdateRegistrationStatusQuery = `UPDATE registrations SET status = $1 WHERE id = $2 RETURNING ` + registrationColumns
)

// CreateRegistration сохраняет запись. ID генерируется, если не задан.
func (s *PostgresStore) CreateRegistration(parentCtx context.Context, r *Registration) (*Registration, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	err := metrics.DatabaseInterceptor("create_registration", registrationsTable, func() error {
		return s.db.QueryRow(ctx, pgCreateRegistrationQuery, r.ID, r.EventID, r.UserID, string(r.Status)).Scan(&r.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return r, nil
}

// GetRegistrations извлекает записи на событие, ранние первыми.
func (s *PostgresStore) GetRegistrations(parentCtx context.Context, eventID string) ([]Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return []Registration{}, nil
	}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	registrations := []Registration{}
	err := metrics.DatabaseInterceptor("get_registrations", registrationsTable, func() error {
		rows, err := s.db.Query(ctx, pgGetRegistrationsQuery, eventID)
		if err != nil {
			return fmt.Errorf("failed to query registrations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRegistration(rows)
			if err != nil {
				return fmt.Errorf("failed to scan registration: %w", err)
			}
			registrations = append(registrations, *r)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get_registrations: %w", err)
	}

	return registrations, nil
}

// GetRegistrationByID извлекает запись по ID.
func (s *PostgresStore) GetRegistrationByID(parentCtx context.Context, id string) (*Registration, error) {
	return s.registration(parentCtx, "get_registration", pgGetRegistrationByIDQuery, id)
}

// UpdateRegistrationStatus меняет статус записи и возвращает ее актуальную версию.
func (s *PostgresStore) UpdateRegistrationStatus(parentCtx context.Context, id string, status RegistrationStatus) (*Registration, error) {
	return s.registration(parentCtx, "update_registration", pgUpdateRegistrationStatusQuery, string(status), id)
}

// registration: последний аргумент - ID записи.
func (s *PostgresStore) registration(parentCtx context.Context, op, sql string, args ...any) (*Registration, error) {
	id, _ := args[len(args)-1].(string)
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("registration %q: %w", id, ErrRegistrationNotFound)
	}

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var r *Registration
	err := metrics.DatabaseInterceptor(op, registrationsTable, func() error {
		var err error
		r, err = scanRegistration(s.db.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", id, ErrRegistrationNotFound)
		}
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	return r, nil
}
