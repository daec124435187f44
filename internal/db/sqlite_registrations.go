package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

const (
	sqliteCreateRegistrationQuery = `INSERT INTO registrations (id, event_id, user_id, status, created_at)
						VALUES (?, ?, ?, ?, ?)`

	sqliteGetRegistrationsQuery         = `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = ? ORDER BY created_at, id`
	sqliteGetRegistrationByIDQuery      = `SELECT ` + registrationColumns + ` FROM registrations WHERE id = ?`
	sqliteUpdateRegistrationStatusQuery = `UPDATE registrations SET status = ? WHERE id = ? RETURNING ` + registrationColumns
)

// CreateRegistration сохраняет запись. CreatedAt выставляется текущим временем, если не задан.
func (s *SQLiteStore) CreateRegistration(parentCtx context.Context, r *Registration) (*Registration, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	err := metrics.DatabaseInterceptor("create_registration", registrationsTable, func() error {
		_, err := s.db.ExecContext(ctx, sqliteCreateRegistrationQuery,
			r.ID, r.EventID, r.UserID, string(r.Status), r.CreatedAt.UTC())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	return r, nil
}

// GetRegistrations извлекает записи на событие, ранние первыми.
func (s *SQLiteStore) GetRegistrations(parentCtx context.Context, eventID string) ([]Registration, error) {
	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	registrations := []Registration{}
	err := metrics.DatabaseInterceptor("get_registrations", registrationsTable, func() error {
		rows, err := s.db.QueryContext(ctx, sqliteGetRegistrationsQuery, eventID)
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
func (s *SQLiteStore) GetRegistrationByID(parentCtx context.Context, id string) (*Registration, error) {
	return s.registration(parentCtx, "get_registration", sqliteGetRegistrationByIDQuery, id)
}

// UpdateRegistrationStatus меняет статус записи и возвращает ее актуальную версию.
func (s *SQLiteStore) UpdateRegistrationStatus(parentCtx context.Context, id string, status RegistrationStatus) (*Registration, error) {
	return s.registration(parentCtx, "update_registration", sqliteUpdateRegistrationStatusQuery, string(status), id)
}

// registration: последний аргумент - ID записи.
func (s *SQLiteStore) registration(parentCtx context.Context, op, stmt string, args ...any) (*Registration, error) {
	id, _ := args[len(args)-1].(string)

	ctx, cancel := context.WithTimeout(parentCtx, opTimeout)
	defer cancel()

	var r *Registration
	err := metrics.DatabaseInterceptor(op, registrationsTable, func() error {
		var err error
		r, err = scanRegistration(s.db.QueryRowContext(ctx, stmt, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", id, ErrRegistrationNotFound)
		}
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}

	return r, nil
}
