package db

import (
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
)

const eventColumns = `id, title, description, location, start_date, end_date, event_type,
	is_private, price, max_attendees, owner_id, image_url, created_at`

// CreateEventParams содержит параметры для создания нового события
type CreateEventParams struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"max=5000"`
	Location     string     `json:"location" validate:"required,max=200"`
	StartDate    time.Time  `json:"start_date" validate:"required"`
	EndDate      *time.Time `json:"end_date"`
	EventType    *string    `json:"event_type" validate:"omitempty,max=50"`
	IsPrivate    bool       `json:"is_private"`
	Price        *float64   `json:"price" validate:"omitempty,gte=0"`
	MaxAttendees *int       `json:"max_attendees" validate:"omitempty,gte=0"`
	ImageURL     *string    `json:"image_url" validate:"omitempty,url"`
}

// UpdateEventParams содержит параметры для обновления существующего события.
// Владелец и дата создания не меняются.
type UpdateEventParams CreateEventParams

// NewEventFromCreateRequest создает событие из параметров создания.
// ID и CreatedAt выставляет хранилище.
func NewEventFromCreateRequest(params CreateEventParams, ownerID string) *query.Event {
	return &query.Event{
		Title:        params.Title,
		Description:  params.Description,
		Location:     params.Location,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		EventType:    params.EventType,
		IsPrivate:    params.IsPrivate,
		Price:        params.Price,
		MaxAttendees: params.MaxAttendees,
		OwnerID:      ownerID,
		ImageURL:     params.ImageURL,
	}
}

// ApplyUpdate применяет изменения к событию в памяти перед отправкой в БД.
func ApplyUpdate(e *query.Event, params UpdateEventParams) {
	e.Title = params.Title
	e.Description = params.Description
	e.Location = params.Location
	e.StartDate = params.StartDate
	e.EndDate = params.EndDate
	e.EventType = params.EventType
	e.IsPrivate = params.IsPrivate
	e.Price = params.Price
	e.MaxAttendees = params.MaxAttendees
	e.ImageURL = params.ImageURL
}

const registrationColumns = `id, event_id, user_id, status, created_at`

// RegistrationStatus - состояние записи на событие.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// ParseRegistrationStatus проверяет значение из запроса.
func ParseRegistrationStatus(raw string) (RegistrationStatus, bool) {
	switch s := RegistrationStatus(raw); s {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return s, true
	}
	return "", false
}

// Active: отмененная запись не занимает место и не мешает записаться снова.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationConfirmed
}

// Registration - запись пользователя на событие.
type Registration struct {
	ID        string             `json:"id"`
	EventID   string             `json:"event_id"`
	UserID    string             `json:"user_id"`
	Status    RegistrationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func scanRegistration(s scanner) (*Registration, error) {
	r := new(Registration)
	var status string
	if err := s.Scan(&r.ID, &r.EventID, &r.UserID, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = RegistrationStatus(status)
	return r, nil
}
