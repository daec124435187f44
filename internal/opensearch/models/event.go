package models

import (
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
)

// EventDocument - событие в том виде, в каком оно лежит в индексе.
type EventDocument struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	EventType    *string    `json:"event_type,omitempty"`
	IsPrivate    bool       `json:"is_private"`
	Price        *float64   `json:"price,omitempty"`
	MaxAttendees *int       `json:"max_attendees,omitempty"`
	OwnerID      string     `json:"owner_id"`
	ImageURL     *string    `json:"image_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ToEvent конвертирует документ обратно в запись снимка.
func (e *EventDocument) ToEvent() query.Event {
	return query.Event{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Location:     e.Location,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		EventType:    e.EventType,
		IsPrivate:    e.IsPrivate,
		Price:        e.Price,
		MaxAttendees: e.MaxAttendees,
		OwnerID:      e.OwnerID,
		ImageURL:     e.ImageURL,
		CreatedAt:    e.CreatedAt,
	}
}
