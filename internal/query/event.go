package query

import "time"

// Event представляет снимок события, полученный из хранилища.
// Необязательные поля заданы указателями: nil означает "не указано".
type Event struct {
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
	OwnerID      string     `json:"owner_id,omitempty"`
	ImageURL     *string    `json:"image_url,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Valid сообщает, содержит ли запись обязательные поля.
// Некорректные записи отбрасываются при фильтрации и не ломают выдачу остальных.
func (e Event) Valid() bool {
	return e.ID != "" && !e.StartDate.IsZero()
}

// Type возвращает тег типа события или пустую строку.
func (e Event) Type() string {
	if e.EventType == nil {
		return ""
	}
	return *e.EventType
}

// PriceOrZero возвращает цену, трактуя отсутствующую как 0.
func (e Event) PriceOrZero() float64 {
	if e.Price == nil {
		return 0
	}
	return *e.Price
}

// CapacityOrZero возвращает max_attendees, трактуя отсутствующее как 0.
func (e Event) CapacityOrZero() int {
	if e.MaxAttendees == nil {
		return 0
	}
	return *e.MaxAttendees
}
