package models

import "github.com/rx3lixir/event-listing/internal/query"

// FromEvent конвертирует query.Event в EventDocument для OpenSearch
func FromEvent(event *query.Event) *EventDocument {
	if event == nil {
		return nil
	}

	return &EventDocument{
		ID:           event.ID,
		Title:        event.Title,
		Description:  event.Description,
		Location:     event.Location,
		StartDate:    event.StartDate,
		EndDate:      event.EndDate,
		EventType:    event.EventType,
		IsPrivate:    event.IsPrivate,
		Price:        event.Price,
		MaxAttendees: event.MaxAttendees,
		OwnerID:      event.OwnerID,
		ImageURL:     event.ImageURL,
		CreatedAt:    event.CreatedAt,
	}
}

// FromEvents конвертирует слайс событий в слайс документов
func FromEvents(events []query.Event) []*EventDocument {
	docs := make([]*EventDocument, 0, len(events))
	for i := range events {
		docs = append(docs, FromEvent(&events[i]))
	}
	return docs
}
