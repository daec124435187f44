package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rx3lixir/event-listing/internal/query"
)

type staticSnapshots struct{ events []query.Event }

func (s *staticSnapshots) Events() []query.Event { return s.events }

// sampleEvents - семь событий: i-е начинается через i дней после base, четные принадлежат u1.
func sampleEvents(base time.Time) []query.Event {
	types := []string{"workshop", "meetup", "concert"}
	events := make([]query.Event, 0, 7)
	for i := range 7 {
		typ := types[i%len(types)]
		ev := query.Event{
			ID:        fmt.Sprintf("e%d", i+1),
			Title:     fmt.Sprintf("Event %d", i+1),
			Location:  []string{"Kyiv", "Lviv"}[i%2],
			StartDate: base.AddDate(0, 0, i),
			EventType: &typ,
			OwnerID:   "u2",
			CreatedAt: base.AddDate(0, 0, -i),
		}
		if i%2 == 0 {
			ev.OwnerID = "u1"
		}
		events = append(events, ev)
	}
	return events
}

type mockStore struct{ mock.Mock }

func (m *mockStore) CreateEvent(ctx context.Context, event *query.Event) (*query.Event, error) {
	ret := m.Called(ctx, event)
	ev, _ := ret.Get(0).(*query.Event)
	return ev, ret.Error(1)
}

func (m *mockStore) UpdateEvent(ctx context.Context, event *query.Event) (*query.Event, error) {
	ret := m.Called(ctx, event)
	ev, _ := ret.Get(0).(*query.Event)
	return ev, ret.Error(1)
}

func (m *mockStore) GetEvents(ctx context.Context) ([]query.Event, error) {
	ret := m.Called(ctx)
	events, _ := ret.Get(0).([]query.Event)
	return events, ret.Error(1)
}

func (m *mockStore) GetEventByID(ctx context.Context, id string) (*query.Event, error) {
	ret := m.Called(ctx, id)
	ev, _ := ret.Get(0).(*query.Event)
	return ev, ret.Error(1)
}

func (m *mockStore) GetEventsByOwner(ctx context.Context, ownerID string) ([]query.Event, error) {
	ret := m.Called(ctx, ownerID)
	events, _ := ret.Get(0).([]query.Event)
	return events, ret.Error(1)
}

func (m *mockStore) DeleteEvent(ctx context.Context, id string) (*query.Event, error) {
	ret := m.Called(ctx, id)
	ev, _ := ret.Get(0).(*query.Event)
	return ev, ret.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockIndexer struct{ mock.Mock }

func (m *mockIndexer) IndexEvent(ctx context.Context, event *query.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockIndexer) DeleteEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}
