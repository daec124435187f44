package query

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fixtureEvent struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title"`
	Description  string     `yaml:"description"`
	Location     string     `yaml:"location"`
	StartDate    time.Time  `yaml:"start_date"`
	EndDate      *time.Time `yaml:"end_date"`
	EventType    *string    `yaml:"event_type"`
	IsPrivate    bool       `yaml:"is_private"`
	Price        *float64   `yaml:"price"`
	MaxAttendees *int       `yaml:"max_attendees"`
	OwnerID      string     `yaml:"owner_id"`
	CreatedAt    time.Time  `yaml:"created_at"`
}

// loadFixture читает testdata/events.yaml.
func loadFixture(t *testing.T) []Event {
	t.Helper()

	data, err := os.ReadFile("testdata/events.yaml")
	require.NoError(t, err)

	var raw []fixtureEvent
	require.NoError(t, yaml.Unmarshal(data, &raw))

	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		events = append(events, Event{
			ID:           r.ID,
			Title:        r.Title,
			Description:  r.Description,
			Location:     r.Location,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			EventType:    r.EventType,
			IsPrivate:    r.IsPrivate,
			Price:        r.Price,
			MaxAttendees: r.MaxAttendees,
			OwnerID:      r.OwnerID,
			CreatedAt:    r.CreatedAt,
		})
	}
	return events
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.ID)
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
