// Package calendar отдает отфильтрованный список событий как iCalendar-ленту.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/rx3lixir/event-listing/internal/query"
)

const (
	productID = "-//rx3lixir//event-listing//UK"
	// defaultDuration используется, когда у события нет даты окончания.
	defaultDuration = time.Hour
)

// Feed собирает календарь. BaseURL, если задан, дает ссылку на карточку события.
type Feed struct {
	Name    string
	BaseURL string
}

// Render сериализует события в iCalendar. Невалидные записи пропускаются.
func (f Feed) Render(events []query.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	for _, ev := range events {
		if !ev.Valid() {
			continue
		}
		f.addEvent(cal, ev, stamp)
	}

	return cal.Serialize()
}

func (f Feed) addEvent(cal *ical.Calendar, ev query.Event, stamp time.Time) {
	vevent := cal.AddEvent(ev.ID + "@event-listing")
	vevent.SetDtStampTime(stamp.UTC())
	vevent.SetCreatedTime(ev.CreatedAt.UTC())
	vevent.SetStartAt(ev.StartDate.UTC())

	end := ev.StartDate.Add(defaultDuration)
	if ev.EndDate != nil && ev.EndDate.After(ev.StartDate) {
		end = *ev.EndDate
	}
	vevent.SetEndAt(end.UTC())

	vevent.SetSummary(ev.Title)
	if ev.Description != "" {
		vevent.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		vevent.SetLocation(ev.Location)
	}
	if t := ev.Type(); t != "" {
		vevent.AddProperty(ical.ComponentPropertyCategories, t)
	}
	if ev.IsPrivate {
		vevent.AddProperty(ical.ComponentPropertyClass, "PRIVATE")
	}
	if f.BaseURL != "" {
		vevent.SetURL(fmt.Sprintf("%s/events/%s", strings.TrimRight(f.BaseURL, "/"), ev.ID))
	}
}
