package query

import (
	"strings"
	"time"
)

// MatchEnv задает "текущий момент" и часовой пояс отображения
// для периодов today/this-week/this-month.
type MatchEnv struct {
	Now time.Time
	TZ  *time.Location
}

// Matches решает, подходит ли событие под фильтр и поисковую строку.
// Функция чистая: результат зависит только от аргументов.
func Matches(ev Event, f Filters, search string, env MatchEnv) bool {
	if !ev.Valid() {
		return false
	}

	// Сначала дешевые сравнения, строки в конце.
	if !matchesPrivacy(ev, f.Privacy) ||
		!matchesPrice(ev, f.Price, f.MaxPrice) ||
		!matchesDate(ev, f, env) ||
		!matchesExact(ev.Type(), f.EventType) ||
		!matchesExact(ev.Location, f.Location) {
		return false
	}

	if f.OwnerID != "" && ev.OwnerID != f.OwnerID {
		return false
	}

	return matchesSearch(ev, search)
}

func matchesSearch(ev Event, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)

	return strings.Contains(strings.ToLower(ev.Title), needle) ||
		strings.Contains(strings.ToLower(ev.Description), needle) ||
		strings.Contains(strings.ToLower(ev.Location), needle)
}

func matchesExact(value, selected string) bool {
	if wildcard(selected) {
		return true
	}
	return value == selected
}

func matchesPrivacy(ev Event, p Privacy) bool {
	if wildcard(string(p)) {
		return true
	}
	return ev.IsPrivate == (p == PrivacyPrivate)
}

// matchesPrice: отсутствующая цена считается бесплатной.
func matchesPrice(ev Event, tier PriceTier, ceiling *float64) bool {
	switch tier {
	case PriceFree:
		if ev.Price != nil && *ev.Price != 0 {
			return false
		}
	case PricePaid:
		if ev.Price == nil || *ev.Price <= 0 {
			return false
		}
	}

	if ceiling != nil && ev.Price != nil && *ev.Price > *ceiling {
		return false
	}

	return true
}

func matchesDate(ev Event, f Filters, env MatchEnv) bool {
	start := ev.StartDate

	if f.DateFrom != nil && start.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && start.After(*f.DateTo) {
		return false
	}

	now := env.Now
	switch f.DateRange {
	case DateToday:
		tz := env.TZ
		if tz == nil {
			tz = time.UTC
		}
		ey, em, ed := start.In(tz).Date()
		ny, nm, nd := now.In(tz).Date()
		return ey == ny && em == nm && ed == nd
	case DateThisWeek:
		return inWindow(start, now, now.AddDate(0, 0, 7))
	case DateThisMonth:
		return inWindow(start, now, now.AddDate(0, 1, 0))
	}

	return true
}

// inWindow проверяет from <= t <= to.
func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
