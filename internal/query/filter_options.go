package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// All - значение-джокер для любой оси фильтра.
const All = "all"

// DateRange - период по дате начала события.
type DateRange string

const (
	DateAll       DateRange = All
	DateToday     DateRange = "today"
	DateThisWeek  DateRange = "this-week"
	DateThisMonth DateRange = "this-month"
)

// Privacy - фильтр по доступности события.
type Privacy string

const (
	PrivacyAll     Privacy = All
	PrivacyPublic  Privacy = "public"
	PrivacyPrivate Privacy = "private"
)

// PriceTier - ценовая категория.
type PriceTier string

const (
	PriceAll  PriceTier = All
	PriceFree PriceTier = "free"
	PricePaid PriceTier = "paid"
)

// Имена осей, которые принимает Filters.Set.
const (
	AxisEventType = "eventType"
	AxisDateRange = "dateRange"
	AxisPrivacy   = "isPrivate"
	AxisPrice     = "price"
	AxisLocation  = "location"
	AxisDateFrom  = "dateFrom"
	AxisDateTo    = "dateTo"
	AxisMaxPrice  = "maxPrice"
)

var (
	ErrUnknownAxis  = errors.New("unknown filter axis")
	ErrInvalidValue = errors.New("invalid filter value")
)

// Filters содержит независимые оси фильтрации. Оси объединяются через AND,
// пустое значение или "all" на оси пропускает любое событие.
type Filters struct {
	EventType string     `json:"event_type,omitempty"`
	DateRange DateRange  `json:"date_range,omitempty"`
	DateFrom  *time.Time `json:"date_from,omitempty"` // включительно
	DateTo    *time.Time `json:"date_to,omitempty"`   // включительно
	Privacy   Privacy    `json:"privacy,omitempty"`
	Price     PriceTier  `json:"price,omitempty"`
	MaxPrice  *float64   `json:"max_price,omitempty"`
	Location  string     `json:"location,omitempty"`

	// OwnerID ограничивает выдачу событиями конкретного пользователя ("мои события").
	// Заполняется из удостоверенного принципала, а не из пользовательского ввода.
	OwnerID string `json:"owner_id,omitempty"`
}

// FilterOption функциональная опция для конфигурации фильтра.
type FilterOption func(*Filters)

// WithEventType добавляет фильтр по типу события (точное совпадение тега).
func WithEventType(eventType string) FilterOption {
	return func(f *Filters) {
		f.EventType = eventType
	}
}

// WithDateRange добавляет фильтр по периоду (today, this-week, this-month).
func WithDateRange(r DateRange) FilterOption {
	return func(f *Filters) {
		f.DateRange = r
	}
}

// WithDateBounds добавляет явные границы по дате начала.
// Можно передать только from (to = nil) или только to (from = nil).
func WithDateBounds(from, to *time.Time) FilterOption {
	return func(f *Filters) {
		f.DateFrom = from
		f.DateTo = to
	}
}

// WithPrivacy добавляет фильтр по приватности.
func WithPrivacy(p Privacy) FilterOption {
	return func(f *Filters) {
		f.Privacy = p
	}
}

// WithPriceTier добавляет фильтр по ценовой категории.
func WithPriceTier(t PriceTier) FilterOption {
	return func(f *Filters) {
		f.Price = t
	}
}

// WithMaxPrice добавляет потолок цены. События без цены проходят фильтр.
func WithMaxPrice(maxPrice float64) FilterOption {
	return func(f *Filters) {
		f.MaxPrice = &maxPrice
	}
}

// WithLocation добавляет фильтр по точному совпадению локации.
func WithLocation(location string) FilterOption {
	return func(f *Filters) {
		f.Location = location
	}
}

// WithOwner оставляет только события указанного владельца.
func WithOwner(ownerID string) FilterOption {
	return func(f *Filters) {
		f.OwnerID = ownerID
	}
}

// NewFilters создает фильтр с применением переданных опций.
func NewFilters(opts ...FilterOption) Filters {
	f := Filters{}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// IsEmpty проверяет, что ни одна ось не ограничивает выборку.
func (f Filters) IsEmpty() bool {
	return !f.HasActive() && f.OwnerID == ""
}

// HasActive сообщает, выбрал ли пользователь хоть одно значение, отличное от "all".
// Ось владельца сюда не входит: ее нельзя сбросить из интерфейса.
func (f Filters) HasActive() bool {
	return !wildcard(f.EventType) ||
		!wildcard(string(f.DateRange)) ||
		f.DateFrom != nil ||
		f.DateTo != nil ||
		!wildcard(string(f.Privacy)) ||
		!wildcard(string(f.Price)) ||
		f.MaxPrice != nil ||
		!wildcard(f.Location)
}

// Set возвращает копию фильтра с новым значением оси.
// Исходное значение не изменяется.
func (f Filters) Set(axis, value string) (Filters, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = All
	}

	switch axis {
	case AxisEventType:
		f.EventType = value
	case AxisDateRange:
		switch r := DateRange(value); r {
		case DateAll, DateToday, DateThisWeek, DateThisMonth:
			f.DateRange = r
		default:
			return f, fmt.Errorf("%w: %s=%q", ErrInvalidValue, axis, value)
		}
	case AxisPrivacy:
		switch p := Privacy(value); p {
		case PrivacyAll, PrivacyPublic, PrivacyPrivate:
			f.Privacy = p
		default:
			return f, fmt.Errorf("%w: %s=%q", ErrInvalidValue, axis, value)
		}
	case AxisPrice:
		switch t := PriceTier(value); t {
		case PriceAll, PriceFree, PricePaid:
			f.Price = t
		default:
			return f, fmt.Errorf("%w: %s=%q", ErrInvalidValue, axis, value)
		}
	case AxisLocation:
		f.Location = value
	case AxisDateFrom, AxisDateTo:
		return f.setDateBound(axis, value)
	case AxisMaxPrice:
		if value == All {
			f.MaxPrice = nil
			return f, nil
		}
		ceiling, err := strconv.ParseFloat(value, 64)
		if err != nil || ceiling < 0 || math.IsInf(ceiling, 0) || math.IsNaN(ceiling) {
			return f, fmt.Errorf("%w: %s=%q", ErrInvalidValue, axis, value)
		}
		f.MaxPrice = &ceiling
	default:
		return f, fmt.Errorf("%w: %q", ErrUnknownAxis, axis)
	}

	return f, nil
}

// setDateBound принимает RFC3339 или YYYY-MM-DD. Дата без времени в dateTo
// означает конец этого дня, чтобы граница оставалась включительной.
func (f Filters) setDateBound(axis, value string) (Filters, error) {
	var bound *time.Time
	if value != All {
		t, dateOnly, err := parseBound(value)
		if err != nil {
			return f, fmt.Errorf("%w: %s=%q: want RFC3339 or YYYY-MM-DD", ErrInvalidValue, axis, value)
		}
		if dateOnly && axis == AxisDateTo {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		bound = &t
	}

	from, to := f.DateFrom, f.DateTo
	if axis == AxisDateFrom {
		from = bound
	} else {
		to = bound
	}
	if from != nil && to != nil && from.After(*to) {
		return f, fmt.Errorf("%w: dateFrom is after dateTo", ErrInvalidValue)
	}

	f.DateFrom, f.DateTo = from, to
	return f, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}

func wildcard(v string) bool {
	return v == "" || v == All
}
