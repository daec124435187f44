package query

import (
	"cmp"
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey - поле сортировки.
type SortKey string

const (
	SortByDate       SortKey = "date"
	SortByTitle      SortKey = "title"
	SortByPrice      SortKey = "price"
	SortByPopularity SortKey = "popularity" // по max_attendees
	SortByCreated    SortKey = "created"
)

// Direction - направление сортировки.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort - активный ключ сортировки и направление.
type Sort struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort - сначала самые поздние события.
var DefaultSort = Sort{Key: SortByDate, Direction: Desc}

// DefaultCollation - локаль, по которой сравниваются названия.
var DefaultCollation = language.Ukrainian

// String возвращает форму "<key>-<direction>", как в выпадающем списке сортировки.
func (s Sort) String() string {
	return string(s.Key) + "-" + string(s.Direction)
}

// Toggle возвращает ту же сортировку с обратным направлением.
func (s Sort) Toggle() Sort {
	if s.Direction == Desc {
		s.Direction = Asc
	} else {
		s.Direction = Desc
	}
	return s
}

// ParseSortKey проверяет имя ключа сортировки.
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case SortByDate, SortByTitle, SortByPrice, SortByPopularity, SortByCreated:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key: %q", raw)
	}
}

// ParseSort разбирает "date-desc", "title-asc" или просто "price" (по возрастанию).
// Пустая строка дает DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	keyPart, dirPart := raw, string(Asc)
	if i := strings.LastIndex(raw, "-"); i > 0 {
		keyPart, dirPart = raw[:i], raw[i+1:]
	}

	key, err := ParseSortKey(keyPart)
	if err != nil {
		return Sort{}, err
	}

	dir, err := ParseDirection(dirPart)
	if err != nil {
		return Sort{}, err
	}

	return Sort{Key: key, Direction: dir}, nil
}

// ParseDirection разбирает "asc"/"desc"; пустая строка - по возрастанию.
func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("unknown sort direction: %q", raw)
	}
}

// BuildComparator возвращает функцию сравнения для ключа и направления.
// Названия сравниваются с учетом правил локали tag, а не по кодовым точкам.
// Результат не безопасен для конкурентного использования: внутри живет collate.Collator.
func BuildComparator(s Sort, tag language.Tag) func(a, b Event) int {
	var natural func(a, b Event) int

	switch s.Key {
	case SortByDate:
		natural = func(a, b Event) int {
			return cmp.Compare(a.StartDate.UnixMilli(), b.StartDate.UnixMilli())
		}
	case SortByCreated:
		natural = func(a, b Event) int {
			return cmp.Compare(a.CreatedAt.UnixMilli(), b.CreatedAt.UnixMilli())
		}
	case SortByTitle:
		col := collate.New(tag)
		natural = func(a, b Event) int {
			return col.CompareString(a.Title, b.Title)
		}
	case SortByPrice:
		natural = func(a, b Event) int {
			return cmp.Compare(a.PriceOrZero(), b.PriceOrZero())
		}
	case SortByPopularity:
		natural = func(a, b Event) int {
			return cmp.Compare(a.CapacityOrZero(), b.CapacityOrZero())
		}
	default:
		return func(Event, Event) int { return 0 }
	}

	if s.Direction == Desc {
		return func(a, b Event) int {
			return -natural(a, b)
		}
	}
	return natural
}
