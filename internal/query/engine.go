package query

import (
	"slices"
	"time"

	"golang.org/x/text/language"
)

const (
	// DefaultPageSize - сколько карточек помещается на одну страницу списка.
	DefaultPageSize = 6
	// DefaultPageWindow - сколько номеров страниц показывает пагинатор.
	DefaultPageWindow = 5
	// DefaultLatest - размер карусели последних событий.
	DefaultLatest = 5
)

// Params - полный неизменяемый набор параметров одного запроса к движку.
type Params struct {
	Filters  Filters `json:"filters"`
	Sort     Sort    `json:"sort"`
	Search   string  `json:"search,omitempty"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`

	// Now - момент, относительно которого считаются периоды по дате.
	// Вызывающий обязан задать его сам: движок не читает системные часы.
	Now       time.Time      `json:"-"`
	TZ        *time.Location `json:"-"`
	Collation language.Tag   `json:"-"`
}

// DefaultParams возвращает состояние списка при открытии: все оси "all",
// сортировка date-desc, первая страница, пустой поиск.
func DefaultParams() Params {
	return Params{
		Sort:      DefaultSort,
		Page:      1,
		PageSize:  DefaultPageSize,
		Collation: DefaultCollation,
	}
}

// HasActiveCriteria сообщает, сузил ли пользователь выборку поиском или фильтрами.
func (p Params) HasActiveCriteria() bool {
	return p.Search != "" || p.Filters.HasActive()
}

// Result - видимая страница и производные метаданные.
type Result struct {
	Items        []Event  `json:"items"`
	TotalMatches int      `json:"total_matches"`
	TotalPages   int      `json:"total_pages"`
	Page         int      `json:"page"`
	PageSize     int      `json:"page_size"`
	Pages        []int    `json:"pages"`
	Locations    []string `json:"locations"`
	EventTypes   []string `json:"event_types"`
}

// Execute выполняет поиск, фильтрацию, сортировку и пагинацию над снимком records.
// Функция не изменяет records и при одинаковых входных данных дает одинаковый результат.
// Ошибок нет: некорректные параметры приводятся к допустимым значениям.
func Execute(records []Event, p Params) Result {
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 1
	}

	matched := Matched(records, p)

	total := len(matched)
	totalPages := max(1, (total+pageSize-1)/pageSize)
	page := min(max(p.Page, 1), totalPages)

	from := min((page-1)*pageSize, total)
	to := min(page*pageSize, total)

	items := make([]Event, to-from)
	copy(items, matched[from:to])

	return Result{
		Items:        items,
		TotalMatches: total,
		TotalPages:   totalPages,
		Page:         page,
		PageSize:     pageSize,
		Pages:        PageWindow(page, totalPages, DefaultPageWindow),
		Locations:    DistinctLocations(records),
		EventTypes:   DistinctEventTypes(records),
	}
}

// Matched возвращает все подходящие события в порядке сортировки.
// Фильтрация сохраняет порядок снимка, сортировка стабильна.
func Matched(records []Event, p Params) []Event {
	env := MatchEnv{Now: p.Now, TZ: p.TZ}

	matched := make([]Event, 0, len(records))
	for _, ev := range records {
		if Matches(ev, p.Filters, p.Search, env) {
			matched = append(matched, ev)
		}
	}

	tag := p.Collation
	if tag == language.Und {
		tag = DefaultCollation
	}

	slices.SortStableFunc(matched, BuildComparator(p.Sort, tag))

	return matched
}

// PageWindow возвращает номера страниц для пагинатора: не больше size штук,
// текущая страница по возможности в центре.
func PageWindow(current, total, size int) []int {
	if total < 1 {
		total = 1
	}
	if size < 1 {
		size = 1
	}
	current = min(max(current, 1), total)

	first, last := 1, total
	if total > size {
		half := size / 2
		switch {
		case current <= half+1:
			first, last = 1, size
		case current >= total-half:
			first, last = total-size+1, total
		default:
			first = current - half
			last = first + size - 1
		}
	}

	pages := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		pages = append(pages, i)
	}
	return pages
}

// Latest возвращает n последних созданных событий (карусель на главной).
func Latest(records []Event, n int) []Event {
	if n <= 0 {
		return []Event{}
	}

	out := make([]Event, 0, len(records))
	for _, ev := range records {
		if ev.Valid() {
			out = append(out, ev)
		}
	}

	slices.SortStableFunc(out, BuildComparator(Sort{Key: SortByCreated, Direction: Desc}, DefaultCollation))

	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DistinctLocations собирает уникальные непустые локации в порядке первого появления.
// Считается по всему снимку, а не по отфильтрованной части, чтобы фильтр всегда можно было расширить.
func DistinctLocations(records []Event) []string {
	return distinct(records, func(ev Event) string { return ev.Location })
}

// DistinctEventTypes собирает уникальные теги типов событий по всему снимку.
func DistinctEventTypes(records []Event) []string {
	return distinct(records, Event.Type)
}

func distinct(records []Event, field func(Event) string) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0)

	for _, ev := range records {
		v := field(ev)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
