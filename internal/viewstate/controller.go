// Package viewstate хранит изменяемое состояние одного представления списка
// (поиск, фильтры, сортировка, страница) и пересчитывает результат при каждом изменении.
package viewstate

import (
	"fmt"
	"sync"
	"time"

	"github.com/rx3lixir/event-listing/internal/query"
	"golang.org/x/text/language"
)

// State - параметры, которые меняет пользователь.
type State struct {
	Filters query.Filters `json:"filters"`
	Sort    query.Sort    `json:"sort"`
	Search  string        `json:"search"`
	Page    int           `json:"page"`
}

// Option настраивает Controller.
type Option func(*Controller)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation задает часовой пояс для периода "today".
func WithLocation(tz *time.Location) Option {
	return func(c *Controller) {
		c.tz = tz
	}
}

// WithCollation задает язык сортировки по названию.
func WithCollation(tag language.Tag) Option {
	return func(c *Controller) {
		c.collation = tag
	}
}

// WithPageSize задает размер страницы.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		c.pageSize = size
	}
}

// WithOwner закрепляет фильтр по владельцу. Он переживает Reset:
// страница "мои события" не превращается в общий список.
func WithOwner(ownerID string) Option {
	return func(c *Controller) {
		c.owner = ownerID
	}
}

// Controller владеет единственным изменяемым набором параметров.
// Каждое изменение заменяет State целиком и сразу вызывает query.Execute
// над неизменяемым снимком, поэтому наблюдатель не увидит промежуточного состояния.
type Controller struct {
	mu sync.Mutex

	records []query.Event
	state   State
	result  query.Result
	touched time.Time

	pageSize  int
	owner     string
	tz        *time.Location
	collation language.Tag
	now       func() time.Time
}

// New создает контроллер в состоянии по умолчанию и сразу считает первую страницу.
func New(records []query.Event, opts ...Option) *Controller {
	c := &Controller{
		records:   records,
		pageSize:  query.DefaultPageSize,
		collation: query.DefaultCollation,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(c.defaults())

	return c
}

func (c *Controller) defaults() State {
	return State{
		Filters: query.NewFilters(query.WithOwner(c.owner)),
		Sort:    query.DefaultSort,
		Page:    1,
	}
}

// apply вызывается под c.mu.
func (c *Controller) apply(next State) query.Result {
	now := c.now()

	res := query.Execute(c.records, query.Params{
		Filters:   next.Filters,
		Sort:      next.Sort,
		Search:    next.Search,
		Page:      next.Page,
		PageSize:  c.pageSize,
		Now:       now,
		TZ:        c.tz,
		Collation: c.collation,
	})

	next.Page = res.Page
	c.state = next
	c.result = res
	c.touched = now

	return res
}

// SetSearch меняет строку поиска и возвращает на первую страницу.
func (c *Controller) SetSearch(text string) query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	next.Search = text
	next.Page = 1
	return c.apply(next)
}

// SetFilter меняет одну ось фильтра. При ошибке состояние не меняется.
func (c *Controller) SetFilter(axis, value string) (query.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filters, err := c.state.Filters.Set(axis, value)
	if err != nil {
		return c.result, err
	}

	next := c.state
	next.Filters = filters
	next.Page = 1
	return c.apply(next), nil
}

// SetSort выбирает ключ сортировки как клик по заголовку колонки:
// тот же ключ меняет направление, новый ключ начинает с возрастания.
func (c *Controller) SetSort(key string) (query.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k, err := query.ParseSortKey(key)
	if err != nil {
		return c.result, err
	}

	next := c.state
	if next.Sort.Key == k {
		next.Sort = next.Sort.Toggle()
	} else {
		next.Sort = query.Sort{Key: k, Direction: query.Asc}
	}
	next.Page = 1
	return c.apply(next), nil
}

// SetSortSpec устанавливает ключ и направление сразу (выпадающий список "date-desc" и т.п.).
func (c *Controller) SetSortSpec(s query.Sort) (query.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := query.ParseSortKey(string(s.Key))
	if err != nil {
		return c.result, err
	}
	dir, err := query.ParseDirection(string(s.Direction))
	if err != nil {
		return c.result, err
	}

	next := c.state
	next.Sort = query.Sort{Key: key, Direction: dir}
	next.Page = 1
	return c.apply(next), nil
}

// SetPage переходит на страницу n. Номер вне диапазона приводится к ближайшей странице.
func (c *Controller) SetPage(n int) query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state
	next.Page = n
	return c.apply(next)
}

// Reset возвращает все параметры к значениям по умолчанию.
func (c *Controller) Reset() query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.apply(c.defaults())
}

// SetRecords подменяет снимок событий, сохраняя параметры пользователя.
// Это не действие пользователя, поэтому LastTouched не меняется.
func (c *Controller) SetRecords(records []query.Event) query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	touched := c.touched
	c.records = records
	res := c.apply(c.state)
	c.touched = touched
	return res
}

// State возвращает копию текущих параметров.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Result возвращает результат последнего пересчета.
func (c *Controller) Result() query.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result
}

// LastTouched - время последнего изменения, по нему реестр удаляет брошенные представления.
func (c *Controller) LastTouched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.touched
}

func (s State) String() string {
	return fmt.Sprintf("search=%q sort=%s page=%d", s.Search, s.Sort, s.Page)
}
