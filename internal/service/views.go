package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/internal/viewstate"
	"github.com/rx3lixir/event-listing/pkg/logger"
	"github.com/rx3lixir/event-listing/pkg/metrics"
)

// Views - реестр открытых представлений списка. Состояние живет только в памяти;
// представления, которые не трогали дольше ttl, удаляются при Prune.
// Представление, открытое с X-User-ID, доступно только этому пользователю.
type Views struct {
	mu    sync.RWMutex
	views map[string]*view

	snapshots Snapshots
	settings  Settings
	ttl       time.Duration
	maxViews  int
	logger    logger.Logger
	now       func() time.Time
}

type view struct {
	ctrl  *viewstate.Controller
	owner string
}

// allows: анонимное представление доступно по ID любому, именное - только владельцу.
func (w *view) allows(principal string) bool {
	return w.owner == "" || w.owner == principal
}

func NewViews(snapshots Snapshots, settings Settings, ttl time.Duration, maxViews int, logger logger.Logger) *Views {
	return &Views{
		views:     make(map[string]*view),
		snapshots: snapshots,
		settings:  settings,
		ttl:       ttl,
		maxViews:  maxViews,
		logger:    logger,
		now:       time.Now,
	}
}

// Create открывает новое представление от имени principal (пустой - аноним).
// mine закрепляет фильтр "мои события" и требует principal.
func (v *Views) Create(principal string, mine bool) (string, query.Result, error) {
	ownerFilter := ""
	if mine {
		if principal == "" {
			return "", query.Result{}, fmt.Errorf("mine requires a user: %w", ErrForbidden)
		}
		ownerFilter = principal
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.maxViews > 0 && len(v.views) >= v.maxViews {
		v.pruneLocked()
		if len(v.views) >= v.maxViews {
			return "", query.Result{}, fmt.Errorf("%d views open: %w", len(v.views), ErrTooManyViews)
		}
	}

	ctrl := viewstate.New(v.snapshots.Events(),
		viewstate.WithClock(v.now),
		viewstate.WithLocation(v.settings.TZ),
		viewstate.WithCollation(v.settings.Collation),
		viewstate.WithPageSize(v.settings.PageSize),
		viewstate.WithOwner(ownerFilter),
	)

	id := uuid.NewString()
	v.views[id] = &view{ctrl: ctrl, owner: principal}
	metrics.ViewsActive.Set(float64(len(v.views)))

	v.logger.Debug("View opened", "view_id", id, "owner_id", principal, "mine", mine)

	return id, v.decorate(ctrl.Result()), nil
}

// Get возвращает контроллер представления, если principal имеет к нему доступ.
func (v *Views) Get(id, principal string) (*viewstate.Controller, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	w, ok := v.views[id]
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, ErrViewNotFound)
	}
	if !w.allows(principal) {
		return nil, fmt.Errorf("view %s belongs to another user: %w", id, ErrForbidden)
	}
	return w.ctrl, nil
}

// Result - последний результат представления с окном пагинации.
func (v *Views) Result(id, principal string) (query.Result, error) {
	ctrl, err := v.Get(id, principal)
	if err != nil {
		return query.Result{}, err
	}
	return v.decorate(ctrl.Result()), nil
}

// Apply находит представление, применяет к нему изменение и дополняет результат окном пагинации.
func (v *Views) Apply(id, principal string, change func(*viewstate.Controller) (query.Result, error)) (query.Result, error) {
	ctrl, err := v.Get(id, principal)
	if err != nil {
		return query.Result{}, err
	}

	start := time.Now()
	res, err := change(ctrl)
	if err != nil {
		return query.Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	metrics.RecordQuery("view", res.TotalMatches, time.Since(start))

	return v.decorate(res), nil
}

func (v *Views) Delete(id, principal string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	w, ok := v.views[id]
	if !ok {
		return fmt.Errorf("view %s: %w", id, ErrViewNotFound)
	}
	if !w.allows(principal) {
		return fmt.Errorf("view %s belongs to another user: %w", id, ErrForbidden)
	}
	delete(v.views, id)
	metrics.ViewsActive.Set(float64(len(v.views)))
	return nil
}

func (v *Views) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.views)
}

// Prune удаляет брошенные представления и возвращает их количество.
func (v *Views) Prune() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pruneLocked()
}

func (v *Views) pruneLocked() int {
	if v.ttl <= 0 {
		return 0
	}

	deadline := v.now().Add(-v.ttl)
	pruned := 0
	for id, w := range v.views {
		if w.ctrl.LastTouched().Before(deadline) {
			delete(v.views, id)
			pruned++
		}
	}

	if pruned > 0 {
		metrics.ViewsPrunedTotal.Add(float64(pruned))
		metrics.ViewsActive.Set(float64(len(v.views)))
		v.logger.Debug("Idle views pruned", "pruned", pruned, "remaining", len(v.views))
	}
	return pruned
}

// SetRecords переносит все открытые представления на новый снимок.
// Вызывается после обновления кеша.
func (v *Views) SetRecords(records []query.Event) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, w := range v.views {
		w.ctrl.SetRecords(records)
	}
}

func (v *Views) decorate(res query.Result) query.Result {
	if v.settings.PageWindow > 0 {
		res.Pages = query.PageWindow(res.Page, res.TotalPages, v.settings.PageWindow)
	}
	return res
}
