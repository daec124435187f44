package server

import (
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rx3lixir/event-listing/internal/query"
)

// ============================================================================
// ЗАПРОС - STRUCT В ПАРАМЕТРЫ ВЫБОРКИ
// ============================================================================

// StructToParams конвертирует запрос ListEvents в параметры движка.
// Оси фильтра передаются теми же именами, что и в HTTP; все значения проходят через query.Filters.Set.
func StructToParams(req *structpb.Struct, owner string) (query.Params, error) {
	p := query.DefaultParams()
	p.PageSize = 0
	if req == nil {
		return p, nil
	}
	fields := req.AsMap()

	search, err := stringField(fields, "search")
	if err != nil {
		return p, err
	}
	p.Search = search

	rawSort, err := stringField(fields, "sort")
	if err != nil {
		return p, err
	}
	if p.Sort, err = query.ParseSort(rawSort); err != nil {
		return p, err
	}

	if p.Page, err = intField(fields, "page"); err != nil {
		return p, err
	}
	p.Page = max(p.Page, 1)
	if p.PageSize, err = intField(fields, "page_size"); err != nil {
		return p, err
	}
	if p.PageSize < 0 || p.PageSize > 100 {
		return p, fmt.Errorf("page_size must be between 1 and 100")
	}

	f := query.Filters{}
	for _, axis := range []struct{ field, name string }{
		{query.AxisEventType, query.AxisEventType},
		{query.AxisDateRange, query.AxisDateRange},
		{query.AxisPrivacy, query.AxisPrivacy},
		{query.AxisPrice, query.AxisPrice},
		{query.AxisLocation, query.AxisLocation},
		{"date_from", query.AxisDateFrom},
		{"date_to", query.AxisDateTo},
	} {
		value, err := stringField(fields, axis.field)
		if err != nil {
			return p, err
		}
		if value == "" {
			continue
		}
		if f, err = f.Set(axis.name, value); err != nil {
			return p, err
		}
	}

	if raw, ok := fields["max_price"]; ok && raw != nil {
		ceiling, ok := raw.(float64)
		if !ok {
			return p, fmt.Errorf("max_price must be a number")
		}
		if f, err = f.Set(query.AxisMaxPrice, strconv.FormatFloat(ceiling, 'f', -1, 64)); err != nil {
			return p, err
		}
	}

	if mine, _ := fields["mine"].(bool); mine {
		if owner == "" {
			return p, errOwnerRequired
		}
		f.OwnerID = owner
	}

	p.Filters = f
	return p, nil
}

func stringField(fields map[string]any, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s, nil
}

// intField: числа в Struct всегда double.
func intField(fields map[string]any, name string) (int, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return 0, nil
	}
	n, ok := raw.(float64)
	if !ok || n != float64(int(n)) {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return int(n), nil
}

// ============================================================================
// ОТВЕТ - МОДЕЛИ В STRUCT
// ============================================================================

// ToStruct переводит любое JSON-сериализуемое значение в Struct через его JSON представление,
// поэтому имена полей совпадают с HTTP ответами.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return structpb.NewStruct(fields)
}

// ResultToStruct конвертирует страницу выборки в ответ ListEvents.
func ResultToStruct(res query.Result, hasActive bool) (*structpb.Struct, error) {
	return ToStruct(struct {
		query.Result
		HasActive bool `json:"has_active"`
	}{res, hasActive})
}

// EventsToStruct конвертирует список событий в ответ LatestEvents.
func EventsToStruct(events []query.Event) (*structpb.Struct, error) {
	return ToStruct(map[string]any{"items": events})
}
