package models

import (
	"fmt"
	"strings"
)

// ValidateForIndexing проверяет готовность документа к индексации.
// Документ без id или start_date все равно был бы отброшен при выборке.
func (e *EventDocument) ValidateForIndexing() error {
	var errors []string

	if strings.TrimSpace(e.ID) == "" {
		errors = append(errors, "id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		errors = append(errors, "title is required")
	}
	if e.StartDate.IsZero() {
		errors = append(errors, "start_date is required")
	}
	if e.Price != nil && *e.Price < 0 {
		errors = append(errors, "price cannot be negative")
	}
	if e.CreatedAt.IsZero() {
		errors = append(errors, "created_at is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, ", "))
	}

	return nil
}
