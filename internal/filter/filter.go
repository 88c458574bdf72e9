// Package filter selects events by category, date range and free text.
package filter

import (
	"strings"
	"time"

	"agenda/internal/models"
)

// Spec lists the active clauses. Nil or empty fields are inactive.
type Spec struct {
	Category   *models.Category
	StartDate  *time.Time
	EndDate    *time.Time
	// SearchTerm is trimmed before matching; a blank term is inactive.
	SearchTerm string
}

// Empty reports whether no clause is active.
func (s Spec) Empty() bool {
	return s.Category == nil && s.StartDate == nil && s.EndDate == nil && strings.TrimSpace(s.SearchTerm) == ""
}

// Apply returns the events matching every active clause of spec, in input order.
// The input slice is never modified.
func Apply(events []models.Event, spec Spec) []models.Event {
	term := strings.ToLower(strings.TrimSpace(spec.SearchTerm))

	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if categoryOk(e, spec.Category) && dateRangeOk(e, spec.StartDate, spec.EndDate) && searchOk(e, term) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func categoryOk(e models.Event, c *models.Category) bool {
	return c == nil || e.Category == *c
}

// dateRangeOk keeps events whose [start, end] intersects [from, to].
func dateRangeOk(e models.Event, from, to *time.Time) bool {
	if from != nil && e.End.Before(*from) {
		return false
	}
	if to != nil && e.Start.After(*to) {
		return false
	}
	return true
}

func searchOk(e models.Event, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), term) ||
		strings.Contains(strings.ToLower(e.Description), term) ||
		strings.Contains(strings.ToLower(e.Location), term)
}
