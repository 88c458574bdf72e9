package events

import (
	"slices"
	"time"

	"agenda/internal/filter"
	"agenda/internal/models"
	"agenda/internal/validate"
)

// GetByID returns the visible event with id.
func (s *Store) GetByID(id string) (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.items {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return models.Event{}, false
}

// List returns every visible event in stored order.
func (s *Store) List() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e.Clone())
	}
	return out
}

// Filter applies spec to the visible events.
func (s *Store) Filter(spec filter.Spec) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return filter.Apply(s.items, spec)
}

// Upcoming returns events starting within [now, now+days], earliest first.
func (s *Store) Upcoming(now time.Time, days int) []models.Event {
	limit := now.AddDate(0, 0, days)

	var out []models.Event
	for _, e := range s.List() {
		if !e.Start.Before(now) && !e.Start.After(limit) {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out
}

// OnDay returns events starting on day's calendar day, earliest first.
func (s *Store) OnDay(day time.Time) []models.Event {
	var out []models.Event
	for _, e := range s.List() {
		if validate.SameDay(e.Start, day, s.loc) {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out
}

// Created returns the events owned by the session user.
func (s *Store) Created() []models.Event {
	userID := s.session.UserID()
	return slices.DeleteFunc(s.List(), func(e models.Event) bool { return !e.OwnedBy(userID) })
}

// Attending returns events the session user attends but does not own.
func (s *Store) Attending() []models.Event {
	userID := s.session.UserID()
	return slices.DeleteFunc(s.List(), func(e models.Event) bool { return e.OwnedBy(userID) || !e.Attends(userID) })
}

func sortByStart(events []models.Event) {
	slices.SortStableFunc(events, func(a, b models.Event) int {
		return a.Start.Compare(b.Start)
	})
}
