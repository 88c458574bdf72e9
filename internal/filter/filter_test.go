package filter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agenda/internal/filter"
	"agenda/internal/models"
)

func day(n int) time.Time {
	return time.Date(2024, 6, n, 0, 0, 0, 0, time.UTC)
}

func event(id string, c models.Category, from, to time.Time) models.Event {
	return models.Event{ID: id, Title: "Event " + id, Category: c, Start: from, End: to}
}

func ids(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func fixture() []models.Event {
	return []models.Event{
		event("a", models.CategoryWork, day(1), day(1)),
		event("b", models.CategoryPersonal, day(5), day(5)),
		event("c", models.CategoryWork, day(2), day(9)),
		event("d", models.CategorySocial, day(10), day(11)),
	}
}

func ptr[T any](v T) *T { return &v }

func Test_Apply_When_SpecIsEmpty(t *testing.T) {
	events := fixture()

	got := filter.Apply(events, filter.Spec{})

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(got))
	assert.True(t, filter.Spec{}.Empty())
}

func Test_Apply_ByCategory(t *testing.T) {
	got := filter.Apply(fixture(), filter.Spec{Category: ptr(models.CategoryWork)})

	assert.Equal(t, []string{"a", "c"}, ids(got))
	for _, e := range got {
		assert.Equal(t, models.CategoryWork, e.Category)
	}
}

func Test_Apply_ByDateRange(t *testing.T) {
	events := []models.Event{
		event("A", models.CategoryOther, day(1), day(1)),
		event("B", models.CategoryOther, day(5), day(5)),
	}

	got := filter.Apply(events, filter.Spec{StartDate: ptr(day(3)), EndDate: ptr(day(7))})

	assert.Equal(t, []string{"B"}, ids(got))
}

func Test_Apply_ByDateRange_KeepsOverlappingIntervals(t *testing.T) {
	got := filter.Apply(fixture(), filter.Spec{StartDate: ptr(day(3)), EndDate: ptr(day(4))})

	assert.Equal(t, []string{"c"}, ids(got), "c spans the whole range")
}

func Test_Apply_ByDateRange_When_OnlyOneBoundIsSet(t *testing.T) {
	from := filter.Apply(fixture(), filter.Spec{StartDate: ptr(day(5))})
	to := filter.Apply(fixture(), filter.Spec{EndDate: ptr(day(2))})

	assert.Equal(t, []string{"b", "c", "d"}, ids(from))
	assert.Equal(t, []string{"a", "c"}, ids(to))
}

func Test_Apply_BySearchTerm_MatchesAnyField(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "Quarterly PLANNING"},
		{ID: "2", Title: "Lunch", Description: "talk about planning"},
		{ID: "3", Title: "Offsite", Location: "Planning room 2"},
		{ID: "4", Title: "Gym"},
	}

	got := filter.Apply(events, filter.Spec{SearchTerm: "Planning"})

	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
}

func Test_Apply_CombinesAllClauses(t *testing.T) {
	events := fixture()
	events[2].Description = "sprint review"

	got := filter.Apply(events, filter.Spec{
		Category:   ptr(models.CategoryWork),
		StartDate:  ptr(day(3)),
		SearchTerm: "review",
	})

	assert.Equal(t, []string{"c"}, ids(got))

	none := filter.Apply(events, filter.Spec{Category: ptr(models.CategoryPersonal), SearchTerm: "review"})
	assert.Empty(t, none, "search must not bypass the category clause")
}

func Test_Apply_DoesNotModifyInput(t *testing.T) {
	events := fixture()
	events[0].Attendees = []string{"user-2"}

	got := filter.Apply(events, filter.Spec{})
	got[0].Attendees[0] = "changed"

	assert.Equal(t, "user-2", events[0].Attendees[0])
}

func Test_Apply_BySearchTerm_TrimsTheTerm(t *testing.T) {
	events := fixture()

	padded := filter.Apply(events, filter.Spec{SearchTerm: "  event b "})
	blank := filter.Apply(events, filter.Spec{SearchTerm: "   "})

	assert.Equal(t, []string{"b"}, ids(padded))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(blank))
	assert.True(t, filter.Spec{SearchTerm: "   "}.Empty())
}
