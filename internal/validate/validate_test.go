package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/models"
	"agenda/internal/validate"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.ParseInLocation("2006-01-02T15:04", value, time.UTC)
	require.NoError(t, err)
	return ts
}

func Test_Draft_When_EndIsBeforeStart(t *testing.T) {
	d := models.EventDraft{
		Title:    "Standup",
		Start:    at(t, "2024-01-01T09:00"),
		End:      at(t, "2024-01-01T08:30"),
		Category: models.CategoryWork,
	}

	err := validate.Draft(d)

	errs, ok := validate.AsErrors(err)
	require.True(t, ok, "expected field errors, got %v", err)
	assert.Equal(t, validate.MsgEndBeforeStart, errs.Field(validate.FieldEnd))
	assert.Empty(t, errs.Field(validate.FieldTitle))
}

func Test_Draft_When_TitleIsBlank(t *testing.T) {
	d := models.EventDraft{
		Title:    "   ",
		Start:    at(t, "2024-01-01T09:00"),
		End:      at(t, "2024-01-01T09:00"),
		Category: models.CategoryOther,
	}

	errs, ok := validate.AsErrors(validate.Draft(d))

	require.True(t, ok)
	assert.Equal(t, validate.MsgTitleRequired, errs.Field(validate.FieldTitle))
	assert.Len(t, errs, 1, "zero-length events are valid")
}

func Test_Draft_When_CategoryIsUnknown(t *testing.T) {
	d := models.EventDraft{Title: "x", Category: "holiday"}

	errs, ok := validate.AsErrors(validate.Draft(d))

	require.True(t, ok)
	assert.Equal(t, validate.MsgUnknownCategory, errs.Field(validate.FieldCategory))
}

func Test_Draft_Accepts_ValidInput(t *testing.T) {
	d := models.EventDraft{
		Title:    "Lunch",
		Start:    at(t, "2024-01-01T12:00"),
		End:      at(t, "2024-01-01T13:00"),
		Category: models.CategorySocial,
	}

	assert.NoError(t, validate.Draft(d))
}

func Test_Errors_Message_IsSortedByField(t *testing.T) {
	errs := validate.Errors{validate.FieldTitle: "a", validate.FieldEnd: "b"}

	assert.Equal(t, "invalid event: end: b; title: a", errs.Error())
}

func Test_Normalize_AllDay_SnapsToDayBoundaries(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	d := models.EventDraft{
		Title:  "  Holiday ",
		Start:  time.Date(2024, 3, 10, 14, 30, 0, 0, loc),
		End:    time.Date(2024, 3, 10, 15, 0, 0, 0, loc),
		AllDay: true,
	}

	got := validate.Normalize(d, loc)

	assert.Equal(t, "Holiday", got.Title)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), got.Start)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, 999999999, loc), got.End)
	assert.True(t, validate.SameDay(got.Start, got.End, loc))
}

func Test_Normalize_Leaves_TimedEventsAlone(t *testing.T) {
	d := models.EventDraft{Title: "x", Start: at(t, "2024-01-01T09:15"), End: at(t, "2024-01-01T10:00")}

	got := validate.Normalize(d, time.UTC)

	assert.Equal(t, d.Start, got.Start)
	assert.Equal(t, d.End, got.End)
}

func Test_SameDay_UsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	a := at(t, "2024-01-01T14:00") // 23:00 in Tokyo
	b := at(t, "2024-01-01T16:00") // 01:00 next day in Tokyo

	assert.True(t, validate.SameDay(a, b, time.UTC))
	assert.False(t, validate.SameDay(a, b, tokyo))
}
