package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/models"
	"agenda/internal/validate"
)

func givenForm(t *testing.T, start, end string, allDay bool) *validate.Form {
	t.Helper()

	f := validate.FormFrom(models.Event{
		Title:    "Review",
		Start:    at(t, start),
		End:      at(t, end),
		AllDay:   allDay,
		Category: models.CategoryWork,
	}, time.UTC)
	return f
}

func Test_NewForm_Defaults(t *testing.T) {
	now := at(t, "2024-05-01T10:00")

	f := validate.NewForm(now, time.UTC)

	assert.Equal(t, now, f.Start())
	assert.Equal(t, now.Add(time.Hour), f.End())
	assert.Equal(t, models.CategoryPersonal, f.Category)
	assert.False(t, f.AllDay())
}

func Test_SetStart_When_EndWouldPrecedeStart(t *testing.T) {
	f := givenForm(t, "2024-05-01T10:00", "2024-05-01T11:00", false)

	f.SetStart(at(t, "2024-05-01T12:30"))

	assert.Equal(t, at(t, "2024-05-01T13:30"), f.End())
}

func Test_SetStart_Keeps_EndWhenStillAfter(t *testing.T) {
	f := givenForm(t, "2024-05-01T10:00", "2024-05-03T11:00", false)

	f.SetStart(at(t, "2024-05-02T08:00"))

	assert.Equal(t, at(t, "2024-05-03T11:00"), f.End())
}

func Test_SetStart_When_AllDay_MovesEndToSameDay(t *testing.T) {
	f := givenForm(t, "2024-05-01T00:00", "2024-05-01T00:00", true)

	f.SetStart(at(t, "2024-05-04T00:00"))
	d := f.Draft()

	assert.True(t, validate.SameDay(d.Start, d.End, time.UTC))
	assert.Equal(t, at(t, "2024-05-04T00:00"), d.Start)
	assert.NoError(t, f.Validate())
}

func Test_SetAllDay_CollapsesEndOntoStartDay(t *testing.T) {
	f := givenForm(t, "2024-05-01T10:00", "2024-05-06T18:00", false)

	f.SetAllDay(true)
	d := f.Draft()

	assert.True(t, d.AllDay)
	assert.True(t, validate.SameDay(d.Start, d.End, time.UTC))
}

func Test_SetEndDate_When_DayIsBeforeStartDay(t *testing.T) {
	f := givenForm(t, "2024-05-05T10:00", "2024-05-05T11:00", false)

	warning := f.SetEndDate(at(t, "2024-05-04T00:00"))

	assert.Equal(t, validate.WarnEndDayBeforeStart, warning)
	assert.Equal(t, at(t, "2024-05-05T11:00"), f.End(), "end must be left unchanged")
}

func Test_SetEndDate_Keeps_TimeOfDay(t *testing.T) {
	f := givenForm(t, "2024-05-05T10:00", "2024-05-05T11:15", false)

	warning := f.SetEndDate(at(t, "2024-05-07T00:00"))

	assert.Empty(t, warning)
	assert.Equal(t, at(t, "2024-05-07T11:15"), f.End())
}

func Test_SetEndDate_When_AllDay_TakesTheDate(t *testing.T) {
	f := givenForm(t, "2024-05-05T00:00", "2024-05-05T00:00", true)

	require.Empty(t, f.SetEndDate(at(t, "2024-05-08T00:00")))

	assert.Equal(t, at(t, "2024-05-08T23:59").Add(59*time.Second+999999999), f.Draft().End)
}

func Test_SetEndTime_When_EarlierThanStartOnSameDay(t *testing.T) {
	f := givenForm(t, "2024-05-05T10:00", "2024-05-05T11:00", false)

	warning := f.SetEndTime(9, 30)

	assert.Equal(t, validate.WarnEndTimeBeforeStart, warning)
	assert.Equal(t, at(t, "2024-05-05T11:00"), f.End())
}

func Test_SetEndTime_When_EndIsOnLaterDay(t *testing.T) {
	f := givenForm(t, "2024-05-05T10:00", "2024-05-06T11:00", false)

	warning := f.SetEndTime(9, 30)

	assert.Empty(t, warning)
	assert.Equal(t, at(t, "2024-05-06T09:30"), f.End())
}

func Test_Form_Never_ProducesEndBeforeStart(t *testing.T) {
	f := givenForm(t, "2024-05-05T10:00", "2024-05-05T11:00", false)

	f.SetEndTime(6, 0)
	f.SetEndDate(at(t, "2024-05-01T00:00"))
	f.SetStart(at(t, "2024-05-09T22:00"))
	f.SetEndTime(21, 0)

	d := f.Draft()
	assert.False(t, d.End.Before(d.Start))
	assert.NoError(t, f.Validate())
}

func Test_SetEnd_When_EarlierThanStartOnSameDay(t *testing.T) {
	f := givenForm(t, "2030-01-01T09:00", "2030-01-01T10:00", false)

	warning := f.SetEnd(at(t, "2030-01-01T08:30"))

	assert.Equal(t, validate.WarnEndTimeBeforeStart, warning)
	assert.Equal(t, at(t, "2030-01-01T10:00"), f.End())
}

func Test_SetEnd_Accepts_LaterTimeWhenCurrentEndIsNextDay(t *testing.T) {
	f := givenForm(t, "2030-01-01T23:00", "2030-01-02T00:00", false)

	warning := f.SetEnd(at(t, "2030-01-01T23:30"))

	assert.Empty(t, warning)
	assert.Equal(t, at(t, "2030-01-01T23:30"), f.End())
}

func Test_SetEnd_When_DayIsBeforeStartDay(t *testing.T) {
	f := givenForm(t, "2030-01-02T09:00", "2030-01-02T10:00", false)

	warning := f.SetEnd(at(t, "2030-01-01T12:00"))

	assert.Equal(t, validate.WarnEndDayBeforeStart, warning)
	assert.Equal(t, at(t, "2030-01-02T10:00"), f.End())
}
