package validate

import (
	"slices"
	"time"

	"agenda/internal/models"
)

// Warnings returned by Form setters when an edit is refused or corrected.
const (
	WarnEndDayBeforeStart  = "end date cannot be before start date"
	WarnEndTimeBeforeStart = "end time cannot be before start time on the same day"
)

const defaultDuration = time.Hour

// Form holds event input while it is being edited and applies the
// start/end auto-corrections on every change.
type Form struct {
	Title       string
	Description string
	Location    string
	Category    models.Category
	Attendees   []string

	start  time.Time
	end    time.Time
	allDay bool
	loc    *time.Location
}

// NewForm returns an empty form starting at now and lasting one hour.
func NewForm(now time.Time, loc *time.Location) *Form {
	if loc == nil {
		loc = time.Local
	}
	return &Form{
		Category: models.CategoryPersonal,
		start:    now.In(loc),
		end:      now.In(loc).Add(defaultDuration),
		loc:      loc,
	}
}

// FormFrom fills a form with an existing event.
func FormFrom(e models.Event, loc *time.Location) *Form {
	if loc == nil {
		loc = time.Local
	}
	return &Form{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Category:    e.Category,
		Attendees:   slices.Clone(e.Attendees),
		start:       e.Start.In(loc),
		end:         e.End.In(loc),
		allDay:      e.AllDay,
		loc:         loc,
	}
}

func (f *Form) Start() time.Time { return f.start }
func (f *Form) End() time.Time   { return f.end }
func (f *Form) AllDay() bool     { return f.allDay }

// SetStart changes the start. If the current end would precede it, the end
// moves to the start (all-day) or to one hour after it.
func (f *Form) SetStart(start time.Time) {
	f.start = start.In(f.loc)
	if !f.end.Before(f.start) {
		return
	}
	if f.allDay {
		f.end = f.start
	} else {
		f.end = f.start.Add(defaultDuration)
	}
}

// SetAllDay toggles the all-day flag. Switching it on collapses the end
// onto the start's day.
func (f *Form) SetAllDay(allDay bool) {
	f.allDay = allDay
	if allDay {
		f.end = f.start
	}
}

// SetEndDate moves the end to day. Timed events keep the end's time of day.
// A day before the start's day is refused and leaves the end unchanged.
func (f *Form) SetEndDate(day time.Time) string {
	day = day.In(f.loc)
	if StartOfDay(day, f.loc).Before(StartOfDay(f.start, f.loc)) {
		return WarnEndDayBeforeStart
	}

	if f.allDay {
		f.end = day
		return ""
	}

	candidate := time.Date(day.Year(), day.Month(), day.Day(),
		f.end.Hour(), f.end.Minute(), f.end.Second(), 0, f.loc)
	return f.setEnd(candidate)
}

// SetEnd moves a timed end to the instant end, under the same rules as
// SetEndDate and SetEndTime combined. All-day forms only take its date.
func (f *Form) SetEnd(end time.Time) string {
	end = end.In(f.loc)
	if f.allDay || StartOfDay(end, f.loc).Before(StartOfDay(f.start, f.loc)) {
		return f.SetEndDate(end)
	}
	return f.setEnd(end)
}

// SetEndTime changes the end's time of day, keeping its date.
func (f *Form) SetEndTime(hour, minute int) string {
	candidate := time.Date(f.end.Year(), f.end.Month(), f.end.Day(), hour, minute, 0, 0, f.loc)
	return f.setEnd(candidate)
}

// setEnd accepts candidate unless it is earlier than the start on the same
// day, in which case the end becomes start plus one hour.
func (f *Form) setEnd(candidate time.Time) string {
	if SameDay(candidate, f.start, f.loc) && candidate.Before(f.start) {
		f.end = f.start.Add(defaultDuration)
		return WarnEndTimeBeforeStart
	}
	f.end = candidate
	return ""
}

// Draft returns the normalized draft held by the form.
func (f *Form) Draft() models.EventDraft {
	return Normalize(models.EventDraft{
		Title:       f.Title,
		Description: f.Description,
		Location:    f.Location,
		Start:       f.start,
		End:         f.end,
		AllDay:      f.allDay,
		Category:    f.Category,
		Attendees:   slices.Clone(f.Attendees),
	}, f.loc)
}

// Validate runs Draft validation on the form's current content.
func (f *Form) Validate() error {
	return Draft(f.Draft())
}
