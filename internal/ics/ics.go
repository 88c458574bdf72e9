// Package ics converts events to and from iCalendar documents.
package ics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"agenda/internal/models"
	"agenda/internal/validate"
)

const (
	ProductID    = "-//agenda//EN"
	mailtoPrefix = "mailto:"
)

// Directory maps user IDs to emails so attendees survive the trip through
// iCalendar, which only knows addresses.
type Directory struct {
	emails map[string]string
	ids    map[string]string
}

func NewDirectory(users []models.User) Directory {
	d := Directory{emails: make(map[string]string, len(users)), ids: make(map[string]string, len(users))}
	for _, u := range users {
		email := strings.ToLower(u.Email)
		d.emails[u.ID] = email
		d.ids[email] = u.ID
	}
	return d
}

// NewCalendar returns an empty calendar with the mandatory properties set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// Export writes events as one VCALENDAR to w.
func Export(w io.Writer, events []models.Event, dir Directory, now time.Time) error {
	cal := NewCalendar()
	for _, e := range events {
		cal.Children = append(cal.Children, ToComponent(e, dir, now))
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// ToComponent converts e to a VEVENT. All-day events use DATE values with
// an exclusive end date.
func ToComponent(e models.Event, dir Directory, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID)
	ve.Props.SetText(ical.PropSummary, e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropCreated, e.CreatedAt.UTC())
	ve.Props.SetDateTime(ical.PropLastModified, e.UpdatedAt.UTC())

	if e.AllDay {
		ve.Props.SetDate(ical.PropDateTimeStart, e.Start)
		ve.Props.SetDate(ical.PropDateTimeEnd, e.End.AddDate(0, 0, 1))
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
	}

	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Category != "" {
		ve.Props.SetText(ical.PropCategories, string(e.Category))
	}
	if email, ok := dir.emails[e.CreatedBy]; ok {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(mailtoPrefix + email)
		ve.Props.Add(p)
	}
	for _, id := range e.Attendees {
		email, ok := dir.emails[id]
		if !ok {
			continue
		}
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(mailtoPrefix + email)
		ve.Props.Add(p)
	}
	return ve
}

// Import reads every VEVENT from r and returns them as drafts. Events that
// cannot be converted are logged and skipped.
func Import(r io.Reader, dir Directory, loc *time.Location, logger *slog.Logger) ([]models.EventDraft, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}

	var drafts []models.EventDraft
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return drafts, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			d, err := FromEvent(ev, dir, loc)
			if err != nil {
				uid, _ := ev.Props.Text(ical.PropUID)
				logger.Warn("Skipping event that cannot be imported.", "uid", uid, "error", err)
				continue
			}
			drafts = append(drafts, d)
		}
	}
	return drafts, nil
}

// FromEvent converts a VEVENT into a draft. Unknown categories map to "other".
func FromEvent(ev ical.Event, dir Directory, loc *time.Location) (models.EventDraft, error) {
	start, err := ev.DateTimeStart(loc)
	if err != nil {
		return models.EventDraft{}, fmt.Errorf("invalid start: %w", err)
	}
	if start.IsZero() {
		return models.EventDraft{}, errors.New("missing start")
	}
	end, err := ev.DateTimeEnd(loc)
	if err != nil {
		return models.EventDraft{}, fmt.Errorf("invalid end: %w", err)
	}

	allDay := false
	if p := ev.Props.Get(ical.PropDateTimeStart); p != nil && p.ValueType() == ical.ValueDate {
		allDay = true
	}

	switch {
	case end.IsZero():
		end = start
	case allDay && end.After(start):
		// DTEND of a DATE event is exclusive.
		end = end.AddDate(0, 0, -1)
	}

	d := models.EventDraft{
		Title:       text(ev.Props, ical.PropSummary),
		Description: text(ev.Props, ical.PropDescription),
		Location:    text(ev.Props, ical.PropLocation),
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Category:    models.CategoryOther,
	}
	if c, err := models.ParseCategory(strings.ToLower(text(ev.Props, ical.PropCategories))); err == nil {
		d.Category = c
	}
	for _, p := range ev.Props.Values(ical.PropAttendee) {
		email := strings.ToLower(strings.TrimPrefix(strings.ToLower(p.Value), mailtoPrefix))
		if id, ok := dir.ids[email]; ok {
			d.Attendees = append(d.Attendees, id)
		}
	}

	return validate.Normalize(d, loc), nil
}

func text(props ical.Props, name string) string {
	s, err := props.Text(name)
	if err != nil {
		return ""
	}
	return s
}
