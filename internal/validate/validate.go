// Package validate checks event input before it reaches the event store and
// keeps the start/end fields of an event form consistent while they are edited.
package validate

import (
	"errors"
	"sort"
	"strings"
	"time"

	"agenda/internal/models"
)

// Field names used in Errors.
const (
	FieldTitle    = "title"
	FieldEnd      = "end"
	FieldCategory = "category"
)

const (
	MsgTitleRequired   = "title is required"
	MsgEndBeforeStart  = "end must not be before start"
	MsgUnknownCategory = "unknown category"
)

// Errors maps field names to a message for that field.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid event: " + strings.Join(parts, "; ")
}

// Field returns the message attached to field, or "".
func (e Errors) Field(field string) string {
	return e[field]
}

// AsErrors extracts field errors from err, if it carries any.
func AsErrors(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Draft validates d. It returns nil or an Errors value.
func Draft(d models.EventDraft) error {
	errs := Errors{}

	if strings.TrimSpace(d.Title) == "" {
		errs[FieldTitle] = MsgTitleRequired
	}
	if d.End.Before(d.Start) {
		errs[FieldEnd] = MsgEndBeforeStart
	}
	if !d.Category.Valid() {
		errs[FieldCategory] = MsgUnknownCategory
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Normalize trims the title and, for all-day drafts, snaps start to the
// beginning of its day and end to the end of its day in loc.
func Normalize(d models.EventDraft, loc *time.Location) models.EventDraft {
	d.Title = strings.TrimSpace(d.Title)
	if d.AllDay {
		d.Start, d.End = NormalizeAllDay(d.Start, d.End, loc)
	}
	return d
}

// NormalizeAllDay snaps an all-day interval to day boundaries in loc.
func NormalizeAllDay(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	return StartOfDay(start, loc), EndOfDay(end, loc)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
