package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Category groups events in list and calendar views.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategorySocial   Category = "social"
	CategoryOther    Category = "other"
)

var categoryLabels = map[Category]string{
	CategoryPersonal: "Personal",
	CategoryWork:     "Work",
	CategorySocial:   "Social",
	CategoryOther:    "Other",
}

var categoryColors = map[Category]string{
	CategoryPersonal: "#8b5cf6",
	CategoryWork:     "#3b82f6",
	CategorySocial:   "#f59e0b",
	CategoryOther:    "#9b87f5",
}

// Categories returns the fixed set of categories in display order.
func Categories() []Category {
	return []Category{CategoryPersonal, CategoryWork, CategorySocial, CategoryOther}
}

// CategoryNames joins the category values for usage and error text.
func CategoryNames() string {
	names := make([]string, 0, len(categoryLabels))
	for _, c := range Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryLabels[c]; !ok {
		return "", fmt.Errorf("unknown category %q, want one of %s", s, CategoryNames())
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label is the human-friendly name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Color is the hex color used to render the category.
func (c Category) Color() string {
	return categoryColors[c]
}

// Event represents a calendar entry owned by a single user.
// Attendees are granted read access only.
type Event struct {
	ID          string    `json:"id"`          // Assigned at creation, never changes
	Title       string    `json:"title"`       // Non-empty summary
	Description string    `json:"description"` // Optional free text
	Location    string    `json:"location"`    // Optional free text
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
	Category    Category  `json:"category"`
	CreatedBy   string    `json:"createdBy"` // Owning user ID
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Attendees   []string  `json:"attendees,omitempty"` // User IDs with read access
}

// OwnedBy reports whether userID created the event.
func (e Event) OwnedBy(userID string) bool {
	return e.CreatedBy == userID
}

// Attends reports whether userID is on the attendee list.
func (e Event) Attends(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

// VisibleTo reports whether userID may see the event: owners and attendees only.
func (e Event) VisibleTo(userID string) bool {
	return e.OwnedBy(userID) || e.Attends(userID)
}

// Clone returns a copy that does not share the attendee slice.
func (e Event) Clone() Event {
	e.Attendees = slices.Clone(e.Attendees)
	return e
}

// EventDraft holds the user-editable fields of a new event.
type EventDraft struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Category    Category
	Attendees   []string
}

// EventPatch holds a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	Category    *Category
	Attendees   *[]string
}

// Apply merges the provided fields onto e and returns the result.
func (p EventPatch) Apply(e Event) Event {
	out := e.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.AllDay != nil {
		out.AllDay = *p.AllDay
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Attendees != nil {
		out.Attendees = slices.Clone(*p.Attendees)
	}
	return out
}

// Empty reports whether the patch carries no field at all.
func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

// DraftOf extracts the editable fields of an existing event.
func DraftOf(e Event) EventDraft {
	return EventDraft{
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.AllDay,
		Category:    e.Category,
		Attendees:   slices.Clone(e.Attendees),
	}
}
