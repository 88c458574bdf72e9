// Package seed loads the demo dataset into the shared collections the first
// time the demo account signs in.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agenda/internal/kv"
	"agenda/internal/models"
	"agenda/internal/partition"
	"agenda/internal/validate"
)

// Report tells which parts of the dataset were written by Run.
type Report struct {
	Events        int
	Notifications int
}

// Seeder writes the demo dataset for one designated user.
type Seeder struct {
	store    kv.Store
	events   *partition.Collection[models.Event]
	notes    *partition.Collection[models.Notification]
	demoUser string
	partner  string
	loc      *time.Location
	logger   *slog.Logger
}

// NewSeeder creates a Seeder for demoUser. partner owns the demo event the
// demo user only attends.
func NewSeeder(store kv.Store, events *partition.Collection[models.Event], notes *partition.Collection[models.Notification], demoUser, partner string, loc *time.Location, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Seeder{
		store:    store,
		events:   events,
		notes:    notes,
		demoUser: demoUser,
		partner:  partner,
		loc:      loc,
		logger:   logger,
	}
}

// Run seeds the dataset if userID is the demo user and the flags are not set
// yet. Records of other users are kept; demo records already present are not
// duplicated.
func (s *Seeder) Run(ctx context.Context, userID string, now time.Time) (Report, error) {
	var report Report
	if s.demoUser == "" || userID != s.demoUser {
		return report, nil
	}

	n, err := seedOnce(ctx, s, kv.KeyDemoEventsLoaded, s.events, s.demoEvents(now), func(e models.Event) string { return e.ID })
	if err != nil {
		return report, err
	}
	report.Events = n

	n, err = seedOnce(ctx, s, kv.KeyDemoNotificationsLoaded, s.notes, s.demoNotifications(now), func(n models.Notification) string { return n.ID })
	if err != nil {
		return report, err
	}
	report.Notifications = n

	if report.Events > 0 || report.Notifications > 0 {
		s.logger.Info("Demo data seeded.", "user", userID, "events", report.Events, "notifications", report.Notifications)
	}
	return report, nil
}

func seedOnce[T any](ctx context.Context, s *Seeder, flag string, coll *partition.Collection[T], records []T, id func(T) string) (int, error) {
	loaded, err := kv.GetBool(ctx, s.store, flag)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", flag, err)
	}
	if loaded {
		return 0, nil
	}

	all, err := coll.All(ctx)
	if err != nil {
		return 0, err
	}
	present := make(map[string]struct{}, len(all))
	for _, r := range all {
		present[id(r)] = struct{}{}
	}
	added := 0
	for _, r := range records {
		if _, ok := present[id(r)]; !ok {
			all = append(all, r)
			added++
		}
	}

	if err := coll.Replace(ctx, all); err != nil {
		return 0, err
	}
	if err := kv.SetBool(ctx, s.store, flag, true); err != nil {
		return 0, fmt.Errorf("failed to set %s: %w", flag, err)
	}
	return added, nil
}

// demoID derives a stable id so that notifications can refer to demo events.
func (s *Seeder) demoID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda-demo/"+s.demoUser+"/"+name)).String()
}

func (s *Seeder) demoEvents(now time.Time) []models.Event {
	today := validate.StartOfDay(now, s.loc)
	at := func(days, hour int) time.Time {
		return today.AddDate(0, 0, days).Add(time.Duration(hour) * time.Hour)
	}
	deadline := now.AddDate(0, 0, 3)

	events := []models.Event{
		{
			ID:          s.demoID("team-meeting"),
			Title:       "Team meeting",
			Description: "Weekly sync with the development team",
			Location:    "Conference room A",
			Start:       at(0, 10),
			End:         at(0, 11),
			Category:    models.CategoryWork,
			CreatedBy:   s.demoUser,
		},
		{
			ID:          s.demoID("lunch"),
			Title:       "Lunch with Sarah",
			Description: "Catch up over lunch",
			Location:    "Downtown Café",
			Start:       at(0, 13),
			End:         at(0, 14),
			Category:    models.CategorySocial,
			CreatedBy:   s.demoUser,
		},
		{
			ID:          s.demoID("deadline"),
			Title:       "Project deadline",
			Description: "Submit the final project deliverables",
			Location:    "Office",
			Start:       validate.StartOfDay(deadline, s.loc),
			End:         validate.EndOfDay(deadline, s.loc),
			AllDay:      true,
			Category:    models.CategoryWork,
			CreatedBy:   s.demoUser,
		},
		{
			ID:          s.demoID("doctor"),
			Title:       "Doctor appointment",
			Description: "Annual check-up",
			Location:    "Medical center",
			Start:       at(1, 9),
			End:         at(1, 10),
			Category:    models.CategoryPersonal,
			CreatedBy:   s.demoUser,
		},
	}
	if s.partner != "" {
		events = append(events, models.Event{
			ID:          s.demoID("birthday"),
			Title:       "Birthday party",
			Description: "Celebration at Miguel's place",
			Location:    "12 Party Street",
			Start:       at(5, 18),
			End:         at(5, 22),
			Category:    models.CategorySocial,
			CreatedBy:   s.partner,
			Attendees:   []string{s.demoUser, s.partner},
		})
	}

	for i := range events {
		events[i].CreatedAt = now
		events[i].UpdatedAt = now
	}
	return events
}

func (s *Seeder) demoNotifications(now time.Time) []models.Notification {
	return []models.Notification{
		{
			ID:        s.demoID("notification-reminder"),
			Title:     "Event reminder",
			Message:   "Team meeting starts in 1 hour",
			Type:      models.NotificationInfo,
			EventID:   s.demoID("team-meeting"),
			UserID:    s.demoUser,
			CreatedAt: now,
		},
		{
			ID:        s.demoID("notification-moved"),
			Title:     "Event updated",
			Message:   "Lunch with Sarah was moved to 13:00",
			Type:      models.NotificationInfo,
			Read:      true,
			EventID:   s.demoID("lunch"),
			UserID:    s.demoUser,
			CreatedAt: now.Add(-24 * time.Hour),
		},
		{
			ID:        s.demoID("notification-deadline"),
			Title:     "Deadline approaching",
			Message:   "Project deadline in 3 days",
			Type:      models.NotificationWarning,
			EventID:   s.demoID("deadline"),
			UserID:    s.demoUser,
			CreatedAt: now.Add(-48 * time.Hour),
		},
	}
}
