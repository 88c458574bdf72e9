package events

import (
	"context"
	"fmt"
	"time"

	"agenda/internal/auth"
	"agenda/internal/models"
)

const ReminderTitle = "Event reminder"

// Remind pushes one info notification for every visible event starting
// within lead of now. An event is never reminded twice. It returns the
// number of reminders pushed.
func (s *Store) Remind(ctx context.Context, now time.Time, lead time.Duration) (int, error) {
	if !s.session.Authenticated() {
		return 0, auth.ErrNotAuthenticated
	}
	if s.notifier == nil {
		return 0, nil
	}

	pushed := 0
	for _, e := range s.List() {
		if e.Start.Before(now) || e.Start.After(now.Add(lead)) {
			continue
		}
		if s.notifier.HasFor(e.ID, ReminderTitle) {
			continue
		}

		_, err := s.notifier.Push(ctx, models.Notification{
			Title:   ReminderTitle,
			Message: reminderMessage(e, now),
			Type:    models.NotificationInfo,
			EventID: e.ID,
		})
		if err != nil {
			return pushed, fmt.Errorf("failed to push reminder for %s: %w", e.ID, err)
		}
		pushed++
	}

	if pushed > 0 {
		s.logger.Info("Reminders pushed.", "user", s.session.UserID(), "count", pushed)
	}
	return pushed, nil
}

func reminderMessage(e models.Event, now time.Time) string {
	if e.AllDay {
		return fmt.Sprintf("%s is coming up on %s", e.Title, e.Start.Format("Mon Jan 2"))
	}
	in := e.Start.Sub(now).Round(time.Minute)
	if in <= 0 {
		return fmt.Sprintf("%s starts now", e.Title)
	}
	return fmt.Sprintf("%s starts in %s", e.Title, in)
}
