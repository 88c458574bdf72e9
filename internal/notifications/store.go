// Package notifications keeps the current user's notifications in memory and
// mirrors them into the shared notifications collection.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"agenda/internal/auth"
	"agenda/internal/kv"
	"agenda/internal/models"
	"agenda/internal/partition"
)

// NewCollection returns the shared notifications collection partitioned by recipient.
func NewCollection(store kv.Store, logger *slog.Logger) *partition.Collection[models.Notification] {
	return partition.NewCollection[models.Notification](store, kv.KeyNotifications, models.Notification.OwnedBy, logger)
}

// Store is scoped to one session. Read-only sessions keep their changes in
// memory only.
type Store struct {
	mu      sync.Mutex
	session auth.Session
	coll    *partition.Collection[models.Notification]
	items   []models.Notification
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore loads the notifications addressed to the session user.
func NewStore(ctx context.Context, logger *slog.Logger, session auth.Session, coll *partition.Collection[models.Notification], opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		session: session,
		coll:    coll,
		items:   []models.Notification{},
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !session.Authenticated() {
		return s, nil
	}
	items, err := coll.Load(ctx, session.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	s.items = items
	logger.Debug("Loaded notifications.", "user", session.UserID(), "count", len(items))
	return s, nil
}

// Push stores a new notification for the session user. ID, CreatedAt,
// UserID and Read are filled in.
func (s *Store) Push(ctx context.Context, n models.Notification) (models.Notification, error) {
	if !s.session.Authenticated() {
		return models.Notification{}, auth.ErrNotAuthenticated
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	n.ID = uuid.NewString()
	n.UserID = s.session.UserID()
	n.CreatedAt = s.now()
	n.Read = false

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	s.items = append(slices.Clone(s.items), n)
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return models.Notification{}, err
	}
	s.logger.Debug("Notification pushed.", "user", n.UserID, "type", n.Type, "event", n.EventID)
	return n, nil
}

// MarkRead sets read on the notification with id. Unknown ids and already
// read notifications are left alone.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	if !s.session.Authenticated() {
		return auth.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.items, func(n models.Notification) bool { return n.ID == id })
	if i < 0 || s.items[i].Read {
		return nil
	}

	prev := s.items
	s.items = slices.Clone(s.items)
	s.items[i].Read = true
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return err
	}
	return nil
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context) (int, error) {
	if !s.session.Authenticated() {
		return 0, auth.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	s.items = slices.Clone(s.items)
	changed := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return 0, err
	}
	return changed, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// List returns a copy of the notifications, newest first.
func (s *Store) List() []models.Notification {
	s.mu.Lock()
	out := slices.Clone(s.items)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// HasFor reports whether a notification with title already refers to eventID.
func (s *Store) HasFor(eventID, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.ContainsFunc(s.items, func(n models.Notification) bool {
		return n.EventID == eventID && n.Title == title
	})
}

func (s *Store) persist(ctx context.Context) error {
	if s.session.ReadOnly() {
		s.logger.Debug("Read-only session, notifications not persisted.", "user", s.session.UserID())
		return nil
	}
	if err := s.coll.Save(ctx, s.session.UserID(), s.items); err != nil {
		return fmt.Errorf("failed to save notifications: %w", err)
	}
	return nil
}
