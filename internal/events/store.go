// Package events holds the session-scoped event store. Events of all users
// live in one shared collection; a store only ever rewrites the events its
// user owns.
package events

import (
	"context"
	"errors"
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
	"agenda/internal/validate"
)

var (
	ErrNotFound = errors.New("event not found")
	ErrNotOwner = errors.New("event is owned by another user")
)

// Notices returned in Result.
const (
	NoticeCreated  = "Event created"
	NoticeUpdated  = "Event updated"
	NoticeDeleted  = "Event deleted"
	NoticeReadOnly = "Demo account: events cannot be modified"
)

// Result describes the outcome of a mutation that did not fail outright.
// Rejected is set for read-only sessions, Invalid for validation failures;
// in both cases nothing was changed.
type Result struct {
	Event    models.Event
	Rejected bool
	Invalid  validate.Errors
	Notice   string
}

// Applied reports whether the mutation took effect.
func (r Result) Applied() bool {
	return !r.Rejected && len(r.Invalid) == 0
}

// Notifier receives event lifecycle notifications.
type Notifier interface {
	Push(ctx context.Context, n models.Notification) (models.Notification, error)
	HasFor(eventID, title string) bool
}

// NewCollection returns the shared events collection: written by owner,
// read by owner or attendee.
func NewCollection(store kv.Store, logger *slog.Logger) *partition.Collection[models.Event] {
	return partition.NewCollection[models.Event](store, kv.KeyEvents, models.Event.OwnedBy, logger).
		WithVisibility(models.Event.VisibleTo)
}

// Store keeps the events visible to one session.
type Store struct {
	mu       sync.RWMutex
	session  auth.Session
	coll     *partition.Collection[models.Event]
	notifier Notifier
	items    []models.Event
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLocation sets the time zone used for day boundaries. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewStore loads the events visible to the session user. Anonymous sessions
// start empty. notifier may be nil.
func NewStore(ctx context.Context, logger *slog.Logger, session auth.Session, coll *partition.Collection[models.Event], notifier Notifier, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		session:  session,
		coll:     coll,
		notifier: notifier,
		items:    []models.Event{},
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !session.Authenticated() {
		return s, nil
	}
	items, err := coll.Load(ctx, session.UserID())
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	s.items = items
	logger.Debug("Loaded events.", "user", session.UserID(), "count", len(items))
	return s, nil
}

// Create validates draft and stores it as a new event owned by the session user.
func (s *Store) Create(ctx context.Context, draft models.EventDraft) (Result, error) {
	if !s.session.Authenticated() {
		return Result{}, auth.ErrNotAuthenticated
	}
	if s.session.ReadOnly() {
		return s.rejected("create", ""), nil
	}

	draft = validate.Normalize(draft, s.loc)
	if err := validate.Draft(draft); err != nil {
		return invalid(err)
	}

	now := s.now()
	e := models.Event{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		Start:       draft.Start,
		End:         draft.End,
		AllDay:      draft.AllDay,
		Category:    draft.Category,
		CreatedBy:   s.session.UserID(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Attendees:   slices.Clone(draft.Attendees),
	}

	s.mu.Lock()
	next := append(slices.Clone(s.items), e)
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}
	s.items = next
	s.mu.Unlock()

	s.logger.Info("Event created.", "id", e.ID, "title", e.Title, "user", e.CreatedBy)
	s.notify(ctx, models.Notification{
		Title:   NoticeCreated,
		Message: fmt.Sprintf("You created the event: %s", e.Title),
		Type:    models.NotificationSuccess,
		EventID: e.ID,
	})

	return Result{Event: e.Clone(), Notice: NoticeCreated}, nil
}

// Update merges patch onto the event with id. Only the owner may update.
func (s *Store) Update(ctx context.Context, id string, patch models.EventPatch) (Result, error) {
	if !s.session.Authenticated() {
		return Result{}, auth.ErrNotAuthenticated
	}
	if s.session.ReadOnly() {
		return s.rejected("update", id), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.ownedIndex(id)
	if err != nil {
		return Result{}, err
	}
	current := s.items[i]

	updated := patch.Apply(current)
	draft := validate.Normalize(models.DraftOf(updated), s.loc)
	if err := validate.Draft(draft); err != nil {
		return invalid(err)
	}
	updated.Title = draft.Title
	updated.Start = draft.Start
	updated.End = draft.End
	updated.UpdatedAt = s.bump(current.UpdatedAt)

	next := slices.Clone(s.items)
	next[i] = updated
	if err := s.persist(ctx, next); err != nil {
		return Result{}, err
	}
	s.items = next

	s.logger.Info("Event updated.", "id", id, "user", s.session.UserID())
	return Result{Event: updated.Clone(), Notice: NoticeUpdated}, nil
}

// Delete removes the event with id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) (Result, error) {
	if !s.session.Authenticated() {
		return Result{}, auth.ErrNotAuthenticated
	}
	if s.session.ReadOnly() {
		return s.rejected("delete", id), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.ownedIndex(id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("Nothing to delete.", "id", id)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	removed := s.items[i]
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.persist(ctx, next); err != nil {
		return Result{}, err
	}
	s.items = next

	s.logger.Info("Event deleted.", "id", id, "user", s.session.UserID())
	return Result{Event: removed, Notice: NoticeDeleted}, nil
}

// ownedIndex finds a visible event and checks the session user owns it.
// Callers hold the lock.
func (s *Store) ownedIndex(id string) (int, error) {
	i := slices.IndexFunc(s.items, func(e models.Event) bool { return e.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.items[i].OwnedBy(s.session.UserID()) {
		return -1, fmt.Errorf("%w: %s", ErrNotOwner, id)
	}
	return i, nil
}

// bump returns a timestamp strictly after prev.
func (s *Store) bump(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func (s *Store) persist(ctx context.Context, items []models.Event) error {
	userID := s.session.UserID()
	owned := make([]models.Event, 0, len(items))
	for _, e := range items {
		if e.OwnedBy(userID) {
			owned = append(owned, e)
		}
	}
	if err := s.coll.Save(ctx, userID, owned); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	return nil
}

func (s *Store) notify(ctx context.Context, n models.Notification) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Push(ctx, n); err != nil {
		s.logger.Error("Failed to push notification", "title", n.Title, "event", n.EventID, "error", err)
	}
}

func (s *Store) rejected(action, id string) Result {
	s.logger.Info("Read-only session, mutation rejected.", "action", action, "id", id, "user", s.session.UserID())
	return Result{Rejected: true, Notice: NoticeReadOnly}
}

func invalid(err error) (Result, error) {
	if errs, ok := validate.AsErrors(err); ok {
		return Result{Invalid: errs, Notice: errs.Error()}, nil
	}
	return Result{}, err
}
