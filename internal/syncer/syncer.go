// Package syncer mirrors a user's events into an external calendar, pushing
// only what changed since the previous run.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"agenda/internal/kv"
	"agenda/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Target is the calendar events are mirrored into.
type Target interface {
	PutEvent(ctx context.Context, e models.Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// SyncState keeps, per user, the UpdatedAt of every event last pushed.
type SyncState map[string]map[string]time.Time

// Report counts what a Sync run did.
type Report struct {
	Published int
	Removed   int
	Unchanged int
	Failed    int
}

// Syncer orchestrates publishing of one user's events.
type Syncer struct {
	logger *slog.Logger
	store  kv.Store
	target Target
	userID string
	dryRun bool
}

// NewSyncer creates a Syncer for userID. In dry-run mode nothing is pushed
// and the state is not saved.
func NewSyncer(logger *slog.Logger, store kv.Store, target Target, userID string, dryRun bool) *Syncer {
	return &Syncer{
		logger: logger,
		store:  store,
		target: target,
		userID: userID,
		dryRun: dryRun,
	}
}

// Sync pushes new and changed events and removes the ones that disappeared.
// Failures of single events are logged and retried on the next run.
func (s *Syncer) Sync(ctx context.Context, events []models.Event) (Report, error) {
	s.logger.Info("Starting sync cycle.", "user", s.userID, "events", len(events))

	state, err := s.loadState(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load sync state: %w", err)
	}
	published := state[s.userID]
	if published == nil {
		published = map[string]time.Time{}
	}

	var report Report
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.ID] = struct{}{}
		if last, ok := published[e.ID]; ok && !e.UpdatedAt.After(last) {
			s.logger.Debug("Event unchanged, skipping.", "title", e.Title, "id", e.ID)
			report.Unchanged++
			continue
		}

		if s.dryRun {
			s.logger.Info("[DRY RUN] Would publish event.", "title", e.Title, "start", e.Start)
			report.Published++
			continue
		}
		if err := s.target.PutEvent(ctx, e); err != nil {
			s.logger.Error("Failed to publish event", "title", e.Title, "error", err)
			report.Failed++
			continue
		}
		published[e.ID] = e.UpdatedAt
		report.Published++
	}

	for _, id := range sortedKeys(published) {
		if _, ok := seen[id]; ok {
			continue
		}
		if s.dryRun {
			s.logger.Info("[DRY RUN] Would remove event.", "id", id)
			report.Removed++
			continue
		}
		if err := s.target.DeleteEvent(ctx, id); err != nil {
			s.logger.Error("Failed to remove event", "id", id, "error", err)
			report.Failed++
			continue
		}
		delete(published, id)
		report.Removed++
	}

	if !s.dryRun {
		state[s.userID] = published
		if err := s.saveState(ctx, state); err != nil {
			return report, err
		}
	}

	s.logger.Info("Sync cycle finished.", "published", report.Published, "removed", report.Removed, "unchanged", report.Unchanged, "failed", report.Failed)
	return report, nil
}

func (s *Syncer) loadState(ctx context.Context) (SyncState, error) {
	data, err := s.store.Get(ctx, kv.KeyPublishState)
	if errors.Is(err, kv.ErrKeyNotFound) {
		s.logger.Info("No sync state found, starting fresh.")
		return SyncState{}, nil
	}
	if err != nil {
		return nil, err
	}

	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("Sync state is corrupt, starting fresh.", "error", err)
		return SyncState{}, nil
	}
	if state == nil {
		state = SyncState{}
	}
	return state, nil
}

func (s *Syncer) saveState(ctx context.Context, state SyncState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := s.store.Set(ctx, kv.KeyPublishState, data); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]time.Time) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
