package syncer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/kv"
	"agenda/internal/models"
	"agenda/internal/syncer"
)

var t0 = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type fakeTarget struct {
	put     []string
	deleted []string
	failPut map[string]bool
}

func (f *fakeTarget) PutEvent(_ context.Context, e models.Event) error {
	if f.failPut[e.ID] {
		return errors.New("server said no")
	}
	f.put = append(f.put, e.ID)
	return nil
}

func (f *fakeTarget) DeleteEvent(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ev(id string, updated time.Time) models.Event {
	return models.Event{ID: id, Title: id, Start: t0, End: t0, UpdatedAt: updated}
}

func Test_Sync_PublishesOnlyChanges(t *testing.T) {
	// setup
	ctx := context.Background()
	store := kv.NewMemoryStore()
	target := &fakeTarget{}
	s := syncer.NewSyncer(discard(), store, target, "user-2", false)

	// act
	first, err := s.Sync(ctx, []models.Event{ev("a", t0), ev("b", t0)})
	require.NoError(t, err)
	second, err := s.Sync(ctx, []models.Event{ev("a", t0), ev("b", t0.Add(time.Minute))})
	require.NoError(t, err)

	// assert
	assert.Equal(t, syncer.Report{Published: 2}, first)
	assert.Equal(t, syncer.Report{Published: 1, Unchanged: 1}, second)
	assert.Equal(t, []string{"a", "b", "b"}, target.put)
}

func Test_Sync_RemovesVanishedEvents(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	target := &fakeTarget{}
	s := syncer.NewSyncer(discard(), store, target, "user-2", false)
	_, err := s.Sync(ctx, []models.Event{ev("a", t0), ev("b", t0)})
	require.NoError(t, err)

	report, err := s.Sync(ctx, []models.Event{ev("b", t0)})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"a"}, target.deleted)
}

func Test_Sync_RetriesFailedEvents(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	target := &fakeTarget{failPut: map[string]bool{"a": true}}
	s := syncer.NewSyncer(discard(), store, target, "user-2", false)

	report, err := s.Sync(ctx, []models.Event{ev("a", t0)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	target.failPut = nil
	report, err = s.Sync(ctx, []models.Event{ev("a", t0)})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)
}

func Test_Sync_When_DryRun(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	target := &fakeTarget{}
	s := syncer.NewSyncer(discard(), store, target, "user-2", true)

	report, err := s.Sync(ctx, []models.Event{ev("a", t0)})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Published)
	assert.Empty(t, target.put)
	_, err = store.Get(ctx, kv.KeyPublishState)
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func Test_Sync_KeepsStateOfOtherUsers(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	_, err := syncer.NewSyncer(discard(), store, &fakeTarget{}, "user-1", false).Sync(ctx, []models.Event{ev("x", t0)})
	require.NoError(t, err)

	target := &fakeTarget{}
	_, err = syncer.NewSyncer(discard(), store, target, "user-2", false).Sync(ctx, nil)
	require.NoError(t, err)

	assert.Empty(t, target.deleted, "user-2 must not remove user-1's events")
	again, err := syncer.NewSyncer(discard(), store, &fakeTarget{}, "user-1", false).Sync(ctx, []models.Event{ev("x", t0)})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Unchanged)
}
