package seed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/events"
	"agenda/internal/kv"
	"agenda/internal/models"
	"agenda/internal/notifications"
	"agenda/internal/seed"
)

var now = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func givenSeeder(t *testing.T, store kv.Store) *seed.Seeder {
	t.Helper()
	return seed.NewSeeder(store, events.NewCollection(store, nil), notifications.NewCollection(store, nil),
		"user-1", "user-2", time.UTC, nil)
}

func Test_Run_When_UserIsNotDemo(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	report, err := givenSeeder(t, store).Run(ctx, "user-2", now)

	require.NoError(t, err)
	assert.Zero(t, report)
	loaded, err := kv.GetBool(ctx, store, kv.KeyDemoEventsLoaded)
	require.NoError(t, err)
	assert.False(t, loaded)
}

func Test_Run_SeedsOnce(t *testing.T) {
	// setup
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := givenSeeder(t, store)

	// act
	first, err := s.Run(ctx, "user-1", now)
	require.NoError(t, err)
	second, err := s.Run(ctx, "user-1", now.Add(time.Hour))
	require.NoError(t, err)

	// assert
	assert.Equal(t, seed.Report{Events: 5, Notifications: 3}, first)
	assert.Zero(t, second)

	all, err := events.NewCollection(store, nil).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	for _, flag := range []string{kv.KeyDemoEventsLoaded, kv.KeyDemoNotificationsLoaded} {
		loaded, err := kv.GetBool(ctx, store, flag)
		require.NoError(t, err)
		assert.True(t, loaded, flag)
	}
}

func Test_Run_Keeps_ExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	coll := events.NewCollection(store, nil)
	existing := models.Event{ID: "mine", Title: "Mine", CreatedBy: "user-3", Category: models.CategoryOther}
	require.NoError(t, coll.Replace(ctx, []models.Event{existing}))

	_, err := givenSeeder(t, store).Run(ctx, "user-1", now)
	require.NoError(t, err)

	all, err := coll.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "mine", all[0].ID)
}

func Test_Run_DemoData_IsConsistent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	_, err := givenSeeder(t, store).Run(ctx, "user-1", now)
	require.NoError(t, err)

	demoView, err := events.NewCollection(store, nil).Load(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, demoView, 5, "the partner's party is visible as attendee")

	ids := map[string]bool{}
	for _, e := range demoView {
		ids[e.ID] = true
		assert.False(t, e.End.Before(e.Start), e.Title)
	}

	notes, err := notifications.NewCollection(store, nil).Load(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, notes, 3)
	for _, n := range notes {
		assert.True(t, ids[n.EventID], "notification %q must refer to a demo event", n.Title)
	}

	partnerView, err := events.NewCollection(store, nil).Load(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, partnerView, 1)
}
