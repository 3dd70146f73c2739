// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-health-keeper/internal/adapter"
	"github.com/MKhiriev/go-health-keeper/internal/crypto"
	"github.com/MKhiriev/go-health-keeper/internal/logger"
	"github.com/MKhiriev/go-health-keeper/internal/mock"
	"github.com/MKhiriev/go-health-keeper/internal/store"
	"github.com/MKhiriev/go-health-keeper/models"
)

type coordinatorFixture struct {
	coordinator *syncCoordinator
	adapter     *mock.MockServerAdapter
	store       store.LocalRecordStore
	envelope    crypto.Envelope
	key         []byte
}

func newCoordinatorFixture(t *testing.T) coordinatorFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().SetToken(gomock.Any()).AnyTimes()

	localStore := newLocalStore(t)
	envelope := crypto.NewKeyChain()
	c := NewSyncCoordinator(localStore, serverAdapter, envelope, testWorkers, logger.Nop()).(*syncCoordinator)

	return coordinatorFixture{
		coordinator: c,
		adapter:     serverAdapter,
		store:       localStore,
		envelope:    envelope,
		key:         envelope.DeriveKey(testPassphrase, nil),
	}
}

func emptyPage(since int64) models.PullResponse {
	return models.PullResponse{Entries: []models.PullEntry{}, NextCursor: since}
}

func TestSyncCoordinator_NoCredentials(t *testing.T) {
	f := newCoordinatorFixture(t)

	err := f.coordinator.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)

	f.coordinator.SetCredentials(models.Credentials{AuthToken: "token-only"})
	err = f.coordinator.Sync(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSyncCoordinator_Paused(t *testing.T) {
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	f.coordinator.Pause()
	assert.ErrorIs(t, f.coordinator.Sync(context.Background()), ErrSyncPaused)

	f.coordinator.Resume()
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)
	assert.NoError(t, f.coordinator.Sync(context.Background()))
}

func TestSyncCoordinator_SingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	id, _, err := f.store.Add(ctx, models.Intake{AmountMl: 100}, nil)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.adapter.EXPECT().Push(gomock.Any(), gomock.Len(1)).
		DoAndReturn(func(context.Context, []models.PushEntry) (models.PushResponse, error) {
			close(entered)
			<-release
			return models.PushResponse{AcceptedIDs: []string{id}}, nil
		})
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)

	done := make(chan error, 1)
	go func() { done <- f.coordinator.Sync(ctx) }()

	<-entered
	assert.True(t, f.coordinator.Status().Running)
	assert.ErrorIs(t, f.coordinator.Sync(ctx), ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.coordinator.Status().Running)
}

func TestSyncCoordinator_PushMarksOnlyAccepted(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	accepted, _, err := f.store.Add(ctx, models.Intake{AmountMl: 100}, nil)
	require.NoError(t, err)
	skipped, _, err := f.store.Add(ctx, models.Intake{AmountMl: 200}, nil)
	require.NoError(t, err)
	tomb, _, err := f.store.Add(ctx, models.Goal{Kind: "intake", TargetMl: 2000}, nil)
	require.NoError(t, err)
	_, err = f.store.Delete(ctx, models.EntityGoal, tomb)
	require.NoError(t, err)

	f.adapter.EXPECT().Push(gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, entries []models.PushEntry) (models.PushResponse, error) {
			for _, e := range entries {
				assert.Equal(t, models.EntityIntake, e.EntityType)
				_, ok := f.envelope.Open(e.SealedPayload, f.key)
				assert.True(t, ok, "payload is sealed with the derived key")
			}
			return models.PushResponse{AcceptedIDs: []string{accepted}, SkippedIDs: []string{skipped}}, nil
		})
	f.adapter.EXPECT().Push(gomock.Any(), gomock.Len(1)).
		DoAndReturn(func(_ context.Context, entries []models.PushEntry) (models.PushResponse, error) {
			assert.Equal(t, tomb, entries[0].ID)
			assert.True(t, entries[0].Deleted, "tombstones are pushed")
			return models.PushResponse{AcceptedIDs: []string{tomb}}, nil
		})
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)

	require.NoError(t, f.coordinator.Sync(ctx))

	unsynced, err := f.store.Unsynced(ctx, models.EntityIntake)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, skipped, unsynced[0].ID)

	status := f.coordinator.Status()
	assert.Equal(t, 2, status.Pushed)
	assert.Equal(t, 1, status.Pending)
	assert.Empty(t, status.LastError)

	persisted, err := f.store.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, status, persisted)
}

func TestSyncCoordinator_PushBatches(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.pushBatchSize = 2
	f.coordinator.SetCredentials(testCredentials(t, 1))

	for i := 0; i < 5; i++ {
		_, _, err := f.store.Add(ctx, models.Flush{AmountMl: i}, nil)
		require.NoError(t, err)
	}

	var sizes []int
	f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).Times(3).
		DoAndReturn(func(_ context.Context, entries []models.PushEntry) (models.PushResponse, error) {
			sizes = append(sizes, len(entries))
			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			return models.PushResponse{AcceptedIDs: ids}, nil
		})
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)

	require.NoError(t, f.coordinator.Sync(ctx))
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 5, f.coordinator.Status().Pushed)
}

func TestSyncCoordinator_TransientPushFailureDoesNotStopOtherTypes(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	_, _, err := f.store.Add(ctx, models.Intake{AmountMl: 1}, nil)
	require.NoError(t, err)
	goal, _, err := f.store.Add(ctx, models.Goal{Kind: "output", TargetMl: 900}, nil)
	require.NoError(t, err)

	gomock.InOrder(
		f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).
			Return(models.PushResponse{}, fmt.Errorf("%w: http 503", adapter.ErrTransient)),
		f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).
			Return(models.PushResponse{AcceptedIDs: []string{goal}}, nil),
	)
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)

	err = f.coordinator.Sync(ctx)
	require.ErrorIs(t, err, adapter.ErrTransient)

	status := f.coordinator.Status()
	assert.Equal(t, 1, status.Pushed)
	assert.Contains(t, status.LastError, "push intake")
	assert.False(t, status.AuthRequired)
}

func TestSyncCoordinator_AuthFailureBlocksUntilNewToken(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	_, _, err := f.store.Add(ctx, models.Output{AmountMl: 10}, nil)
	require.NoError(t, err)

	f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).
		Return(models.PushResponse{}, fmt.Errorf("%w: expired", adapter.ErrUnauthorized))

	err = f.coordinator.Sync(ctx)
	require.ErrorIs(t, err, ErrAuthRequired)
	assert.True(t, f.coordinator.Status().AuthRequired)

	// no adapter calls while blocked
	assert.ErrorIs(t, f.coordinator.Sync(ctx), ErrAuthRequired)

	// same token again does not unblock
	f.coordinator.SetCredentials(f.coordinator.creds)
	assert.ErrorIs(t, f.coordinator.Sync(ctx), ErrAuthRequired)

	f.coordinator.SetCredentials(testCredentials(t, 2))
	assert.False(t, f.coordinator.Status().AuthRequired)

	f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).Return(models.PushResponse{}, nil)
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(emptyPage(0), nil)
	assert.NoError(t, f.coordinator.Sync(ctx))
}

func TestSyncCoordinator_PullAppliesAndSkips(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 7))

	good, err := f.envelope.Seal(models.Intake{AmountMl: 250, Fluid: "juice"}, f.key)
	require.NoError(t, err)
	foreign, err := f.envelope.Seal(models.Intake{AmountMl: 1}, f.envelope.DeriveKey("someone else", nil))
	require.NoError(t, err)

	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(models.PullResponse{Entries: []models.PullEntry{
		{ID: "good", EntityType: "Intakes", SealedPayload: good, Timestamp: 5, UpdatedAt: 6, ServerUpdatedAt: 2001},
		{ID: "foreign", EntityType: models.EntityIntake, SealedPayload: foreign, UpdatedAt: 6, ServerUpdatedAt: 2002},
		{ID: "sleep", EntityType: "sleep", SealedPayload: good, UpdatedAt: 6, ServerUpdatedAt: 2003},
		{ID: "garbage", EntityType: models.EntityIntake, SealedPayload: "%%%", UpdatedAt: 6, ServerUpdatedAt: 2004},
	}, NextCursor: 2004}, nil)

	require.NoError(t, f.coordinator.Sync(ctx))

	got, err := f.store.Get(ctx, models.EntityIntake, "good")
	require.NoError(t, err)
	assert.Equal(t, models.Intake{AmountMl: 250, Fluid: "juice"}, got.Payload)
	assert.True(t, got.Synced)

	_, err = f.store.Get(ctx, models.EntityIntake, "foreign")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	cursor, err := f.store.Cursor(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2004), cursor, "skipped entries still advance the cursor")

	status := f.coordinator.Status()
	assert.Equal(t, 1, status.Pulled)
	assert.Equal(t, 3, status.Skipped)
}

func TestSyncCoordinator_PullPages(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.pullPageSize = 2
	f.coordinator.SetCredentials(testCredentials(t, 3))

	blob, err := f.envelope.Seal(models.BowelMovement{Consistency: "soft"}, f.key)
	require.NoError(t, err)
	entry := func(id string, serverUpdatedAt int64) models.PullEntry {
		return models.PullEntry{ID: id, EntityType: models.EntityBowelMovement, SealedPayload: blob, UpdatedAt: 1, ServerUpdatedAt: serverUpdatedAt}
	}

	gomock.InOrder(
		f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 2).
			Return(models.PullResponse{Entries: []models.PullEntry{entry("a", 10), entry("b", 11)}, NextCursor: 11}, nil),
		f.adapter.EXPECT().Pull(gomock.Any(), int64(11), 2).
			Return(models.PullResponse{Entries: []models.PullEntry{entry("c", 12)}, NextCursor: 12}, nil),
	)

	require.NoError(t, f.coordinator.Sync(ctx))

	all, err := f.store.GetAll(ctx, models.EntityBowelMovement)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cursor, err := f.store.Cursor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), cursor)
}

func TestSyncCoordinator_PullFollowsServerPageCap(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 3))

	blob, err := f.envelope.Seal(models.Intake{AmountMl: 250, Fluid: "water"}, f.key)
	require.NoError(t, err)
	entry := func(id string, serverUpdatedAt int64) models.PullEntry {
		return models.PullEntry{ID: id, EntityType: models.EntityIntake, SealedPayload: blob, UpdatedAt: 1, ServerUpdatedAt: serverUpdatedAt}
	}

	// pages of 2 against a requested 500 are still full pages
	gomock.InOrder(
		f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).
			Return(models.PullResponse{Entries: []models.PullEntry{entry("a", 10), entry("b", 11)}, NextCursor: 11, Limit: 2}, nil),
		f.adapter.EXPECT().Pull(gomock.Any(), int64(11), 500).
			Return(models.PullResponse{Entries: []models.PullEntry{entry("c", 12)}, NextCursor: 12, Limit: 2}, nil),
	)

	require.NoError(t, f.coordinator.Sync(ctx))

	all, err := f.store.GetAll(ctx, models.EntityIntake)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cursor, err := f.store.Cursor(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(12), cursor)
}

func TestSyncCoordinator_PullStopsWhenCursorDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.pullPageSize = 1
	f.coordinator.SetCredentials(testCredentials(t, 3))

	blob, err := f.envelope.Seal(models.Goal{Kind: "intake"}, f.key)
	require.NoError(t, err)
	stale := models.PullEntry{ID: "g", EntityType: models.EntityGoal, SealedPayload: blob, UpdatedAt: 1, ServerUpdatedAt: 0}

	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 1).
		Return(models.PullResponse{Entries: []models.PullEntry{stale}}, nil).Times(1)

	require.NoError(t, f.coordinator.Sync(ctx))
}

func TestSyncCoordinator_PullFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.pullPageSize = 1
	f.coordinator.SetCredentials(testCredentials(t, 3))

	blob, err := f.envelope.Seal(models.Goal{Kind: "intake"}, f.key)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	gomock.InOrder(
		f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 1).
			Return(models.PullResponse{Entries: []models.PullEntry{
				{ID: "g", EntityType: models.EntityGoal, SealedPayload: blob, UpdatedAt: 1, ServerUpdatedAt: 40},
			}}, nil),
		f.adapter.EXPECT().Pull(gomock.Any(), int64(40), 1).Return(models.PullResponse{}, boom),
	)

	err = f.coordinator.Sync(ctx)
	require.ErrorIs(t, err, boom)

	cursor, err := f.store.Cursor(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, cursor)
	assert.Contains(t, f.coordinator.Status().LastError, "connection reset")
}

func TestSyncCoordinator_PullDoesNotOverwriteNewerLocalEdit(t *testing.T) {
	ctx := context.Background()
	f := newCoordinatorFixture(t)
	f.coordinator.SetCredentials(testCredentials(t, 1))

	id, _, err := f.store.Add(ctx, models.DailyTotal{Date: "2026-03-01", IntakeMl: 900}, nil)
	require.NoError(t, err)
	local, err := f.store.Get(ctx, models.EntityDailyTotal, id)
	require.NoError(t, err)

	older, err := f.envelope.Seal(models.DailyTotal{Date: "2026-03-01", IntakeMl: 100}, f.key)
	require.NoError(t, err)

	f.adapter.EXPECT().Push(gomock.Any(), gomock.Any()).Return(models.PushResponse{SkippedIDs: []string{id}}, nil)
	f.adapter.EXPECT().Pull(gomock.Any(), int64(0), 500).Return(models.PullResponse{Entries: []models.PullEntry{
		{ID: id, EntityType: models.EntityDailyTotal, SealedPayload: older, UpdatedAt: local.UpdatedAt - 1, ServerUpdatedAt: 5},
	}}, nil)

	require.NoError(t, f.coordinator.Sync(ctx))

	got, err := f.store.Get(ctx, models.EntityDailyTotal, id)
	require.NoError(t, err)
	assert.Equal(t, 900, got.Payload.(models.DailyTotal).IntakeMl)
	assert.Zero(t, f.coordinator.Status().Pulled)
}
