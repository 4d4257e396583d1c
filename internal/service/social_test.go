package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/sakif/notification-hub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSocial(t *testing.T, store repository.Store, pusher Pusher) *SocialService {
	t.Helper()
	notifier := NewNotificationService(store, pusher, testLogger())
	return NewSocialService(store, notifier, testLogger())
}

func followerCount(t *testing.T, store repository.Store, userID string) int {
	t.Helper()
	u, err := store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	return u.FollowerCount
}

// =========================================================================
// FOLLOW TESTS
// =========================================================================

func TestFollow_CreatesEdgeCountAndNotification(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	y := createUser(t, store, "yara", true)
	pusher := newRecordingPusher(y.ID)
	svc := newTestSocial(t, store, pusher)

	require.NoError(t, svc.Follow(context.Background(), x.ID, y.ID))

	exists, err := store.Follows().Exists(context.Background(), y.ID, x.ID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, followerCount(t, store, y.ID))
	assert.Equal(t, 0, followerCount(t, store, x.ID))

	list := listFor(t, store, y.ID)
	require.Len(t, list, 1)
	assert.Equal(t, FollowNotificationType, list[0].Type)
	assert.Equal(t, "xavier followed you", list[0].Message)
	assert.Equal(t, x.ID, list[0].ActorID)

	events := pusher.eventsFor(y.ID)
	require.Len(t, events, 1)
	assert.Equal(t, list[0].ID, events[0].Data.ID)
}

func TestFollow_OfflineUserIsNotPushed(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	y := createUser(t, store, "yara", false)
	pusher := newRecordingPusher()
	svc := newTestSocial(t, store, pusher)

	require.NoError(t, svc.Follow(context.Background(), x.ID, y.ID))

	assert.Len(t, listFor(t, store, y.ID), 1)
	assert.Zero(t, pusher.total())
}

func TestFollow_Idempotent(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	y := createUser(t, store, "yara", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	require.NoError(t, svc.Follow(context.Background(), x.ID, y.ID))
	require.NoError(t, svc.Follow(context.Background(), x.ID, y.ID))

	assert.Equal(t, 1, followerCount(t, store, y.ID))
	assert.Len(t, listFor(t, store, y.ID), 2, "every successful call records a notification")
}

func TestFollow_SelfFollowRejected(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	err := svc.Follow(context.Background(), x.ID, x.ID)

	assert.ErrorIs(t, err, apperror.ErrInvalidOperation)
	assert.EqualError(t, err, "Users cannot follow themselves")
	exists, err := store.Follows().Exists(context.Background(), x.ID, x.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, followerCount(t, store, x.ID))
}

func TestFollow_UnknownUsers(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	err := svc.Follow(context.Background(), x.ID, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = svc.Follow(context.Background(), "ghost", x.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, followerCount(t, store, x.ID))
	assert.Empty(t, listFor(t, store, x.ID))
}

func TestFollow_Validation(t *testing.T) {
	svc := newTestSocial(t, newTestStore(t), newRecordingPusher())

	err := svc.Follow(context.Background(), "", "u1")

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.EqualError(t, err, "Follower ID and user ID are required")
}

func TestFollow_NotificationFailureRollsBackEdge(t *testing.T) {
	db := newTestStore(t)
	x := createUser(t, db, "xavier", false)
	y := createUser(t, db, "yara", false)
	store := &faultyStore{Store: db, appendErr: errors.New("database is locked")}
	svc := newTestSocial(t, store, newRecordingPusher())

	err := svc.Follow(context.Background(), x.ID, y.ID)

	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.EqualError(t, err, "Failed to follow user")
	exists, err := db.Follows().Exists(context.Background(), y.ID, x.ID)
	require.NoError(t, err)
	assert.False(t, exists, "edge and count commit with the notification or not at all")
	assert.Zero(t, followerCount(t, db, y.ID))
}

// =========================================================================
// UNFOLLOW TESTS
// =========================================================================

func TestFollowUnfollowFollow(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	y := createUser(t, store, "yara", false)
	svc := newTestSocial(t, store, newRecordingPusher())
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, x.ID, y.ID))
	require.NoError(t, svc.Unfollow(ctx, x.ID, y.ID))
	assert.Zero(t, followerCount(t, store, y.ID))
	require.NoError(t, svc.Follow(ctx, x.ID, y.ID))

	assert.Equal(t, 1, followerCount(t, store, y.ID))
	list := listFor(t, store, y.ID)
	require.Len(t, list, 2)
	for _, n := range list {
		assert.Equal(t, FollowNotificationType, n.Type)
	}
}

func TestUnfollow_NotFollowingIsNoop(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	y := createUser(t, store, "yara", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	require.NoError(t, svc.Unfollow(context.Background(), x.ID, y.ID))
	assert.Zero(t, followerCount(t, store, y.ID))
}

func TestUnfollow_UnknownUser(t *testing.T) {
	store := newTestStore(t)
	x := createUser(t, store, "xavier", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	err := svc.Unfollow(context.Background(), x.ID, "ghost")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUnfollow_UnknownFollower(t *testing.T) {
	store := newTestStore(t)
	y := createUser(t, store, "yara", false)
	svc := newTestSocial(t, store, newRecordingPusher())

	err := svc.Unfollow(context.Background(), "ghost", y.ID)

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, followerCount(t, store, y.ID))
}

// =========================================================================
// COUNT CONSISTENCY TESTS
// =========================================================================

func TestFollowerCountMatchesEdges_ConcurrentDuplicates(t *testing.T) {
	store := newTestStore(t)
	y := createUser(t, store, "yara", false)
	followers := []string{
		createUser(t, store, "a", false).ID,
		createUser(t, store, "b", false).ID,
		createUser(t, store, "c", false).ID,
	}
	svc := newTestSocial(t, store, newRecordingPusher())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for _, f := range followers {
			wg.Add(1)
			go func(f string) {
				defer wg.Done()
				assert.NoError(t, svc.Follow(context.Background(), f, y.ID))
			}(f)
		}
	}
	wg.Wait()
	assert.Equal(t, 3, followerCount(t, store, y.ID))

	require.NoError(t, svc.Unfollow(context.Background(), followers[0], y.ID))
	require.NoError(t, svc.Unfollow(context.Background(), followers[0], y.ID))
	assert.Equal(t, 2, followerCount(t, store, y.ID))
}

func TestFollowUnfollow_LockFollowedUserBeforeEdgeWrites(t *testing.T) {
	base := newTestStore(t)
	x := createUser(t, base, "xavier", false)
	y := createUser(t, base, "yara", false)
	store := &journalStore{Store: base}
	svc := newTestSocial(t, store, newRecordingPusher())
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, x.ID, y.ID))
	require.NoError(t, svc.Unfollow(ctx, x.ID, y.ID))

	assert.Equal(t, []string{
		"lock " + y.ID, "add " + y.ID, "recount " + y.ID,
		"lock " + y.ID, "remove " + y.ID, "recount " + y.ID,
	}, store.journal())
}

func TestUnfollow_WithoutEdgeLeavesCountUntouched(t *testing.T) {
	base := newTestStore(t)
	x := createUser(t, base, "xavier", false)
	y := createUser(t, base, "yara", false)
	store := &journalStore{Store: base}
	svc := newTestSocial(t, store, newRecordingPusher())

	require.NoError(t, svc.Unfollow(context.Background(), x.ID, y.ID))

	assert.Equal(t, []string{"lock " + y.ID}, store.journal())
}
