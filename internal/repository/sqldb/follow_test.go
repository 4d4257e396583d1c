package sqldb

import (
	"context"
	"testing"

	"github.com/sakif/notification-hub/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowAdd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	added, err := db.Follows().Add(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, added)

	exists, err := db.Follows().Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	// the reverse direction is a different edge
	exists, err = db.Follows().Exists(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFollowAdd_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	_, err := db.Follows().Add(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	added, err := db.Follows().Add(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, added, "second Add should not write a row")

	count, err := db.Follows().RecountFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFollowAdd_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	_, err := db.Follows().Add(context.Background(), alice.ID, "ghost")

	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFollowRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	removed, err := db.Follows().Remove(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed, "removing a missing edge is a no-op")

	_, err = db.Follows().Add(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	removed, err = db.Follows().Remove(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestFollowRecountFollowers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	for _, f := range []string{bob.ID, carol.ID} {
		_, err := db.Follows().Add(ctx, alice.ID, f)
		require.NoError(t, err)
	}

	count, err := db.Follows().RecountFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := db.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.FollowerCount)

	_, err = db.Follows().Remove(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	count, err = db.Follows().RecountFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFollowOnlineFollowers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	dave := createTestUser(t, db, "dave")

	for _, f := range []string{bob.ID, carol.ID, dave.ID} {
		_, err := db.Follows().Add(ctx, alice.ID, f)
		require.NoError(t, err)
	}
	require.NoError(t, db.Users().SetOnline(ctx, bob.ID, true))
	require.NoError(t, db.Users().SetOnline(ctx, dave.ID, true))

	ids, err := db.Follows().OnlineFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.ID, dave.ID}, ids)

	// bob has no followers at all
	ids, err = db.Follows().OnlineFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
