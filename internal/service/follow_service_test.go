package service

import (
	"context"
	"testing"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	res, err := env.follows.Follow(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.True(t, res.IsFollowing)
	assert.Equal(t, int64(1), res.Target.Followers)
	assert.Equal(t, int64(1), res.Actor.Following)

	// Following twice changes nothing.
	res, err = env.follows.Follow(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Target.Followers)

	following, err := env.follows.IsFollowing(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.True(t, following)

	res, err = env.follows.Unfollow(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.False(t, res.IsFollowing)
	assert.Zero(t, res.Target.Followers)
	assert.Zero(t, res.Actor.Following)

	// Unfollowing a user one does not follow is a no-op.
	_, err = env.follows.Unfollow(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
}

func TestFollowService_RemoveFollower(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	_, err := env.follows.Follow(ctx, bo.ID, ana.ID)
	require.NoError(t, err)

	res, err := env.follows.RemoveFollower(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Actor.Followers)

	following, err := env.follows.IsFollowing(ctx, bo.ID, ana.ID)
	require.NoError(t, err)
	assert.False(t, following)

	_, err = env.follows.RemoveFollower(ctx, ana.ID, bo.ID)
	require.NoError(t, err)
}

func TestFollowService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")

	_, err := env.follows.Follow(ctx, ana.ID, ana.ID)
	assertValidationError(t, err)

	_, err = env.follows.Follow(ctx, ana.ID, 999)
	assertAppError(t, err, models.CodeNotFound)

	ok, err := env.follows.IsFollowing(ctx, ana.ID, ana.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
