package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		action      models.ActionType
		target      models.TargetKind
		description string
		want        string
	}{
		{models.ActionLike, models.TargetPublication, "", "ana liked your publication"},
		{models.ActionLike, models.TargetPlan, "", "ana liked your plan"},
		{models.ActionComment, models.TargetPublication, "nice", `ana commented on your publication: "nice"`},
		{models.ActionClone, models.TargetPublication, "", "ana cloned your plan"},
		{"wave", models.TargetPlan, "", "ana interacted with your plan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMessage("ana", tt.action, tt.target, tt.description))
	}
}

func TestFormatMessage_TruncatesByRunes(t *testing.T) {
	long := strings.Repeat("é", 60)
	msg := FormatMessage("ana", models.ActionComment, models.TargetPlan, long)
	assert.Equal(t, `ana commented on your plan: "`+strings.Repeat("é", 50)+`..."`, msg)

	exact := strings.Repeat("x", 50)
	assert.Equal(t, `ana liked your plan: "`+exact+`"`, FormatMessage("ana", models.ActionLike, models.TargetPlan, exact))
}

func TestNotify_PersistsAndPushes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	n, err := env.notifications.Notify(ctx, NotifyInput{
		RecipientID: ana.ID, SenderID: bo.ID, SenderName: "bo",
		Action: models.ActionLike, Target: models.TargetPublication, TargetID: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "bo liked your publication", n.Message)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, ana.ID, env.publisher.events[0].userID)
	assert.Equal(t, "notification", env.publisher.events[0].eventType)

	unread, err := env.notifications.UnreadCount(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotify_SelfActionIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ana := env.seedUser(t, "ana")

	n, err := env.notifications.Notify(context.Background(), NotifyInput{
		RecipientID: ana.ID, SenderID: ana.ID, SenderName: "ana", Action: models.ActionLike,
	})
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, env.notificationsFor(t, ana.ID))
	assert.Empty(t, env.publisher.events)
}

func TestNotify_PushFailureKeepsNotification(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("redis down")
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	n, err := env.notifications.Notify(context.Background(), NotifyInput{
		RecipientID: ana.ID, SenderID: bo.ID, SenderName: "bo", Action: models.ActionComment,
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Len(t, env.notificationsFor(t, ana.ID), 1)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	_, err := env.notifications.Create(ctx, bo.ID, "bo", CreateInput{Action: models.ActionLike})
	assertValidationError(t, err)

	_, err = env.notifications.Create(ctx, bo.ID, "bo", CreateInput{RecipientID: ana.ID, Action: "poke"})
	assertValidationError(t, err)

	_, err = env.notifications.Create(ctx, bo.ID, "bo", CreateInput{RecipientID: ana.ID, Action: models.ActionLike, Target: "story"})
	assertValidationError(t, err)

	_, err = env.notifications.Create(ctx, bo.ID, "bo", CreateInput{RecipientID: bo.ID, Action: models.ActionLike})
	assertValidationError(t, err)

	n, err := env.notifications.Create(ctx, bo.ID, "bo", CreateInput{RecipientID: ana.ID, Action: models.ActionClone})
	require.NoError(t, err)
	assert.Equal(t, models.TargetPublication, n.TargetType)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.seedUser(t, "ana")
	bo := env.seedUser(t, "bo")

	for _, action := range []models.ActionType{models.ActionLike, models.ActionComment} {
		_, err := env.notifications.Notify(ctx, NotifyInput{RecipientID: ana.ID, SenderID: bo.ID, SenderName: "bo", Action: action})
		require.NoError(t, err)
	}
	list := env.notificationsFor(t, ana.ID)
	require.Len(t, list, 2)

	assertAppError(t, env.notifications.MarkRead(ctx, bo.ID, list[0].ID), models.CodeNotFound)
	require.NoError(t, env.notifications.MarkRead(ctx, ana.ID, list[0].ID))

	unread, err := env.notifications.UnreadCount(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err := env.notifications.MarkAllRead(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
