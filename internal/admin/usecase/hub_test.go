package usecase

import (
	"context"
	"testing"

	"kinto-admin/internal/admin/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationHub_PublishReachesSessionSubscribers(t *testing.T) {
	ctx := context.Background()
	hub := NewNotificationHub(nil)

	first := make(chan model.Message, 1)
	second := make(chan model.Message, 1)
	other := make(chan model.Message, 1)
	require.NoError(t, hub.Subscribe(ctx, "s1", "a", first))
	require.NoError(t, hub.Subscribe(ctx, "s1", "b", second))
	require.NoError(t, hub.Subscribe(ctx, "s2", "c", other))
	assert.Equal(t, 2, hub.SubscriberCount("s1"))

	msg := model.Message{Type: model.MessageRoute, Data: "/buckets"}
	require.NoError(t, hub.Publish(ctx, "s1", msg))

	assert.Equal(t, msg, <-first)
	assert.Equal(t, msg, <-second)
	assert.Empty(t, other)
}

func TestNotificationHub_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	hub := NewNotificationHub(nil)

	ch := make(chan model.Message, 1)
	require.NoError(t, hub.Subscribe(ctx, "s1", "a", ch))
	require.NoError(t, hub.Unsubscribe(ctx, "s1", "a"))
	assert.Zero(t, hub.SubscriberCount("s1"))

	require.NoError(t, hub.Publish(ctx, "s1", model.Message{Type: model.MessageRoute}))
	assert.Empty(t, ch)

	// unknown session and subscriber are ignored
	assert.NoError(t, hub.Unsubscribe(ctx, "s1", "a"))
	assert.NoError(t, hub.Unsubscribe(ctx, "nope", "a"))
}

func TestNotificationHub_FullChannelDropsMessage(t *testing.T) {
	ctx := context.Background()
	hub := NewNotificationHub(nil)

	slow := make(chan model.Message, 1)
	require.NoError(t, hub.Subscribe(ctx, "s1", "slow", slow))

	require.NoError(t, hub.Publish(ctx, "s1", model.Message{Type: model.MessageRoute, Data: "first"}))
	require.NoError(t, hub.Publish(ctx, "s1", model.Message{Type: model.MessageRoute, Data: "second"}))

	require.Len(t, slow, 1)
	assert.Equal(t, "first", (<-slow).Data)
}
