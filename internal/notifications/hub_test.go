package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	hub.Broadcast(10, "hello")
	assert.Equal(t, "hello", string(<-a.Send))
	assert.Equal(t, "hello", string(<-b.Send))
	assert.Len(t, other.Send, 0)
	assert.True(t, hub.IsOnline(10))
	assert.Equal(t, 3, hub.ConnectionCount())

	_ = hub.Shutdown(context.Background())
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(7, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.False(t, hub.IsOnline(7))
	assert.Equal(t, 0, hub.ConnectionCount())

	// closed channel must not panic the sender
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)
	_ = hub.Shutdown(context.Background())
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(2, nil)
	require.NoError(t, err)
	for i := 0; i < sendBuffer; i++ {
		c.TrySend([]byte("x"))
	}
	assert.NotPanics(t, func() { c.TrySend([]byte("overflow")) })
	assert.Len(t, c.Send, sendBuffer)
	_ = hub.Shutdown(context.Background())
}

func TestHub_StartWiringDeliversUserMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub()
	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	require.NoError(t, n.PublishEvent(context.Background(), 42, "notification", map[string]string{"message": "hi"}))

	var got string
	assert.Eventually(t, func() bool {
		select {
		case msg := <-client.Send:
			got = string(msg)
			return true
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)
	assert.JSONEq(t, `{"type":"notification","payload":{"message":"hi"}}`, got)

	require.NoError(t, n.PublishBroadcast(context.Background(), "all"))
	assert.Eventually(t, func() bool {
		select {
		case msg := <-client.Send:
			return string(msg) == "all"
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)
}
