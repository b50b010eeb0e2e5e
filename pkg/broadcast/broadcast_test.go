package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/pkg/broadcast"
)

func TestMemoryBroadcaster(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all subscribers", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx := context.Background()
		sub1 := b.Subscribe(ctx)
		sub2 := b.Subscribe(ctx)

		require.NoError(t, b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"}))

		for _, sub := range []broadcast.Subscriber[string]{sub1, sub2} {
			select {
			case msg := <-sub.Receive(ctx):
				assert.Equal(t, "hello", msg.Data)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for message")
			}
		}
	})

	t.Run("drops messages for slow consumers", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[int](1)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		// Buffer size is 1, second message must be dropped without blocking.
		require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 1}))
		require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 2}))

		msg := <-sub.Receive(ctx)
		assert.Equal(t, 1, msg.Data)

		select {
		case _, ok := <-sub.Receive(ctx):
			assert.False(t, ok, "expected no buffered message")
		default:
		}
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		cancel()

		// Channel must eventually close after cancellation.
		deadline := time.After(time.Second)
		for {
			select {
			case _, ok := <-sub.Receive(context.Background()):
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("subscriber channel was not closed")
			}
		}
	})

	t.Run("broadcast after close returns error", func(t *testing.T) {
		t.Parallel()

		b := broadcast.NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		err := b.Broadcast(context.Background(), broadcast.Message[string]{Data: "x"})
		assert.ErrorIs(t, err, broadcast.ErrBroadcasterClosed)
	})
}
