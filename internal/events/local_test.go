package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestLocalPublishFiltersTopics(t *testing.T) {
	bus := NewLocal(8)
	defer bus.Close()
	ctx := context.Background()

	logs, cancelLogs, err := bus.Subscribe(ctx, LogsUpdated)
	require.NoError(t, err)
	defer cancelLogs()

	all, cancelAll, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancelAll()

	require.NoError(t, bus.Publish(ctx, UsersUpdated, LogsUpdated))

	assert.Equal(t, LogsUpdated, receive(t, logs).Topic)
	select {
	case ev := <-logs:
		t.Fatalf("unexpected event %q", ev.Topic)
	default:
	}

	assert.Equal(t, UsersUpdated, receive(t, all).Topic)
	assert.Equal(t, LogsUpdated, receive(t, all).Topic)
}

func TestLocalDropsWhenFull(t *testing.T) {
	bus := NewLocal(1)
	defer bus.Close()
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe(ctx, StorageChanged)
	require.NoError(t, err)
	defer cancel()

	for range 5 {
		require.NoError(t, bus.Publish(ctx, StorageChanged))
	}
	assert.Len(t, ch, 1)
}

func TestLocalCancelClosesOnce(t *testing.T) {
	bus := NewLocal(1)
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe(ctx, StorageChanged)
	require.NoError(t, err)

	cancel()
	cancel()
	require.NoError(t, bus.Close())

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	require.NoError(t, bus.Publish(ctx, StorageChanged))
}

func TestLocalSubscribeAfterClose(t *testing.T) {
	bus := NewLocal(1)
	require.NoError(t, bus.Close())

	ch, cancel, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestLocalWatcherGoroutineStops(t *testing.T) {
	bus := NewLocal(4)
	ctx := context.Background()
	ch, cancel, err := bus.Subscribe(ctx, InventoryUpdated)
	require.NoError(t, err)

	done := make(chan int)
	go func() {
		n := 0
		for range ch {
			n++
		}
		done <- n
	}()

	require.NoError(t, bus.Publish(ctx, InventoryUpdated))
	require.Eventually(t, func() bool { return len(ch) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.Equal(t, 1, <-done)
	require.NoError(t, bus.Close())
}
