package livesync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotifierTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisNotifier_WakesAndReportsProject(t *testing.T) {
	mr, rdb := setupNotifierTest(t)

	var mu sync.Mutex
	var seen []int64
	n := NewRedisNotifier(context.Background(), rdb, func(id int64) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	})
	defer n.Close()

	// Subscription registers asynchronously; wait for the receiver.
	require.Eventually(t, func() bool {
		return mr.Publish(Channel, "42") == 1
	}, time.Second, 10*time.Millisecond)

	select {
	case <-n.Wakeups():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wakeup")
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == 42
	}, time.Second, 10*time.Millisecond)
}

// Malformed payloads are dropped without invoking the callback; empty
// payloads signal a bulk change and only wake the loop.
func TestRedisNotifier_IgnoresMalformedPayload(t *testing.T) {
	mr, rdb := setupNotifierTest(t)

	called := false
	n := NewRedisNotifier(context.Background(), rdb, func(id int64) { called = true })
	defer n.Close()

	require.Eventually(t, func() bool {
		return mr.Publish(Channel, "not-a-number") == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, called)

	mr.Publish(Channel, "")
	select {
	case <-n.Wakeups():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wakeup")
	}
}
