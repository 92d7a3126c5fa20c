package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe_DeliversPayload(t *testing.T) {
	bus, err := New(t.TempDir())
	require.NoError(t, err)
	defer bus.Close()

	ctx := context.Background()
	received := make(chan string, 1)
	sub, err := bus.Subscribe(ctx, TopicFileChange, func(payload []byte) {
		var msg map[string]string
		_ = json.Unmarshal(payload, &msg)
		received <- msg["path"]
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, TopicFileChange, map[string]string{"path": "active/feat-001.md"}))

	select {
	case path := <-received:
		assert.Equal(t, "active/feat-001.md", path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	assert.Equal(t, int64(1), bus.Stats.EventsPublished.Load())
}

func TestPublish_DiscardOldBoundsStreamAndTracksDrops(t *testing.T) {
	bus, err := New(t.TempDir(), WithMaxMsgsPerTopic(2))
	require.NoError(t, err)
	defer bus.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, TopicComponentError, map[string]int{"i": i}))
	}

	assert.Equal(t, int64(5), bus.Stats.EventsPublished.Load())
	assert.Greater(t, bus.Stats.EventsDropped.Load(), int64(0))
}

func TestPublish_RateLimitDelaysExcessBursts(t *testing.T) {
	bus, err := New(t.TempDir(), WithPublishRateLimit(5, 1))
	require.NoError(t, err)
	defer bus.Close()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, TopicHealthCheckComplete, map[string]int{"i": i}))
	}
	assert.Greater(t, time.Since(start), 200*time.Millisecond)
}
