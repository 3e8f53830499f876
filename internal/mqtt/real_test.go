package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTopics = NewTopics("monitoring/room")

func TestRealPublisherReturnsWhileBrokerStalls(t *testing.T) {
	client := NewFakeClient(true)
	p := NewRealPublisherWithClient(client, testTopics, zap.NewNop())
	defer client.Release()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), EpisodeID: "ep-1", Type: EventAlert}))
	}
	assert.Less(t, time.Since(start), time.Second)

	require.Eventually(t, func() bool { return len(client.Published()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestRealPublisherQueueFull(t *testing.T) {
	client := NewFakeClient(true)
	p := NewRealPublisherWithClient(client, testTopics, zap.NewNop())
	defer client.Release()

	var err error
	for i := 0; i < queueCapacity+2 && err == nil; i++ {
		err = p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})
	}
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRealPublisherDeliversInOrder(t *testing.T) {
	client := NewFakeClient(false)
	p := NewRealPublisherWithClient(client, testTopics, zap.NewNop())

	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}))
	require.NoError(t, p.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), EpisodeID: "ep-1", Type: EventCountdownStarted}))
	require.NoError(t, p.Close())

	assert.Equal(t, []string{testTopics.System, testTopics.Episode}, client.Published())
	assert.ErrorIs(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN"}), ErrClosed)
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	client := NewFakeClient(false)
	client.SetConnected(false)
	p := NewRealPublisherWithClient(client, testTopics, zap.NewNop())

	require.NoError(t, p.PublishEpisode(EpisodeEvent{Timestamp: time.Now(), EpisodeID: "ep-1", Type: EventAlert}))
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.buf.len() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, client.Published())

	client.SetConnected(true)
	p.onConnect(client)
	assert.Equal(t, []string{testTopics.Episode}, client.Published())
	require.NoError(t, p.Close())
}
