package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

func TestEventHub_FanOut(t *testing.T) {
	hub := NewEventHub()

	first, cancelFirst := hub.Subscribe()
	second, cancelSecond := hub.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	assert.Equal(t, 2, hub.SubscriberCount())

	event := StatusEvent{ID: "dl-1", Status: domain.StatusReady, Progress: 100, At: time.Now()}
	hub.Publish(event)

	select {
	case got := <-first:
		assert.Equal(t, "dl-1", got.ID)
		assert.Equal(t, domain.StatusReady, got.Status)
	case <-time.After(time.Second):
		t.Fatal("first subscriber never received the event")
	}
	select {
	case got := <-second:
		assert.Equal(t, "dl-1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("second subscriber never received the event")
	}
}

func TestEventHub_SlowSubscriberLosesEvents(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Nobody drains, so everything past the buffer is dropped rather
	// than blocking the publisher.
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish(StatusEvent{ID: "dl-1", Status: domain.StatusResolving})
	}

	assert.Len(t, ch, subscriberBuffer)
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe()
	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())

	// The channel is closed and publishing no longer reaches it.
	hub.Publish(StatusEvent{ID: "dl-1", Status: domain.StatusReady})
	_, open := <-ch
	assert.False(t, open)

	require.NotPanics(t, cancel, "cancelling twice is safe")
}
