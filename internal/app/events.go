package app

import (
	"sync"
	"time"

	"github.com/Matkids/Video-Downloader/internal/domain"
)

// StatusEvent is one observed lifecycle transition, published to event
// stream subscribers
type StatusEvent struct {
	ID        string                `json:"id"`
	Status    domain.DownloadStatus `json:"status"`
	Progress  int                   `json:"progress"`
	ErrorKind domain.ErrorKind      `json:"error_kind,omitempty"`
	At        time.Time             `json:"at"`
}

const subscriberBuffer = 16

// EventHub fans lifecycle transitions out to subscribers. Publishing
// never blocks: a subscriber that falls behind loses events rather
// than stalling the orchestrator.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan StatusEvent]struct{}
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan StatusEvent]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (h *EventHub) Subscribe() (<-chan StatusEvent, func()) {
	ch := make(chan StatusEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber that has room
func (h *EventHub) Publish(event StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
