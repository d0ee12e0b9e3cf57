package feed

import (
	"context"
	"log"
	"sync"
)

// Notifier signals that the data behind a topic changed. Signals carry no
// payload; listeners reload what they need.
type Notifier interface {
	Notify(ctx context.Context, topic string) error
	// Listen returns a signal channel for topic. The caller must invoke the
	// returned cancel function to avoid leaks.
	Listen(ctx context.Context, topic string) (<-chan struct{}, func(), error)
}

// Announce notifies topic after a committed write. The write already
// succeeded, so a failed signal is logged rather than returned; live feeds on
// topic miss this change until the next one.
func Announce(ctx context.Context, n Notifier, topic string) {
	if err := n.Notify(ctx, topic); err != nil {
		log.Printf("feed: notify %s: %v", topic, err)
	}
}

// AttemptsTopic is signalled whenever an attempt is added for quizID.
func AttemptsTopic(quizID string) string {
	return "attempts:" + quizID
}

// QuizzesTopic is signalled whenever a quiz of courseID is created, edited or deleted.
func QuizzesTopic(courseID string) string {
	return "quizzes:" + courseID
}

// Hub is an in-process Notifier.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (h *Hub) Notify(_ context.Context, topic string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.listeners[topic] {
		// A pending signal already covers this change.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *Hub) Listen(_ context.Context, topic string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.listeners[topic] == nil {
		h.listeners[topic] = make(map[chan struct{}]struct{})
	}
	h.listeners[topic][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.listeners[topic][ch]; !ok {
			return
		}
		delete(h.listeners[topic], ch)
		if len(h.listeners[topic]) == 0 {
			delete(h.listeners, topic)
		}
		close(ch)
	}
	return ch, cancel, nil
}
