package redis

import (
	"context"
	"fmt"
	"sync"

	"elearning-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Notifier fans change signals out across instances over Redis pub/sub.
// Payloads carry no data; listeners reload their snapshot from the store.
type Notifier struct {
	client *redis.Client
	prefix string
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client, prefix: "quiz:feed:"}
}

func (n *Notifier) Notify(ctx context.Context, topic string) error {
	if err := n.client.Publish(ctx, n.channel(topic), "changed").Err(); err != nil {
		return domain.Unavailable("redis publish "+topic, err)
	}
	return nil
}

func (n *Notifier) Listen(ctx context.Context, topic string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(topic))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	messages := pubsub.Channel()
	go func() {
		defer close(done)
		defer close(out)
		for range messages {
			select {
			case out <- struct{}{}:
			default:
				// a signal is already pending
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}
	return out, cancel, nil
}

func (n *Notifier) channel(topic string) string {
	return n.prefix + topic
}
