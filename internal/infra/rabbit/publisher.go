package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"elearning-quiz-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	QuizExchange              = "quiz.events"      // topic exchange for every quiz event
	AttemptRecordedRoutingKey = "attempt.recorded" // routing key for persisted attempts
)

// Publisher sends quiz events to RabbitMQ. An amqp.Channel is not safe for
// concurrent publishing, so calls are serialized.
type Publisher struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

// Dial connects to the broker and declares the durable topic exchange.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		QuizExchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishAttemptRecorded(ctx context.Context, event domain.AttemptRecorded) error {
	msg, err := attemptRecordedMessage(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, QuizExchange, AttemptRecordedRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", AttemptRecordedRoutingKey, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

func attemptRecordedMessage(event domain.AttemptRecorded) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal attempt event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.AttemptID,
		Timestamp:    event.CreatedAt,
		Type:         AttemptRecordedRoutingKey,
		Body:         body,
	}, nil
}
