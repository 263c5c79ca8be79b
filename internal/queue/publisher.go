package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/room"
)

// Publisher publishes activity events to ActivityQueueName. It keeps one
// connection and channel open and redials lazily after a failure. It is
// called from the room's single persister worker, so publishes never run
// concurrently, but the mutex keeps Close safe from other goroutines.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	log *logrus.Entry
}

// NewPublisher returns a publisher for the broker at url. No connection is
// made until the first Publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, log: logrus.WithField("component", "activity_publisher")}
}

// Publish sends a as a persistent JSON message. Errors are returned for the
// caller to log; the next call redials.
func (p *Publisher) Publish(ctx context.Context, a room.Activity) error {
	body, err := json.Marshal(NewActivityEvent(a))
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ActivityQueueName, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish activity: %w", err)
	}
	return nil
}

// channel returns an open channel, dialling if needed. Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.url == "" {
		return nil, errors.New("rabbitmq: no broker url configured")
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(ActivityQueueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info("connected to broker")
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close closes the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.reset()
	p.mu.Unlock()
}

var _ room.ActivitySink = (*Publisher)(nil)
