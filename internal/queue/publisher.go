package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/depot-yard/internal/utils"
)

// Publisher publishes JSON messages to durable RabbitMQ queues through the
// default exchange.  It keeps one connection and channel open and redials
// when the broker drops them.  Safe for concurrent use.
type Publisher struct {
	url    string
	logger *log.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

// NewPublisher returns a Publisher for the broker at url.  The connection is
// opened lazily by the first Publish.
func NewPublisher(url string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{
		url:      url,
		logger:   logger.With("component", "publisher"),
		declared: map[string]bool{},
	}
}

// Publish sends body to queue as a persistent message.  messageID is set as
// the AMQP message-id so consumers can drop redeliveries.  Connection
// failures are retried with backoff; a cancelled ctx aborts.
func (p *Publisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	return utils.Retry(ctx, 3, 500*time.Millisecond, func() error {
		p.mu.Lock()
		defer p.mu.Unlock()

		ch, err := p.channelLocked(queue)
		if err != nil {
			return utils.Retryable(err)
		}
		err = ch.PublishWithContext(ctx,
			"",    // default exchange
			queue, // routing key = queue name
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    messageID,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			})
		if err != nil {
			p.logger.Warn("publish failed, resetting channel", "queue", queue, "err", err)
			p.resetLocked()
			return utils.Retryable(err)
		}
		return nil
	})
}

// channelLocked returns an open channel with queue declared, dialling if
// needed.  p.mu must be held.
func (p *Publisher) channelLocked(queue string) (*amqp.Channel, error) {
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.resetLocked()
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		p.conn, p.ch = conn, ch
		p.logger.Info("connected to broker")
	}
	if !p.declared[queue] {
		// durable, not auto-deleted, not exclusive
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			p.resetLocked()
			return nil, err
		}
		p.declared[queue] = true
	}
	return p.ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.declared = map[string]bool{}
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}
