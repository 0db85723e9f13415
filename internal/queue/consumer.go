package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer connects to RabbitMQ, declares the audit queue
// (durable) and appends every audit event to w as a single human-readable
// line.  It runs a reconnect loop and returns only when ctx is cancelled.
// Malformed messages are logged and rejected without requeue so the loop
// keeps going.  A failed write to w requeues the message and reconnects
// after a pause, so no event is dropped while the log sink is unavailable.
func StartAuditConsumer(ctx context.Context, url, queueName string, w io.Writer, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "audit-consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("failed to dial broker", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queueName, w, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("consume loop ended; reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, w io.Writer, logger *log.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	logger.Info("consuming", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := settle(d, w, logger); err != nil {
				return err
			}
		}
	}
}

// errMalformed marks a message that no retry can ever process.
var errMalformed = errors.New("malformed audit event")

// settle writes d to w and acknowledges it.  Malformed messages are
// rejected for good.  When the write fails the message goes back on the
// queue and the error is returned.
func settle(d amqp.Delivery, w io.Writer, logger *log.Logger) error {
	err := handleMessage(d.Body, w)
	switch {
	case err == nil:
		return d.Ack(false)
	case errors.Is(err, errMalformed):
		logger.Error("dropping malformed message", "message_id", d.MessageId, "err", err)
		return d.Nack(false, false)
	default:
		logger.Error("audit log write failed; requeueing", "message_id", d.MessageId, "err", err)
		if nerr := d.Nack(false, true); nerr != nil {
			logger.Warn("requeue failed", "message_id", d.MessageId, "err", nerr)
		}
		return err
	}
}

// handleMessage renders one audit event as a log line.
func handleMessage(body []byte, w io.Writer) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.Action == "" {
		return fmt.Errorf("%w: missing action", errMalformed)
	}

	container := "-"
	if ev.ContainerNo != "" {
		container = ev.ContainerNo
	}
	line := fmt.Sprintf("[%s] %s | event_id=%s | actor=%s | slot_id=%d | tier=%d | container=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Action, ev.EventID, ev.Actor, ev.SlotID, ev.Tier, container)
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx is done.  It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
