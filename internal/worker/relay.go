package worker

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/iliyamo/depot-yard/internal/model"
)

// Outbox is the store side of the relay.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkPublished(ctx context.Context, ids []uint64, at time.Time) error
}

// Publisher is the broker side of the relay.
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// RelayConfig configures the outbox relay.
type RelayConfig struct {
	Interval      time.Duration
	BatchSize     int
	AuditQueue    string
	MoveTaskQueue string
}

// DefaultRelayConfig returns default configuration.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		Interval:      2 * time.Second,
		BatchSize:     100,
		AuditQueue:    "yard.audit",
		MoveTaskQueue: "yard.move_tasks",
	}
}

// OutboxRelay moves committed outbox messages to the broker.  Delivery is at
// least once: a message is marked published only after the broker accepted
// it, so a consumer may see the same message twice.  The message id is the
// event id, which the audit consumer prints on every line.
type OutboxRelay struct {
	outbox    Outbox
	publisher Publisher
	config    RelayConfig
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewOutboxRelay creates a relay.  Zero config fields take their defaults.
func NewOutboxRelay(o Outbox, p Publisher, config RelayConfig, logger *log.Logger) *OutboxRelay {
	def := DefaultRelayConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.AuditQueue == "" {
		config.AuditQueue = def.AuditQueue
	}
	if config.MoveTaskQueue == "" {
		config.MoveTaskQueue = def.MoveTaskQueue
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OutboxRelay{
		outbox:    o,
		publisher: p,
		config:    config,
		logger:    logger.With("component", "outbox_relay"),
	}
}

// Start begins the relay goroutine.
func (r *OutboxRelay) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.run()
	r.logger.Info("outbox relay started", "interval", r.config.Interval, "batch", r.config.BatchSize)
}

// Stop cancels the loop and waits for the running batch to finish.
func (r *OutboxRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("outbox relay stopped")
}

func (r *OutboxRelay) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		// drain full batches before waiting for the next tick
		for {
			n, err := r.RunOnce(r.ctx)
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Error("relay cycle failed", "err", err)
				}
				break
			}
			if n < r.config.BatchSize {
				break
			}
		}

		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce relays one batch and returns how many messages were published.
// It stops at the first publish failure so ordering is kept; messages
// already accepted by the broker are still marked published.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.outbox.ListUnpublished(ctx, r.config.BatchSize)
	if err != nil {
		return 0, err
	}

	var (
		published []uint64
		pubErr    error
	)
	for _, m := range msgs {
		if pubErr = r.publisher.Publish(ctx, r.queueFor(m.Topic), m.EventID, []byte(m.Payload)); pubErr != nil {
			r.logger.Warn("publish failed", "event_id", m.EventID, "topic", m.Topic, "err", pubErr)
			break
		}
		published = append(published, m.ID)
	}

	if len(published) > 0 {
		if err := r.outbox.MarkPublished(ctx, published, time.Now().UTC()); err != nil {
			return 0, err
		}
		r.logger.Debug("relayed outbox messages", "count", len(published))
	}
	return len(published), pubErr
}

func (r *OutboxRelay) queueFor(topic string) string {
	if topic == model.TopicMoveTasks {
		return r.config.MoveTaskQueue
	}
	return r.config.AuditQueue
}
