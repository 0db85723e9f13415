// Package allocator decides where containers go in the yard.  It reserves
// stack tiers (holds), commits them as occupancy (confirm), frees them
// (release and remove) and ranks empty slots for a container (suggest).
//
// Every write runs in a serializable transaction and re-reads the slot's
// placements inside it, so two operators can never end up with the same
// tier, a floating container or a container in two places.  When the
// database aborts a transaction to keep that guarantee, the operation fails
// with KindConcurrencyConflict and may be retried by the caller.
package allocator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/queue"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// Gate is the allocator's view of the gate/service-request and repair
// subsystems.
type Gate interface {
	// Eligibility reports whether the container exists and passed inspection.
	Eligibility(ctx context.Context, containerNo string) (model.Eligibility, error)
	// AdvanceToPlacedTx moves the container's request into its post-placement
	// status.  Calling it for a request in any other status is a no-op.
	AdvanceToPlacedTx(ctx context.Context, tx *sqlx.Tx, containerNo string, now time.Time) error
}

// Config tunes the allocator.
type Config struct {
	HoldTTL      time.Duration // reservation window of a HOLD
	SuggestLimit int           // maximum number of suggestions returned
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{HoldTTL: 10 * time.Minute, SuggestLimit: 10}
}

// Allocator implements the yard placement operations.
type Allocator struct {
	db         *sqlx.DB
	yards      *repository.YardRepo
	placements *repository.PlacementRepo
	tasks      *repository.MoveTaskRepo
	outbox     *repository.OutboxRepo
	gate       Gate
	cfg        Config
	now        func() time.Time
	logger     *log.Logger
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithClock replaces the wall clock.  All expiry decisions use it.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// New creates an Allocator over db.  gate must not be nil.
func New(db *sqlx.DB, gate Gate, cfg Config, logger *log.Logger, opts ...Option) *Allocator {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = DefaultConfig().HoldTTL
	}
	if cfg.SuggestLimit <= 0 {
		cfg.SuggestLimit = DefaultConfig().SuggestLimit
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &Allocator{
		db:         db,
		yards:      repository.NewYardRepo(db),
		placements: repository.NewPlacementRepo(db),
		tasks:      repository.NewMoveTaskRepo(db),
		outbox:     repository.NewOutboxRepo(db),
		gate:       gate,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.With("component", "allocator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// clock returns the current instant in UTC at the precision the database
// stores.
func (a *Allocator) clock() time.Time {
	return a.now().UTC().Truncate(time.Microsecond)
}

// runSerializable executes fn in a serializable transaction.  Errors that
// mean "another writer got there first" become KindConcurrencyConflict;
// allocator errors pass through; anything else is KindInternal.
func (a *Allocator) runSerializable(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := a.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return a.classify(op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return a.classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return a.classify(op, err)
	}
	committed = true
	return nil
}

func (a *Allocator) classify(op string, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if repository.IsConflict(err) {
		a.logger.Warn("transaction conflict", "op", op, "err", err)
		return wrapError(KindConcurrencyConflict, err, "%s lost a race with a concurrent update; retry", op)
	}
	a.logger.Error("operation failed", "op", op, "err", err)
	return wrapError(KindInternal, err, "%s failed", op)
}

// loadStack reads the slot and its placements inside tx.
func (a *Allocator) loadStack(ctx context.Context, tx *sqlx.Tx, slotID uint64, now time.Time) (model.Slot, stackView, error) {
	slot, err := a.yards.GetSlotTx(ctx, tx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return slot, stackView{}, newError(KindSlotNotFound, "slot %d does not exist", slotID)
	}
	if err != nil {
		return slot, stackView{}, err
	}
	placements, err := a.placements.ListBySlotTx(ctx, tx, slotID)
	if err != nil {
		return slot, stackView{}, err
	}
	return slot, newStackView(slot.TierCapacity, placements, now), nil
}

// audit appends an audit event to the outbox inside tx.
func (a *Allocator) audit(ctx context.Context, tx *sqlx.Tx, action, actor string, slotID uint64, tier int, containerNo string, now time.Time) error {
	ev := queue.AuditEvent{
		EventID:     uuid.NewString(),
		Action:      action,
		Actor:       actor,
		SlotID:      slotID,
		Tier:        tier,
		ContainerNo: containerNo,
		OccurredAt:  now,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &model.OutboxMessage{
		EventID:   ev.EventID,
		Topic:     model.TopicAudit,
		Action:    action,
		Actor:     actor,
		SlotID:    &slotID,
		Tier:      &tier,
		Payload:   string(body),
		CreatedAt: now,
	}
	if containerNo != "" {
		msg.ContainerNo = &containerNo
	}
	return a.outbox.AppendTx(ctx, tx, msg)
}

// NormalizeContainerNo trims and upper-cases a container number.
func NormalizeContainerNo(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validateActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return newError(KindInvalidInput, "actor is required")
	}
	return nil
}
