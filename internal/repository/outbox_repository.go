package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// OutboxRepo is the transactional outbox behind the audit and move-task
// streams.  Messages are appended inside the allocator's transaction and
// published later by the relay, so a committed state change always has its
// message and a rolled-back one never does.
type OutboxRepo struct {
	db *sqlx.DB
}

// NewOutboxRepo returns an OutboxRepo bound to the provided database.
func NewOutboxRepo(db *sqlx.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// AppendTx inserts a message and fills in its ID.
func (r *OutboxRepo) AppendTx(ctx context.Context, tx *sqlx.Tx, m *model.OutboxMessage) error {
	id, err := insertReturningID(ctx, tx,
		`INSERT INTO audit_events (event_id, topic, action, actor, slot_id, tier, container_no, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.EventID, m.Topic, m.Action, m.Actor, m.SlotID, m.Tier, m.ContainerNo, m.Payload, m.CreatedAt.UTC())
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// ListUnpublished returns up to limit messages that have not been relayed,
// oldest first.
func (r *OutboxRepo) ListUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	out := []model.OutboxMessage{}
	err := selectAll(ctx, r.db, &out,
		`SELECT id, event_id, topic, action, actor, slot_id, tier, container_no, payload, created_at, published_at
		 FROM audit_events WHERE published_at IS NULL ORDER BY id ASC LIMIT ?`, limit)
	return out, err
}

// MarkPublished stamps the given messages as relayed.
func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`UPDATE audit_events SET published_at = ? WHERE id IN (?)`, at.UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	return err
}

// ListByAction returns every message of one action, oldest first.
func (r *OutboxRepo) ListByAction(ctx context.Context, action string) ([]model.OutboxMessage, error) {
	out := []model.OutboxMessage{}
	err := selectAll(ctx, r.db, &out,
		`SELECT id, event_id, topic, action, actor, slot_id, tier, container_no, payload, created_at, published_at
		 FROM audit_events WHERE action = ? ORDER BY id ASC`, action)
	return out, err
}
