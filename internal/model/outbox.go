package model

import "time"

// Outbox topics.  Each topic maps to one broker queue.
const (
	TopicAudit     = "audit"
	TopicMoveTasks = "move_tasks"
)

// Audit actions recorded for allocator writes.
const (
	ActionHold    = "hold"
	ActionConfirm = "confirm"
	ActionRelease = "release"
	ActionRemove  = "remove"

	ActionMoveTaskCreated = "move_task.created"
)

// OutboxMessage is a row of the audit_events table.  Rows are written in the
// same transaction as the state change they describe and relayed to the
// broker afterwards.
type OutboxMessage struct {
	ID          uint64     `db:"id" json:"id"`
	EventID     string     `db:"event_id" json:"event_id"`
	Topic       string     `db:"topic" json:"topic"`
	Action      string     `db:"action" json:"action"`
	Actor       string     `db:"actor" json:"actor"`
	SlotID      *uint64    `db:"slot_id" json:"slot_id,omitempty"`
	Tier        *int       `db:"tier" json:"tier,omitempty"`
	ContainerNo *string    `db:"container_no" json:"container_no,omitempty"`
	Payload     string     `db:"payload" json:"payload"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
}
