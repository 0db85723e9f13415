// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the audit consumer.
package queue

import "time"

// AuditEvent is published for every committed allocator write.  It carries
// enough information for downstream consumers to log or analyse yard
// activity without querying the primary database.
type AuditEvent struct {
	EventID     string    `json:"event_id"`
	Action      string    `json:"action"` // hold, confirm, release, remove
	Actor       string    `json:"actor"`
	SlotID      uint64    `json:"slot_id"`
	Tier        int       `json:"tier"`
	ContainerNo string    `json:"container_no,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// MoveTaskEvent tells the forklift subsystem that a container must be moved
// onto a slot tier.
type MoveTaskEvent struct {
	TaskID      uint64    `json:"task_id"`
	SlotID      uint64    `json:"slot_id"`
	Tier        int       `json:"tier"`
	ContainerNo string    `json:"container_no"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
