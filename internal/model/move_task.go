package model

import "time"

// MoveTaskPending is the initial status of a forklift work item.  The
// forklift subsystem owns every later transition.
const MoveTaskPending = "PENDING"

// MoveTask asks the forklift subsystem to put a container onto a slot tier.
type MoveTask struct {
	ID          uint64    `db:"id" json:"id"`
	SlotID      uint64    `db:"slot_id" json:"slot_id"`
	Tier        int       `db:"tier" json:"tier"`
	ContainerNo string    `db:"container_no" json:"container_no"`
	Status      string    `db:"status" json:"status"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
